package middleware

import (
	"net/http"

	"taskhub/logging"

	"github.com/ulule/limiter/v3"
	stdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewIPRateLimiter limits requests per client IP with an in-memory store.
// rateFormatted uses the limiter notation ("20-M", "300-H"); empty disables it.
func NewIPRateLimiter(rateFormatted string) (func(http.Handler) http.Handler, error) {
	if rateFormatted == "" {
		return noopMiddleware, nil
	}
	rate, err := limiter.NewRateFromFormatted(rateFormatted)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), rate)
	return stdlib.NewMiddleware(instance, stdlib.WithLimitReachedHandler(limitReached)).Handler, nil
}

func limitReached(w http.ResponseWriter, r *http.Request) {
	logging.Logger.Warnf("Event ID: RATE_LIMIT_EXCEEDED, Description: Rate limit exceeded for %s on %s %s", r.RemoteAddr, r.Method, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
}

func noopMiddleware(next http.Handler) http.Handler {
	return next
}
