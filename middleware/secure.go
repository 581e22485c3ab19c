package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureOptions are the response security headers. GraphiQL loads its assets
// from a CDN, so the content security policy is left to the caller.
func SecureOptions(isDevelopment bool) secure.Options {
	return secure.Options{
		IsDevelopment:      isDevelopment,
		ContentTypeNosniff: true,
		FrameDeny:          true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
}

func NewSecure(opts secure.Options) func(http.Handler) http.Handler {
	return secure.New(opts).Handler
}
