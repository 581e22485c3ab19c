package handlers

import (
	"context"
	"net/http"
	"time"

	"taskhub/graph"
	"taskhub/logging"
	"taskhub/middleware"
	"taskhub/models"
	"taskhub/services"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Users    *services.UserService
	Projects *services.ProjectService
	Tasks    *services.TaskService
	Tokens   middleware.TokenValidator

	CORSOrigin    string
	GraphiQL      bool
	RateLimit     string
	AuthRateLimit string
	Development   bool

	// Health reports store reachability; nil means always healthy.
	Health func(ctx context.Context) error
}

// NewRouter mounts /graphql, the /users REST surface, /health and /metrics.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	schema, err := graph.NewSchema(cfg.Users, cfg.Projects, cfg.Tasks)
	if err != nil {
		return nil, err
	}
	apiLimit, err := middleware.NewIPRateLimiter(cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	authLimit, err := middleware.NewIPRateLimiter(cfg.AuthRateLimit)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Use(middleware.PrometheusMiddleware)

	router.HandleFunc("/health", healthHandler(cfg.Health)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	graphqlHandler := apiLimit(middleware.OptionalAuth(cfg.Tokens)(graph.NewHandler(schema, cfg.GraphiQL)))
	router.Handle("/graphql", graphqlHandler).Methods(http.MethodGet, http.MethodPost)

	userHandler := NewUserHandler(cfg.Users)
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(cfg.Tokens)(middleware.RequireRole(models.RoleAdmin)(h))
	}

	users := router.PathPrefix("/users").Subrouter()
	users.Handle("/register", authLimit(middleware.OptionalAuth(cfg.Tokens)(http.HandlerFunc(userHandler.Register)))).Methods(http.MethodPost)
	users.Handle("/login", authLimit(http.HandlerFunc(userHandler.Login))).Methods(http.MethodPost)
	users.Handle("/request-reset", authLimit(http.HandlerFunc(userHandler.RequestPasswordReset))).Methods(http.MethodPost)
	users.Handle("/reset-password", authLimit(http.HandlerFunc(userHandler.ResetPassword))).Methods(http.MethodPost)
	users.Handle("/users", admin(userHandler.GetUsers)).Methods(http.MethodGet)
	users.Handle("/users", admin(userHandler.DeleteAllUsers)).Methods(http.MethodDelete)
	users.HandleFunc("/users/{id}", userHandler.GetUser).Methods(http.MethodGet)
	users.Handle("/users/{id}", admin(userHandler.UpdateUser)).Methods(http.MethodPut)
	users.Handle("/users/{id}", admin(userHandler.DeleteUser)).Methods(http.MethodDelete)

	secure := middleware.NewSecure(middleware.SecureOptions(cfg.Development))
	return middleware.RequestLogger(secure(middleware.EnableCORS(cfg.CORSOrigin)(router))), nil
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				logging.Logger.Errorf("Event ID: HEALTH_CHECK_FAILED, Description: Store is unreachable: %v", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
