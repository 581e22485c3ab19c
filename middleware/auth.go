package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"taskhub/logging"
	"taskhub/models"
	"taskhub/utils"

	"golang.org/x/exp/slices"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenValidator decodes bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*utils.Claims, error)
}

func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the authenticated caller, or nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *models.Identity {
	identity, _ := ctx.Value(identityKey).(*models.Identity)
	return identity
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return authenticate(tokens, true)
}

// OptionalAuth lets anonymous requests through but still rejects a token that
// is present and invalid.
func OptionalAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return authenticate(tokens, false)
}

func authenticate(tokens TokenValidator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				logging.Logger.Warnf("Event ID: JWT_AUTH_MISSING_HEADER, Description: Authorization header missing for request to %s %s", r.Method, r.URL.Path)
				writeError(w, http.StatusUnauthorized, "Authorization header missing")
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == authHeader {
				logging.Logger.Warnf("Event ID: JWT_AUTH_BEARER_PREFIX_MISSING, Description: Bearer prefix missing in Authorization header for request to %s %s", r.Method, r.URL.Path)
			}

			claims, err := tokens.ValidateToken(strings.TrimSpace(tokenStr))
			if err != nil {
				logging.Logger.Warnf("Event ID: JWT_AUTH_INVALID_TOKEN, Description: Invalid token provided for request to %s %s: %v", r.Method, r.URL.Path, err)
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			logging.Logger.Debugf("Event ID: JWT_AUTH_SUCCESS, Description: Token validated for user %s on %s %s", claims.UserID, r.Method, r.URL.Path)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Identity())))
		})
	}
}

// RequireRole answers 403 unless the authenticated caller holds one of roles.
// It must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !slices.Contains(roles, identity.Role) {
				logging.Logger.Warnf("Event ID: ACCESS_FORBIDDEN, Description: User %s with role %s denied on %s %s", identity.ID, identity.Role, r.Method, r.URL.Path)
				writeError(w, http.StatusForbidden, "Access forbidden: insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
