package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtutil "github.com/Dias221467/agency-portal/pkg/jwt"
	log "github.com/sirupsen/logrus"
)

type contextKey string

const UserContextKey contextKey = "user"

// AuthMiddleware validates the bearer token and stores its claims in the
// request context. Browsers cannot set headers on a WebSocket handshake, so
// a token query parameter is accepted as well.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "Missing token", http.StatusUnauthorized)
				return
			}

			claims, err := jwtutil.ValidateToken(token, secret)
			if err != nil {
				log.WithError(err).WithField("path", r.URL.Path).Warn("Invalid token")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose token carries none of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r.Context())
			if claims == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.WithFields(log.Fields{
				"userID": claims.UserID,
				"role":   claims.Role,
			}).Warn("Forbidden: role not allowed")
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

// GetUserFromContext returns the token claims, or nil outside AuthMiddleware.
func GetUserFromContext(ctx context.Context) *jwtutil.Claims {
	claims, _ := ctx.Value(UserContextKey).(*jwtutil.Claims)
	return claims
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}
