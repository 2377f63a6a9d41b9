package middleware

import (
	"context"
	"net/http"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/services"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CurrentUserKey contextKey = "currentUser"

// CurrentUser resolves the token's user against the loaded state. Tokens of
// deleted users stop working immediately, and role changes apply without a
// new login.
func CurrentUser(users *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r.Context())
			if claims == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			userID, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			user, err := users.GetUser(userID)
			if err != nil {
				log.WithField("userID", claims.UserID).Warn("Token for unknown user")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), CurrentUserKey, *user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCurrentUser returns the user resolved by CurrentUser.
func GetCurrentUser(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(CurrentUserKey).(models.User)
	return u, ok
}

// WithCurrentUser is used by tests and by handlers that resolve users themselves.
func WithCurrentUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, CurrentUserKey, u)
}
