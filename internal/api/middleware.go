package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"blog-backend/internal/auth"
	"blog-backend/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type contextKey string

const userContextKey contextKey = "current_user"

// CurrentUser returns the authenticated user placed in the context by
// AuthMiddleware, or nil on unauthenticated routes.
func CurrentUser(ctx context.Context) *database.User {
	user, _ := ctx.Value(userContextKey).(*database.User)
	return user
}

// AuthMiddleware validates the Bearer access token and loads the user record
// into the request context. Inactive users are rejected even with a valid
// token.
func AuthMiddleware(tokens *auth.TokenManager, db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Verify(token, auth.TokenTypeAccess)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			var user database.User
			if err := db.WithContext(r.Context()).First(&user, "id = ?", userID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					http.Error(w, "user not found", http.StatusUnauthorized)
					return
				}
				slog.Error("error loading user for auth", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if !user.IsActive {
				http.Error(w, "inactive user", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSuperuser gates a route behind the superuser flag. Must run after
// AuthMiddleware.
func RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r.Context())
		if user == nil {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if !user.IsSuperuser {
			http.Error(w, "insufficient privileges", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
