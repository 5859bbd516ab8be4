package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lessonlift/backend/internal/contextkeys"
	"github.com/lessonlift/backend/internal/domain"
	"github.com/lessonlift/backend/internal/handler"
)

// TokenVerifier turns a bearer token into the caller's session.
type TokenVerifier interface {
	VerifyToken(token string) (*domain.Session, error)
}

const authFailed = "Authentication failed. Please log in again."

// Auth creates a JWT authentication middleware.
func Auth(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := zerolog.Ctx(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Debug().Msg("no authorization header")
				unauthorized(w)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
				log.Debug().Msg("malformed authorization header")
				unauthorized(w)
				return
			}

			sess, err := verifier.VerifyToken(strings.TrimSpace(parts[1]))
			if err != nil {
				log.Warn().Err(err).Msg("token verification failed")
				unauthorized(w)
				return
			}

			// Store user info in context using typed keys
			ctx := context.WithValue(r.Context(), contextkeys.UserID, sess.UserID)
			ctx = context.WithValue(ctx, contextkeys.UserEmail, sess.Email)
			ctx = context.WithValue(ctx, contextkeys.UserRole, sess.Role)
			ctx = log.With().Str("user_id", sess.UserID).Logger().WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	handler.JSON(w, http.StatusUnauthorized, map[string]interface{}{
		"success": false,
		"error":   authFailed,
	})
}
