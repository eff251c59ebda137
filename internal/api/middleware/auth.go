package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/dom/chatbot-web/internal/api/response"
	"github.com/dom/chatbot-web/internal/config"
	"github.com/dom/chatbot-web/internal/service"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	ClaimsKey contextKey = "claims"
)

// Auth requires a valid signed session cookie and stores the token claims in
// the request context.
func Auth(authService *service.AuthService, cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cfg.CookieName)
			if err != nil || cookie.Value == "" {
				log.Printf("ERROR [middleware.Auth] missing session cookie")
				response.Error(w, http.StatusUnauthorized, service.ErrInvalidToken.Error())
				return
			}

			token, ok := UnsignCookieValue(cookie.Value, cfg.CookieSecret)
			if !ok {
				log.Printf("ERROR [middleware.Auth] bad cookie signature")
				response.Error(w, http.StatusUnauthorized, service.ErrInvalidToken.Error())
				return
			}

			claims, err := authService.ValidateToken(token)
			if err != nil {
				log.Printf("ERROR [middleware.Auth] token validation failed: %v", err)
				response.Error(w, http.StatusUnauthorized, service.ErrInvalidToken.Error())
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				log.Printf("ERROR [middleware.Auth] failed to parse user ID: %v", err)
				response.Error(w, http.StatusUnauthorized, service.ErrInvalidToken.Error())
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

func GetClaims(ctx context.Context) (*service.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*service.Claims)
	return claims, ok
}
