package middleware

import (
	"net/http"

	"github.com/dom/chatbot-web/internal/idempotency"
	"github.com/go-chi/cors"
)

// CORS allows the configured browser origins to send the session cookie.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", idempotency.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
