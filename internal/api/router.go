package api

import (
	"net/http"

	"github.com/dom/chatbot-web/internal/api/handlers"
	"github.com/dom/chatbot-web/internal/api/middleware"
	"github.com/dom/chatbot-web/internal/config"
	"github.com/dom/chatbot-web/internal/idempotency"
	"github.com/dom/chatbot-web/internal/service"
	"github.com/dom/chatbot-web/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(services *service.Services, hub *websocket.Hub, idem idempotency.Store, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, cfg)
	chatHandler := handlers.NewChatHandler(services.Chat, idem)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth, cfg.AllowedOrigins)

	requireSession := middleware.Auth(services.Auth, cfg)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Route("/user", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)

			// Protected user routes
			r.Group(func(r chi.Router) {
				r.Use(requireSession)
				r.Get("/auth-status", authHandler.AuthStatus)
				r.Get("/logout", authHandler.Logout)
			})
		})

		r.Route("/chat", func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/all-chats", chatHandler.GetAll)
			r.Post("/new", chatHandler.New)
			r.Delete("/delete", chatHandler.Delete)
			r.Get("/ws", wsHandler.Handle)
		})
	})

	return r
}
