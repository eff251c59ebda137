package handlers

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/dom/chatbot-web/internal/api/middleware"
	"github.com/dom/chatbot-web/internal/api/response"
	"github.com/dom/chatbot-web/internal/service"
	"github.com/dom/chatbot-web/internal/websocket"
	ws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub         *websocket.Hub
	authService *service.AuthService
	upgrader    ws.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, authService *service.AuthService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		authService: authService,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts same-host requests, non-browser clients and the
// configured browser origins. The session cookie makes cross-site upgrades
// unsafe otherwise.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, service.ErrInvalidToken.Error())
		return
	}

	// The account may have been removed since the token was issued.
	user, err := h.authService.Verify(r.Context(), claims)
	if err != nil {
		writeServiceError(w, "WebSocket", err)
		return
	}

	// Upgrade to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	// Create client
	client := websocket.NewClient(h.hub, conn, user.ID)
	h.hub.Register(client)

	// Start goroutines
	go client.WritePump()
	go client.ReadPump()

	client.Sync(r.Context())
}
