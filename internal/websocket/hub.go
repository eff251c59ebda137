package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/dom/chatbot-web/internal/domain"
	"github.com/dom/chatbot-web/internal/repository"
	"github.com/google/uuid"
)

// Hub tracks open connections per user and fans conversation changes out to
// every connection of that user.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopOnce   sync.Once
	chatRepo   repository.ChatRepository
	mu         sync.RWMutex
}

func NewHub(chatRepo repository.ChatRepository) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		chatRepo:   chatRepo,
	}
}

func (h *Hub) Run() {
	defer close(h.done) // Signal that Run() has exited

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for _, conns := range h.clients {
				for client := range conns {
					client.Close()
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			conns, ok := h.clients[client.UserID()]
			if !ok {
				conns = make(map[*Client]bool)
				h.clients[client.UserID()] = conns
			}
			conns[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	conns, ok := h.clients[client.UserID()]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	client.Close()
	if len(conns) == 0 {
		delete(h.clients, client.UserID())
	}
}

// Stop gracefully shuts down the hub and closes all clients.
// It blocks until the hub has fully shut down.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	<-h.done // Wait for Run() to finish
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister safely unregisters a client, handling the case where the hub may be stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ConnectionCount returns how many connections a user has open.
func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) publish(userID uuid.UUID, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal message: %v", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for client := range h.clients[userID] {
		if !client.trySend(data) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// Drop clients that cannot keep up; they can reconnect and SYNC.
	for _, client := range slow {
		log.Printf("Hub: dropping slow client for user %s", userID)
		go h.Unregister(client)
	}
}

// ChatUpdated pushes the full conversation to the user's connections.
func (h *Hub) ChatUpdated(userID uuid.UUID, chats []domain.Message) {
	msg, err := NewMessage(MessageTypeChatUpdated, ChatsPayload{Chats: chats})
	if err != nil {
		log.Printf("failed to build message: %v", err)
		return
	}
	h.publish(userID, msg)
}

// ChatCleared tells the user's connections the conversation was emptied.
func (h *Hub) ChatCleared(userID uuid.UUID) {
	msg, err := NewMessage(MessageTypeChatCleared, ChatClearedPayload{})
	if err != nil {
		log.Printf("failed to build message: %v", err)
		return
	}
	h.publish(userID, msg)
}
