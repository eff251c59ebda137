package websocket

import (
	"encoding/json"
	"time"

	"github.com/dom/chatbot-web/internal/domain"
)

type MessageType string

const (
	// Client to Server
	MessageTypeSync MessageType = "SYNC"

	// Server to Client
	MessageTypeChatSync    MessageType = "CHAT_SYNC"
	MessageTypeChatUpdated MessageType = "CHAT_UPDATED"
	MessageTypeChatCleared MessageType = "CHAT_CLEARED"
	MessageTypeError       MessageType = "ERROR"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Server to Client payloads

type ChatsPayload struct {
	Chats []domain.Message `json:"chats"`
}

type ChatClearedPayload struct{}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
