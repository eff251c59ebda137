package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one entry of a user's conversation. Only role and content are
// part of the wire format; the remaining fields are storage bookkeeping.
type Message struct {
	ID        uint              `json:"-" gorm:"primaryKey;autoIncrement"`
	UserID    uuid.UUID         `json:"-" gorm:"type:uuid;index;not null"`
	Role      Role              `json:"role" gorm:"not null"`
	Content   string            `json:"content" gorm:"not null"`
	Metadata  datatypes.JSONMap `json:"-"`
	CreatedAt time.Time         `json:"-"`
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Metadata keys recorded on assistant messages.
const (
	MetadataModel            = "model"
	MetadataPromptTokens     = "promptTokens"
	MetadataCompletionTokens = "completionTokens"
)
