package mongodb

import (
	"time"

	"github.com/dom/chatbot-web/internal/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// userDocument keeps the conversation embedded in the user document.
type userDocument struct {
	ID        string         `bson:"_id"`
	Name      string         `bson:"name"`
	Email     string         `bson:"email"`
	Password  string         `bson:"password"`
	Chats     []chatDocument `bson:"chats"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type chatDocument struct {
	Role      string         `bson:"role"`
	Content   string         `bson:"content"`
	Metadata  map[string]any `bson:"metadata,omitempty"`
	CreatedAt time.Time      `bson:"created_at"`
}

func (d *userDocument) toDomain() (*domain.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           id,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

func (d chatDocument) toDomain(userID uuid.UUID) domain.Message {
	msg := domain.Message{
		UserID:    userID,
		Role:      domain.Role(d.Role),
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
	if len(d.Metadata) > 0 {
		msg.Metadata = datatypes.JSONMap(d.Metadata)
	}
	return msg
}

func fromMessage(m domain.Message, now time.Time) chatDocument {
	doc := chatDocument{
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if len(m.Metadata) > 0 {
		doc.Metadata = map[string]any(m.Metadata)
	}
	return doc
}
