package repository

import (
	"context"

	"github.com/dom/chatbot-web/internal/domain"
	"github.com/google/uuid"
)

// UserRepository returns domain.ErrUserNotFound for missing users and
// domain.ErrEmailTaken when Create hits the unique email constraint.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ChatRepository stores each user's ordered message history. Append must be a
// single atomic store operation so concurrent appends for the same user never
// overwrite each other.
type ChatRepository interface {
	Append(ctx context.Context, userID uuid.UUID, messages ...domain.Message) error
	List(ctx context.Context, userID uuid.UUID) ([]domain.Message, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type Repositories struct {
	User UserRepository
	Chat ChatRepository
}
