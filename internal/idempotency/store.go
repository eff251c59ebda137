package idempotency

import (
	"context"
	"errors"

	"github.com/dom/chatbot-web/internal/domain"
	"github.com/google/uuid"
)

// HeaderName is the request header carrying the client's idempotency key.
const HeaderName = "Idempotency-Key"

var ErrInProgress = errors.New("request already in progress")

// Record is a completed response kept for replay.
type Record struct {
	Chats []domain.Message `json:"chats"`
}

// Store tracks idempotency keys per user.
//
// Begin claims the key. It returns (nil, nil) when the caller should process the
// request, a Record when a completed response can be replayed, or ErrInProgress
// when another request holds the key.
type Store interface {
	Begin(ctx context.Context, userID uuid.UUID, key string) (*Record, error)
	Complete(ctx context.Context, userID uuid.UUID, key string, chats []domain.Message) error
	Release(ctx context.Context, userID uuid.UUID, key string) error
}

type noopStore struct{}

// NewNoopStore returns a Store that never replays.
func NewNoopStore() Store {
	return noopStore{}
}

func (noopStore) Begin(context.Context, uuid.UUID, string) (*Record, error) { return nil, nil }

func (noopStore) Complete(context.Context, uuid.UUID, string, []domain.Message) error { return nil }

func (noopStore) Release(context.Context, uuid.UUID, string) error { return nil }
