package postgres

import (
	"context"
	"time"

	"github.com/dom/chatbot-web/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *chatRepository {
	return &chatRepository{db: db}
}

// Append inserts all messages with one multi-row INSERT. Rows are ordered by
// their auto-increment id, so insertion order is conversation order.
func (r *chatRepository) Append(ctx context.Context, userID uuid.UUID, messages ...domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if !m.Role.Valid() {
			return domain.ErrInvalidRole
		}
		m.ID = 0
		m.UserID = userID
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		rows = append(rows, m)
	}

	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *chatRepository) List(ctx context.Context, userID uuid.UUID) ([]domain.Message, error) {
	messages := []domain.Message{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *chatRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.Message{}).Error
}
