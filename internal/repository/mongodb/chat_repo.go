package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/chatbot-web/internal/domain"
	"github.com/dom/chatbot-web/internal/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type chatRepository struct {
	col *mongo.Collection
}

func NewChatRepository(col *mongo.Collection) repository.ChatRepository {
	return &chatRepository{col: col}
}

// Append pushes all messages in one update so concurrent appends never
// overwrite each other. Returns domain.ErrUserNotFound for unknown users.
func (r *chatRepository) Append(ctx context.Context, userID uuid.UUID, messages ...domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]chatDocument, 0, len(messages))
	for _, m := range messages {
		if !m.Role.Valid() {
			return domain.ErrInvalidRole
		}
		docs = append(docs, fromMessage(m, now))
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": userID.String()},
		bson.M{
			"$push": bson.M{"chats": bson.M{"$each": docs}},
			"$set":  bson.M{"updated_at": now},
		},
	)
	if err != nil {
		return fmt.Errorf("mongo push chats: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *chatRepository) List(ctx context.Context, userID uuid.UUID) ([]domain.Message, error) {
	opts := options.FindOne().SetProjection(bson.M{"chats": 1})

	var doc userDocument
	err := r.col.FindOne(ctx, bson.M{"_id": userID.String()}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(doc.Chats))
	for _, c := range doc.Chats {
		messages = append(messages, c.toDomain(userID))
	}
	return messages, nil
}

func (r *chatRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": userID.String()},
		bson.M{"$set": bson.M{"chats": bson.A{}, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("mongo clear chats: %w", err)
	}
	return nil
}
