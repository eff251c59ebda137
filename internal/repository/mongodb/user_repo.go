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

type userRepository struct {
	col *mongo.Collection
}

func NewUserRepository(col *mongo.Collection) repository.UserRepository {
	return &userRepository{col: col}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.col.InsertOne(ctx, userDocument{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Password:  user.PasswordHash,
		Chats:     []chatDocument{},
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("mongo insert user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	opts := options.FindOne().SetProjection(bson.M{"chats": 0})

	var doc userDocument
	err := r.col.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain()
}
