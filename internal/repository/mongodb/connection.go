package mongodb

import (
	"context"
	"fmt"

	"github.com/dom/chatbot-web/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

// Connect opens and pings a MongoDB client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique email index on the users collection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

// NewRepositories creates all repositories backed by one MongoDB database.
func NewRepositories(ctx context.Context, db *mongo.Database) (*repository.Repositories, error) {
	if err := EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}

	col := db.Collection(usersCollection)
	return &repository.Repositories{
		User: NewUserRepository(col),
		Chat: NewChatRepository(col),
	}, nil
}
