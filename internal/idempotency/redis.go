package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dom/chatbot-web/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	statePending = "pending"
	stateDone    = "done"
)

type entry struct {
	State string           `json:"state"`
	Chats []domain.Message `json:"chats,omitempty"`
}

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func redisKey(userID uuid.UUID, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", userID, key)
}

func (s *RedisStore) Begin(ctx context.Context, userID uuid.UUID, key string) (*Record, error) {
	k := redisKey(userID, key)
	pending, err := json.Marshal(entry{State: statePending})
	if err != nil {
		return nil, err
	}

	// A key may expire between SETNX and GET, so try twice before giving up.
	for attempt := 0; attempt < 2; attempt++ {
		claimed, err := s.rdb.SetNX(ctx, k, pending, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("claim idempotency key: %w", err)
		}
		if claimed {
			return nil, nil
		}

		raw, err := s.rdb.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read idempotency key: %w", err)
		}

		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode idempotency entry: %w", err)
		}
		if e.State != stateDone {
			return nil, ErrInProgress
		}
		chats := e.Chats
		if chats == nil {
			chats = []domain.Message{}
		}
		return &Record{Chats: chats}, nil
	}

	return nil, ErrInProgress
}

func (s *RedisStore) Complete(ctx context.Context, userID uuid.UUID, key string, chats []domain.Message) error {
	raw, err := json.Marshal(entry{State: stateDone, Chats: chats})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, redisKey(userID, key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency response: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, userID uuid.UUID, key string) error {
	return s.rdb.Del(ctx, redisKey(userID, key)).Err()
}
