package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/solsage/solsage/internal/models"
)

const redisKeyPrefix = "session:"

// RedisStore keeps sessions in Redis so they survive process restarts
// and can be shared by multiple instances behind one chat surface.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed session store from a URL such as
// redis://localhost:6379/0.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the sender's snapshot, if any.
func (s *RedisStore) Get(ctx context.Context, senderID string) (*models.WalletSnapshot, bool, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+senderID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read session: %w", err)
	}

	var snapshot models.WalletSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("failed to decode session: %w", err)
	}
	return &snapshot, true, nil
}

// Set replaces the sender's snapshot. Sessions do not expire.
func (s *RedisStore) Set(ctx context.Context, senderID string, snapshot *models.WalletSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+senderID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
