package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/questauth/core"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore is a Redis implementation of the SessionStore interface.
// Each token is a key holding the account ID, expiring with the session TTL;
// an index set makes tokens enumerable for the pruning sweep.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	index  string
	ttl    time.Duration
}

// NewRedisSessionStore creates a new Redis session store
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: "questauth:session:",
		index:  "questauth:sessions",
		ttl:    ttl,
	}
}

// Create stores the token and adds it to the index in one transaction
func (s *RedisSessionStore) Create(ctx context.Context, accountID, token string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.prefix+token, accountID, s.ttl)
		pipe.SAdd(ctx, s.index, token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return nil
}

// FindValid returns the account ID the token belongs to
func (s *RedisSessionStore) FindValid(ctx context.Context, token string) (string, error) {
	accountID, err := s.client.Get(ctx, s.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to look up session: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return accountID, nil
}

// Delete removes the token key and its index entry
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.prefix+token)
		pipe.SRem(ctx, s.index, token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return nil
}

// ListAll returns every indexed token, including ones whose key already expired
func (s *RedisSessionStore) ListAll(ctx context.Context) ([]string, error) {
	tokens, err := s.client.SMembers(ctx, s.index).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return tokens, nil
}
