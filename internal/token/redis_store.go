// Package token provides Redis-backed storage for one-click email approval
// tokens. Each token maps to a pending submission id and expires after 30
// days, matching the approval window offered in notification emails.
package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TTL is how long an approval link stays valid.
const TTL = 30 * 24 * time.Hour

// ErrNotFound is returned when a token is unknown or has expired.
var ErrNotFound = fmt.Errorf("approval token not found or expired")

// RedisStore implements approval token storage using Redis
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed token store
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "approval:",
	}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "approval:",
	}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

// Issue creates a fresh token for a pending submission and stores it with
// the approval TTL.
func (s *RedisStore) Issue(ctx context.Context, submissionID int64) (string, error) {
	token := uuid.NewString()
	key := s.key(token)
	if err := s.client.Set(ctx, key, strconv.FormatInt(submissionID, 10), TTL).Err(); err != nil {
		return "", fmt.Errorf("save approval token: %w", err)
	}
	return token, nil
}

// Lookup resolves a token to the submission id it was issued for.
func (s *RedisStore) Lookup(ctx context.Context, token string) (int64, error) {
	value, err := s.client.Get(ctx, s.key(token)).Result()
	if err == redis.Nil {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup approval token: %w", err)
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse approval token value: %w", err)
	}
	return id, nil
}

// Revoke deletes a token so the link can only be used once.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("revoke approval token: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
