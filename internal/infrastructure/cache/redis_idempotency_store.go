package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	appdeduction "github.com/stockpool/backend/internal/application/deduction"
	"github.com/stockpool/backend/internal/infrastructure/config"
)

// RedisIdempotencyStore implements the order-reference process-once guard
// using Redis. Suitable for distributed deployments where multiple
// instances must share idempotency state.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore creates a new Redis-based idempotency store
func NewRedisIdempotencyStore(cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: "deduction:order:",
	}, nil
}

// NewRedisIdempotencyStoreWithClient creates a store with an existing
// Redis client. Useful for tests or when sharing a client.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = "deduction:order:"
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed marks an order reference as processed with a TTL.
// Returns true if the reference was newly marked, false if it was
// already processed. Uses SETNX for atomicity.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, reference string, ttl time.Duration) (bool, error) {
	result, err := s.client.SetNX(ctx, s.keyPrefix+reference, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark order reference as processed: %w", err)
	}
	return result, nil
}

// IsProcessed checks if an order reference has already been processed
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, reference string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.keyPrefix+reference).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check order reference: %w", err)
	}
	return exists > 0, nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

// Ensure RedisIdempotencyStore implements the idempotency port
var _ appdeduction.IdempotencyStore = (*RedisIdempotencyStore)(nil)
