package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "talentboard:idempotency:"

// RedisStore implements Store on Redis so replays work across replicas.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Begin implements Store with SET NX.
func (s *RedisStore) Begin(ctx context.Context, rec *Record, ttl time.Duration) (*Record, error) {
	if err := ValidateKey(rec.Key); err != nil {
		return nil, err
	}

	reserved := copyRecord(rec)
	reserved.Status = StatusProcessing
	if reserved.CreatedAt.IsZero() {
		reserved.CreatedAt = time.Now()
	}
	data, err := json.Marshal(reserved)
	if err != nil {
		return nil, fmt.Errorf("failed to encode idempotency record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, redisKeyPrefix+rec.Key, data, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	existing, err := s.get(ctx, rec.Key)
	if errors.Is(err, ErrKeyNotFound) {
		// Expired between SETNX and GET; treat as still taken.
		return reserved, nil
	}
	return existing, err
}

// Complete implements Store.
func (s *RedisStore) Complete(ctx context.Context, rec *Record, ttl time.Duration) error {
	completed := copyRecord(rec)
	completed.Status = StatusCompleted
	data, err := json.Marshal(completed)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+rec.Key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}

// Release implements Store.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string) (*Record, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load idempotency record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	return &rec, nil
}
