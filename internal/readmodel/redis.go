package readmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "account_state:"

// RedisStore keeps read model records as JSON values in Redis. Records have
// no TTL: they are a projection kept in lock-step with the event log, not an
// expiring cache, and losing one only costs a replay.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed read model store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get fetches the record for the account.
func (s *RedisStore) Get(ctx context.Context, accountID string) (Record, error) {
	payload, err := s.client.Get(ctx, keyPrefix+accountID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("read model get: %w", err)
	}

	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return Record{}, fmt.Errorf("decode read model record: %w", err)
	}
	return record, nil
}

// Put overwrites the record for the account.
func (s *RedisStore) Put(ctx context.Context, record Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode read model record: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+record.AccountID, payload, 0).Err(); err != nil {
		return fmt.Errorf("read model put: %w", err)
	}
	return nil
}
