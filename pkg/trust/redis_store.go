package trust

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "finshield:trust:"

// maxTxRetries bounds the optimistic-locking retry loop under write
// contention on the same user.
const maxTxRetries = 16

// RedisStore persists trust states as JSON values in Redis. Per-user
// serialization uses WATCH-based optimistic locking, so concurrent updates
// to the same user retry rather than clobber each other.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, userID string, apply func(UserTrustState) UserTrustState) (UserTrustState, error) {
	key := redisKey(userID)

	var committed UserTrustState
	txn := func(tx *redis.Tx) error {
		state, err := s.load(ctx, tx, userID)
		if err != nil {
			return err
		}

		next := apply(state)
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding trust state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}
		committed = next
		return nil
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return committed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return UserTrustState{}, fmt.Errorf("updating trust state for %q: %w", userID, err)
	}
	return UserTrustState{}, fmt.Errorf("updating trust state for %q: contention retries exhausted", userID)
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, userID string) (UserTrustState, error) {
	return s.load(ctx, s.client, userID)
}

func (s *RedisStore) load(ctx context.Context, c redis.Cmdable, userID string) (UserTrustState, error) {
	raw, err := c.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewUserTrustState(userID), nil
	}
	if err != nil {
		return UserTrustState{}, fmt.Errorf("loading trust state for %q: %w", userID, err)
	}

	var state UserTrustState
	if err := json.Unmarshal(raw, &state); err != nil {
		return UserTrustState{}, fmt.Errorf("decoding trust state for %q: %w", userID, err)
	}
	return state, nil
}
