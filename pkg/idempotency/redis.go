package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/quizfunnel-backend/pkg/redis"
)

// RedisSet stores claims as SETNX keys. A zero ttl sets no expiry.
type RedisSet struct {
	store redis.IdempotencyStore
	scope string
	ttl   time.Duration
}

func NewRedisSet(store redis.IdempotencyStore, scope string, ttl time.Duration) (*RedisSet, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	scope, err := normalizeScope(scope)
	if err != nil {
		return nil, err
	}
	return &RedisSet{store: store, scope: scope, ttl: ttl}, nil
}

func (s *RedisSet) Contains(ctx context.Context, id string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	ok, err := s.store.Exists(ctx, s.store.IdempotencyKey(s.scope, id))
	if err != nil {
		return false, fmt.Errorf("check idempotency key: %w", err)
	}
	return ok, nil
}

func (s *RedisSet) Claim(ctx context.Context, id string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	set, err := s.store.SetNX(ctx, s.store.IdempotencyKey(s.scope, id), time.Now().UTC().Format(time.RFC3339), s.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return set, nil
}

func (s *RedisSet) Release(ctx context.Context, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	if err := s.store.Del(ctx, s.store.IdempotencyKey(s.scope, id)); err != nil {
		return fmt.Errorf("delete idempotency key: %w", err)
	}
	return nil
}
