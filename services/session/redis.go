package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NikFin25/deanery-bot/utils/cache"
)

// RedisStore keeps form accumulators in Redis with a TTL, so abandoned forms
// expire on their own and sessions survive process restarts.
type RedisStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed store with the given TTL (DefaultTTL if 0).
func NewRedisStore(c *cache.RedisCache, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{cache: c, ttl: ttl}
}

func sessionKey(telegramID int64) string {
	return fmt.Sprintf("form_session:%d", telegramID)
}

func (r *RedisStore) Get(ctx context.Context, telegramID int64) (*Form, error) {
	var form Form
	err := r.cache.GetJSON(ctx, sessionKey(telegramID), &form)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load form session: %w", err)
	}
	return &form, nil
}

func (r *RedisStore) Put(ctx context.Context, telegramID int64, form *Form) error {
	if err := r.cache.SetJSON(ctx, sessionKey(telegramID), form, r.ttl); err != nil {
		return fmt.Errorf("failed to store form session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, telegramID int64) error {
	if err := r.cache.Delete(ctx, sessionKey(telegramID)); err != nil {
		return fmt.Errorf("failed to clear form session: %w", err)
	}
	return nil
}
