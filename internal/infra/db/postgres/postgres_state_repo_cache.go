package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/domain/ports/repository"
	"telegram-storefront-bot/internal/infra/metrics"
	red "telegram-storefront-bot/internal/infra/redis"
)

var _ repository.StateRepository = (*stateRepoCacheDecorator)(nil)

// stateRepoCacheDecorator keeps conversation state authoritative in Postgres
// and serves hot reads from Redis. Writes invalidate before hitting the
// database so a failed write never leaves a stale cache entry behind.
type stateRepoCacheDecorator struct {
	inner repository.StateRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewStateRepoCacheDecorator(inner repository.StateRepository, cache red.RedisClient, ttl time.Duration) repository.StateRepository {
	return &stateRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func stateKey(chatID int64) string {
	return fmt.Sprintf("conv_state:%d", chatID)
}

func (d *stateRepoCacheDecorator) Set(ctx context.Context, tx repository.Tx, s *model.ConversationState) error {
	_ = d.cache.Del(ctx, stateKey(s.ChatID))
	if err := d.inner.Set(ctx, tx, s); err != nil {
		return err
	}
	// Inside a transaction the row is not committed yet; leave the key
	// invalidated so readers fall through to the store.
	if tx == nil {
		if data, err := json.Marshal(s); err == nil {
			_ = d.cache.Set(ctx, stateKey(s.ChatID), data, d.ttl)
		}
	}
	return nil
}

func (d *stateRepoCacheDecorator) Get(ctx context.Context, tx repository.Tx, chatID int64) (*model.ConversationState, error) {
	// Transactional reads bypass the cache; they want row locks.
	if tx == nil {
		val, err := d.cache.Get(ctx, stateKey(chatID))
		if err == nil {
			var s model.ConversationState
			if json.Unmarshal([]byte(val), &s) == nil {
				metrics.IncCacheRequest("state", "hit")
				return &s, nil
			}
		}
		metrics.IncCacheRequest("state", "miss")
	}

	s, err := d.inner.Get(ctx, tx, chatID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		if data, err := json.Marshal(s); err == nil {
			_ = d.cache.Set(ctx, stateKey(chatID), data, d.ttl)
		}
	}
	return s, nil
}

func (d *stateRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, chatID int64) error {
	_ = d.cache.Del(ctx, stateKey(chatID))
	return d.inner.Delete(ctx, tx, chatID)
}

func (d *stateRepoCacheDecorator) ListStale(ctx context.Context, tx repository.Tx, maxAgeSeconds int64) ([]int64, error) {
	return d.inner.ListStale(ctx, tx, maxAgeSeconds)
}
