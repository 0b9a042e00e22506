package cart

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/jerseyleague/shop-backend/pkg/redis"
)

type redisStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	NamespacedKey(key string) string
}

// RedisPersister stores carts as JSON strings. Each save refreshes the TTL so
// active carts do not expire.
type RedisPersister struct {
	store redisStore
	ttl   time.Duration
}

func NewRedisPersister(store redisStore, ttl time.Duration) (*RedisPersister, error) {
	if store == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisPersister{store: store, ttl: ttl}, nil
}

func (p *RedisPersister) Load(ctx context.Context, key string) (*State, error) {
	raw, err := p.store.Get(ctx, p.store.NamespacedKey(key))
	if err != nil {
		if redisclient.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}
	return DecodeState([]byte(raw))
}

func (p *RedisPersister) Save(ctx context.Context, key string, state State) error {
	raw, err := EncodeState(state)
	if err != nil {
		return err
	}
	if err := p.store.Set(ctx, p.store.NamespacedKey(key), string(raw), p.ttl); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}
