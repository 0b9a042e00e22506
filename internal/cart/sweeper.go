package cart

import (
	"context"
	"errors"
	"time"

	"github.com/jerseyleague/shop-backend/pkg/logger"
)

const (
	defaultSweepInterval = 5 * time.Minute
	defaultIdleEvict     = 30 * time.Minute
)

type idleEvictor interface {
	EvictIdle(ctx context.Context, idle time.Duration) (int, error)
}

// Sweeper periodically flushes and drops carts nobody has touched for a while,
// bounding the in-memory registry. Evicted carts reload from the persister on
// their next request.
type Sweeper struct {
	registry idleEvictor
	logg     *logger.Logger
	interval time.Duration
	idle     time.Duration
}

func NewSweeper(registry idleEvictor, interval, idle time.Duration, logg *logger.Logger) (*Sweeper, error) {
	if registry == nil {
		return nil, errors.New("cart registry is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if idle <= 0 {
		idle = defaultIdleEvict
	}
	return &Sweeper{registry: registry, logg: logg, interval: interval, idle: idle}, nil
}

// Run sweeps until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	evicted, err := s.registry.EvictIdle(ctx, s.idle)
	if err != nil {
		s.logg.Error(ctx, "cart sweep flush failed", err)
	}
	if evicted > 0 {
		s.logg.Debug(s.logg.WithField(ctx, "evicted", evicted), "idle carts evicted")
	}
}
