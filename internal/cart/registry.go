package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
)

// ErrRegistryClosed is returned by Get once shutdown has started.
var ErrRegistryClosed = errors.New("cart registry closed")

type registryEntry struct {
	key   string
	once  sync.Once
	store atomic.Pointer[Store]
}

// Registry owns every session store. Stores are created lazily, load their
// persisted state exactly once and live until evicted or the registry closes.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	// closing holds sessions whose evicted store is still flushing. Get waits
	// for the flush so the next load sees the final snapshot.
	closing   map[string]chan struct{}
	persister Persister
	opts      StoreOptions
	closed    bool
}

func NewRegistry(persister Persister, opts StoreOptions) *Registry {
	return &Registry{
		entries:   make(map[string]*registryEntry),
		closing:   make(map[string]chan struct{}),
		persister: persister,
		opts:      opts.withDefaults(),
	}
}

// Get returns the store for sessionID, creating and loading it on first access.
// The store is marked as accessed before it is returned, so an idle sweep
// cannot retire it between Get and the caller's mutation.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Store, error) {
	key := SessionKey(sessionID)
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrRegistryClosed
		}
		if flushing, ok := r.closing[key]; ok {
			r.mu.Unlock()
			select {
			case <-flushing:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		entry, ok := r.entries[key]
		if !ok {
			entry = &registryEntry{key: key}
			r.entries[key] = entry
		}
		r.mu.Unlock()

		store := r.load(ctx, entry)

		r.mu.Lock()
		live := r.entries[key] == entry
		if live {
			store.touch()
		}
		r.mu.Unlock()
		if live {
			return store, nil
		}
		// Evicted while loading; wait for its flush and start over.
	}
}

func (r *Registry) load(ctx context.Context, entry *registryEntry) *Store {
	entry.once.Do(func() {
		entry.store.Store(NewStore(ctx, entry.key, r.persister, r.opts))
	})
	return entry.store.Load()
}

// Evict flushes and drops the store of one session.
func (r *Registry) Evict(ctx context.Context, sessionID string) error {
	key := SessionKey(sessionID)
	r.mu.Lock()
	entry, ok := r.entries[key]
	if ok {
		r.retire(entry)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return r.flush(ctx, entry)
}

// EvictIdle drops stores not accessed since now - idle and returns how many
// were evicted.
func (r *Registry) EvictIdle(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := r.opts.Now().Add(-idle)

	r.mu.Lock()
	var stale []*registryEntry
	for _, entry := range r.entries {
		store := entry.store.Load()
		if store == nil {
			continue
		}
		if store.LastAccess().Before(cutoff) {
			stale = append(stale, entry)
		}
	}
	for _, entry := range stale {
		r.retire(entry)
	}
	r.mu.Unlock()

	var err error
	for _, entry := range stale {
		err = multierr.Append(err, r.flush(ctx, entry))
	}
	return len(stale), err
}

// Len reports how many sessions are cached.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close flushes every store and stops their writers. Later Gets fail with
// ErrRegistryClosed.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	var err error
	for _, entry := range entries {
		err = multierr.Append(err, r.closeEntry(ctx, entry))
	}
	return err
}

// retire unlinks entry and marks its session as flushing. Callers hold r.mu.
func (r *Registry) retire(entry *registryEntry) {
	delete(r.entries, entry.key)
	r.closing[entry.key] = make(chan struct{})
}

func (r *Registry) flush(ctx context.Context, entry *registryEntry) error {
	err := r.closeEntry(ctx, entry)

	r.mu.Lock()
	if flushing, ok := r.closing[entry.key]; ok {
		close(flushing)
		delete(r.closing, entry.key)
	}
	r.mu.Unlock()
	return err
}

// closeEntry goes through load so a Get racing with eviction never observes a
// half-initialized entry.
func (r *Registry) closeEntry(ctx context.Context, entry *registryEntry) error {
	return r.load(ctx, entry).Close(ctx)
}
