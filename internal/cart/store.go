// Package cart holds the per-session shopping cart: an ordered list of lines
// guarded by a mutex, with best-effort background persistence.
package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/jerseyleague/shop-backend/pkg/metrics"
)

const defaultSaveTimeout = 3 * time.Second

// StoreOptions wires the ambient dependencies shared by every store.
type StoreOptions struct {
	Logger      *logger.Logger
	Metrics     *metrics.CartMetrics
	Backend     string
	SaveTimeout time.Duration
	Now         func() time.Time
}

func (o StoreOptions) withDefaults() StoreOptions {
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = defaultSaveTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Backend == "" {
		o.Backend = "unknown"
	}
	return o
}

// Store is the cart of one session. Mutations are synchronous and never fail;
// every mutation schedules a snapshot for the background writer.
type Store struct {
	mu     sync.Mutex
	items  []Item
	closed bool

	key       string
	persister Persister
	opts      StoreOptions

	pending    chan State
	done       chan struct{}
	lastAccess atomic.Int64
}

// View is an atomic read of the cart for responses.
type View struct {
	Items []Item          `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// NewStore creates a store for key and loads persisted state once. A missing
// blob yields an empty cart; any other load failure is logged and counted and
// the cart starts empty. A nil persister keeps the cart purely in memory.
func NewStore(ctx context.Context, key string, persister Persister, opts StoreOptions) *Store {
	opts = opts.withDefaults()
	s := &Store{
		items:     []Item{},
		key:       key,
		persister: persister,
		opts:      opts,
	}
	s.touch()

	if persister == nil {
		return s
	}

	if state, err := persister.Load(ctx, key); err == nil && state != nil {
		s.items = cloneItems(state.Items)
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		lctx := opts.Logger.WithFields(ctx, map[string]any{"cart_key": key, "backend": opts.Backend})
		opts.Logger.Error(lctx, "cart load failed, starting empty", err)
		opts.Metrics.IncPersistFailure(opts.Backend)
	}

	s.pending = make(chan State, 1)
	s.done = make(chan struct{})
	go s.writer()
	return s
}

// Key is the storage key the store persists under.
func (s *Store) Key() string { return s.key }

// AddItem merges item into the line with the same id, size and customization,
// adding quantities, or appends it as a new line. Quantity is not validated.
func (s *Store) AddItem(item Item) {
	s.mutate(func(items []Item) []Item { return mergeLine(items, item) })
}

// RemoveItem drops every line whose id and size match, whatever its customization.
func (s *Store) RemoveItem(id, size string) {
	s.mutate(func(items []Item) []Item {
		kept := items[:0]
		for _, item := range items {
			if !item.matches(id, size) {
				kept = append(kept, item)
			}
		}
		return kept
	})
}

// UpdateQuantity sets quantity on every line whose id and size match. Position
// and the other fields are kept.
func (s *Store) UpdateQuantity(id, size string, quantity int) {
	s.mutate(func(items []Item) []Item {
		for idx := range items {
			if items[idx].matches(id, size) {
				items[idx].Quantity = quantity
			}
		}
		return items
	})
}

// ClearCart empties the cart.
func (s *Store) ClearCart() {
	s.mutate(func([]Item) []Item { return []Item{} })
}

// Checkout empties the cart and returns what it held in one step. Concurrent
// checkouts of the same cart see its lines once; mutations made after the
// call stay in the cart.
func (s *Store) Checkout() View {
	var taken []Item
	s.mutate(func(items []Item) []Item {
		taken = items
		return []Item{}
	})
	return View{Items: taken, Total: total(taken), Count: count(taken)}
}

// Restore puts lines taken by Checkout back ahead of anything added since,
// merging lines that match.
func (s *Store) Restore(items []Item) {
	if len(items) == 0 {
		return
	}
	s.mutate(func(current []Item) []Item {
		merged := cloneItems(items)
		for _, item := range current {
			merged = mergeLine(merged, item)
		}
		return merged
	})
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return cloneItems(s.items)
}

// Total is Σ price × quantity in exact decimal arithmetic.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return total(s.items)
}

// Count is the sum of quantities.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return count(s.items)
}

// Snapshot returns the persisted form of the current cart.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Version: StateVersion, Items: cloneItems(s.items)}
}

// View returns items, total and count read under a single lock.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return View{Items: cloneItems(s.items), Total: total(s.items), Count: count(s.items)}
}

// LastAccess reports when the store was last read or written.
func (s *Store) LastAccess() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}

// Close flushes the pending snapshot and stops the writer. It waits for the
// final write or for ctx to end. Mutations after Close are saved inline.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.pending != nil {
		close(s.pending)
	}
	s.mu.Unlock()

	if s.done == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) mutate(fn func([]Item) []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = fn(s.items)
	s.touch()
	s.schedule(State{Version: StateVersion, Items: cloneItems(s.items)})
}

// schedule hands the snapshot to the writer, replacing any snapshot that has
// not been picked up yet. Callers hold s.mu, so snapshots are queued in
// mutation order and the newest one always wins.
func (s *Store) schedule(state State) {
	if s.pending == nil {
		return
	}
	if s.closed {
		// The writer is gone. Wait out its last save so this one lands after it.
		<-s.done
		s.save(state)
		return
	}
	for {
		select {
		case s.pending <- state:
			return
		default:
		}
		select {
		case <-s.pending:
		default:
		}
	}
}

func (s *Store) writer() {
	defer close(s.done)
	for state := range s.pending {
		s.save(state)
	}
}

func (s *Store) save(state State) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
	defer cancel()

	if err := s.persister.Save(ctx, s.key, state); err != nil {
		lctx := s.opts.Logger.WithFields(ctx, map[string]any{"cart_key": s.key, "backend": s.opts.Backend})
		s.opts.Logger.Error(lctx, "cart persist failed", err)
		s.opts.Metrics.IncPersistFailure(s.opts.Backend)
		return
	}
	s.opts.Metrics.IncPersistWrite(s.opts.Backend)
}

func (s *Store) touch() {
	s.lastAccess.Store(s.opts.Now().UnixNano())
}

func mergeLine(items []Item, item Item) []Item {
	for idx := range items {
		if items[idx].sameLine(item) {
			items[idx].Quantity += item.Quantity
			return items
		}
	}
	return append(items, item.clone())
}

func total(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

func count(items []Item) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}
