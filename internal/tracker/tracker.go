package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"dividend_tracker/internal/metrics"
	"dividend_tracker/internal/models"
	"dividend_tracker/internal/quotes"
	"dividend_tracker/internal/storage"

	"go.uber.org/zap"
)

// DefaultStoreKey is the store slot holding the serialized portfolio.
const DefaultStoreKey = "stocks"

var (
	ErrEmptySymbol            = errors.New("symbol is empty")
	ErrDuplicateSymbol        = errors.New("stock already added")
	ErrQuoteUnavailable       = errors.New("could not fetch dividend data")
	ErrIndexOutOfRange        = errors.New("position index out of range")
	ErrMalformedPersistedData = errors.New("persisted portfolio is malformed")
)

// Listener receives a copy of the portfolio after every successful mutation.
type Listener func(positions []models.Position)

// Tracker owns the authoritative, ordered list of positions.
//
// Mutations happen under mu and end with a full persistence sync. The quote fetch
// in AddPosition runs outside the lock; the symbol is reserved meanwhile so two
// concurrent adds of the same ticker cannot both append.
type Tracker struct {
	fetcher  quotes.Fetcher
	store    storage.Store
	storeKey string
	timeout  time.Duration
	metrics  *metrics.Recorder
	log      *zap.SugaredLogger

	mu        sync.RWMutex
	positions []models.Position
	reserved  map[string]bool

	seq uint64 // bumped under mu by every committed mutation

	listenersMu sync.Mutex
	listeners   map[int]*subscriber
	nextID      int
}

// subscriber remembers the last snapshot it was handed so that a snapshot
// overtaken by a newer one is dropped instead of delivered late.
type subscriber struct {
	mu   sync.Mutex
	last uint64
	fn   Listener
}

func (s *subscriber) deliver(seq uint64, snapshot []models.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.last {
		return
	}
	s.last = seq
	s.fn(copyPositions(snapshot))
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStoreKey overrides the store slot name.
func WithStoreKey(key string) Option {
	return func(t *Tracker) { t.storeKey = key }
}

// WithFetchTimeout bounds every quote fetch. Zero means no extra deadline.
func WithFetchTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.timeout = d }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(t *Tracker) { t.metrics = r }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(t *Tracker) { t.log = l }
}

// New returns an empty tracker. Call Initialize to restore the persisted portfolio.
func New(fetcher quotes.Fetcher, store storage.Store, opts ...Option) *Tracker {
	t := &Tracker{
		fetcher:   fetcher,
		store:     store,
		storeKey:  DefaultStoreKey,
		log:       zap.S(),
		positions: []models.Position{},
		reserved:  make(map[string]bool),
		listeners: make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Positions returns a copy of the live sequence in display order.
func (t *Tracker) Positions() []models.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// Len returns the number of tracked positions.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.positions)
}

// Subscribe registers l for post-mutation snapshots. The returned func unregisters it.
// A listener never sees an older portfolio after a newer one; l is called
// synchronously, one snapshot at a time.
func (t *Tracker) Subscribe(l Listener) (cancel func()) {
	t.listenersMu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = &subscriber{fn: l}
	t.listenersMu.Unlock()

	return func() {
		t.listenersMu.Lock()
		delete(t.listeners, id)
		t.listenersMu.Unlock()
	}
}

// commitAndUnlock persists the sequence, releases mu and delivers the new
// snapshot. Must be called with mu held.
func (t *Tracker) commitAndUnlock(ctx context.Context) {
	t.syncLocked(ctx)
	t.seq++
	seq := t.seq
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(seq, snapshot)
}

func (t *Tracker) notify(seq uint64, snapshot []models.Position) {
	t.listenersMu.Lock()
	subs := make([]*subscriber, 0, len(t.listeners))
	for _, s := range t.listeners {
		subs = append(subs, s)
	}
	t.listenersMu.Unlock()

	for _, s := range subs {
		s.deliver(seq, snapshot)
	}
}

func (t *Tracker) snapshotLocked() []models.Position {
	return copyPositions(t.positions)
}

// copyPositions deep-copies the slice including the optional fields.
func copyPositions(in []models.Position) []models.Position {
	out := make([]models.Position, len(in))
	for i, p := range in {
		out[i] = p
		out[i].DividendYield = copyFloat(p.DividendYield)
		out[i].DividendRate = copyFloat(p.DividendRate)
		out[i].ForwardEps = copyFloat(p.ForwardEps)
	}
	return out
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// result maps an operation error to its metric label.
func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptySymbol):
		return "empty_symbol"
	case errors.Is(err, ErrDuplicateSymbol):
		return "duplicate_symbol"
	case errors.Is(err, ErrQuoteUnavailable):
		return "quote_unavailable"
	case errors.Is(err, ErrIndexOutOfRange):
		return "index_out_of_range"
	default:
		return "error"
	}
}

func (t *Tracker) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}
