// Package admission counts requests per source key inside a fixed window and
// turns those counts into an allow/deny decision before any authentication
// work happens.
package admission

import (
	"context"
	"sync"
	"time"
)

const DefaultWindow = 5 * time.Minute

// Result is what a counting store reports for one hit.
type Result struct {
	Count   int64
	ResetAt time.Time
}

// Store counts hits per key. Gate is the in-process implementation and
// RedisStore the shared one.
type Store interface {
	Incr(ctx context.Context, key string) (Result, error)
	Peek(ctx context.Context, key string) (Result, error)
	Decrement(ctx context.Context, key string) error
	ResetKey(ctx context.Context, key string) error
	ResetAll(ctx context.Context) error
}

// Gate is an in-memory hit counter whose entries are all cleared together on
// every tick of the window. It never rejects anything itself.
type Gate struct {
	mu      sync.Mutex
	hits    map[string]int64
	resetAt time.Time

	window time.Duration
	now    func() time.Time

	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

type GateOption func(*Gate)

// WithClock replaces the clock used to compute resetAt.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = now
	}
}

// NewGate starts the reset ticker; call Close to stop it.
func NewGate(window time.Duration, opts ...GateOption) *Gate {
	if window <= 0 {
		window = DefaultWindow
	}

	g := &Gate{
		hits:   make(map[string]int64),
		window: window,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.resetAt = g.now().Add(window)

	g.ticker = time.NewTicker(window)
	go g.run()

	return g
}

func (g *Gate) run() {
	for {
		select {
		case <-g.ticker.C:
			g.ResetAll()
		case <-g.done:
			return
		}
	}
}

// Close stops the reset ticker. Counting keeps working afterwards, it just
// never resets on its own again.
func (g *Gate) Close() {
	g.once.Do(func() {
		g.ticker.Stop()
		close(g.done)
	})
}

func (g *Gate) Window() time.Duration {
	return g.window
}

// Admit counts one hit for key.
func (g *Gate) Admit(key string) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.hits[key]++
	return Result{Count: g.hits[key], ResetAt: g.resetAt}
}

// Decrement undoes one counted hit. Keys at zero stay at zero.
func (g *Gate) Decrement(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hits[key] > 0 {
		g.hits[key]--
	}
}

// ResetAll clears every key and starts a new window.
func (g *Gate) ResetAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.hits = make(map[string]int64)
	g.resetAt = g.now().Add(g.window)
}

func (g *Gate) ResetKey(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.hits, key)
}

// Hits returns the current count for key without counting.
func (g *Gate) Hits(key string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.hits[key]
}

func (g *Gate) ResetAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.resetAt
}

// Store adapts the gate to the Store interface.
func (g *Gate) Store() Store {
	return gateStore{g: g}
}

type gateStore struct {
	g *Gate
}

func (s gateStore) Incr(_ context.Context, key string) (Result, error) {
	return s.g.Admit(key), nil
}

func (s gateStore) Peek(_ context.Context, key string) (Result, error) {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()

	return Result{Count: s.g.hits[key], ResetAt: s.g.resetAt}, nil
}

func (s gateStore) Decrement(_ context.Context, key string) error {
	s.g.Decrement(key)
	return nil
}

func (s gateStore) ResetKey(_ context.Context, key string) error {
	s.g.ResetKey(key)
	return nil
}

func (s gateStore) ResetAll(_ context.Context) error {
	s.g.ResetAll()
	return nil
}
