package admission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_AdmitCounts(t *testing.T) {
	g := NewGate(time.Hour)
	defer g.Close()

	assert.Equal(t, int64(1), g.Admit("1.2.3.4").Count)
	assert.Equal(t, int64(2), g.Admit("1.2.3.4").Count)
	assert.Equal(t, int64(1), g.Admit("5.6.7.8").Count)
	assert.Equal(t, int64(2), g.Hits("1.2.3.4"))
	assert.Equal(t, int64(0), g.Hits("9.9.9.9"))
}

func TestGate_ResetAtSharedAcrossKeys(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGate(time.Minute, WithClock(func() time.Time { return start }))
	defer g.Close()

	a := g.Admit("a")
	b := g.Admit("b")

	assert.Equal(t, start.Add(time.Minute), a.ResetAt)
	assert.Equal(t, a.ResetAt, b.ResetAt)
}

func TestGate_Maintenance(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGate(time.Hour, WithClock(func() time.Time { return now }))
	defer g.Close()

	g.Admit("a")
	g.Admit("a")
	g.Admit("b")

	g.Decrement("a")
	assert.Equal(t, int64(1), g.Hits("a"))

	g.Decrement("missing")
	assert.Equal(t, int64(0), g.Hits("missing"))

	g.ResetKey("a")
	assert.Equal(t, int64(0), g.Hits("a"))
	assert.Equal(t, int64(1), g.Hits("b"))

	now = now.Add(10 * time.Minute)
	g.ResetAll()
	assert.Equal(t, int64(0), g.Hits("b"))
	assert.Equal(t, now.Add(time.Hour), g.ResetAt())
}

func TestGate_TickerClearsAllKeys(t *testing.T) {
	g := NewGate(50 * time.Millisecond)
	defer g.Close()

	g.Admit("a")
	g.Admit("b")

	require.Eventually(t, func() bool {
		return g.Hits("a") == 0 && g.Hits("b") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestGate_CloseIsIdempotent(t *testing.T) {
	g := NewGate(time.Minute)

	g.Close()
	assert.NotPanics(t, g.Close)
	assert.Equal(t, int64(1), g.Admit("a").Count)
}

func TestGate_ConcurrentAdmit(t *testing.T) {
	g := NewGate(time.Hour)
	defer g.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Admit("k")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), g.Hits("k"))
}

func TestGateStore(t *testing.T) {
	ctx := context.Background()
	g := NewGate(time.Hour)
	defer g.Close()
	s := g.Store()

	res, err := s.Incr(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count)

	peek, err := s.Peek(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), peek.Count)

	require.NoError(t, s.Decrement(ctx, "k"))
	assert.Equal(t, int64(0), g.Hits("k"))

	_, _ = s.Incr(ctx, "k")
	require.NoError(t, s.ResetKey(ctx, "k"))
	assert.Equal(t, int64(0), g.Hits("k"))

	_, _ = s.Incr(ctx, "k")
	require.NoError(t, s.ResetAll(ctx))
	assert.Equal(t, int64(0), g.Hits("k"))
}
