package admission

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func TestRedisStore_IncrWithinWindow(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)

	now := time.Unix(1_700_000_010, 0)
	s := NewRedisStore(rdb, time.Minute, WithRedisClock(func() time.Time { return now }))

	first, err := s.Incr(ctx, "1.2.3.4")
	require.NoError(t, err)
	second, err := s.Incr(ctx, "1.2.3.4")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Count)
	assert.Equal(t, int64(2), second.Count)
	assert.Equal(t, time.Unix(1_700_000_040, 0), second.ResetAt)

	k, _ := s.bucket("1.2.3.4")
	assert.Equal(t, 2*time.Minute, mr.TTL(k))
}

func TestRedisStore_NewWindowStartsFromZero(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)

	now := time.Unix(1_700_000_010, 0)
	s := NewRedisStore(rdb, time.Minute, WithRedisClock(func() time.Time { return now }))

	_, err := s.Incr(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	res, err := s.Incr(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count)
}

func TestRedisStore_PeekMissingKey(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStore(rdb, time.Minute)

	res, err := s.Peek(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Count)
	assert.False(t, res.ResetAt.IsZero())
}

func TestRedisStore_Maintenance(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	s := NewRedisStore(rdb, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := s.Incr(ctx, "a")
		require.NoError(t, err)
	}
	_, err := s.Incr(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, s.Decrement(ctx, "a"))
	res, err := s.Peek(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Count)

	require.NoError(t, s.Decrement(ctx, "missing"))
	res, err = s.Peek(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Count)

	require.NoError(t, s.ResetKey(ctx, "a"))
	res, err = s.Peek(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Count)

	require.NoError(t, s.ResetAll(ctx))
	res, err = s.Peek(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Count)
}

func TestRedisStore_ResetAllLeavesForeignKeys(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb, time.Minute)

	require.NoError(t, mr.Set("session:abc", "1"))
	_, err := s.Incr(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, s.ResetAll(ctx))
	assert.True(t, mr.Exists("session:abc"))
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb, time.Minute)
	mr.Close()

	_, err := s.Incr(context.Background(), "k")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
