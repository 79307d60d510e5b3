package admission

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	apperrors "admin-service/pkg/errors"
	"admin-service/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPolicyServer(p *Policy) *echo.Echo {
	e := echo.New()
	e.Use(p.Middleware(nil))
	e.GET("/api/v1/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	return e
}

func hit(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPolicy_CeilingThenWindowReset(t *testing.T) {
	g := NewGate(100 * time.Millisecond)
	defer g.Close()
	e := newPolicyServer(NewPolicy(g.Store(), 2, nil, nil))

	assert.Equal(t, http.StatusOK, hit(e, "1.2.3.4").Code)
	time.Sleep(time.Millisecond)
	assert.Equal(t, http.StatusOK, hit(e, "1.2.3.4").Code)
	time.Sleep(time.Millisecond)

	rec := hit(e, "1.2.3.4")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), msgRateLimitExceeded)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, http.StatusOK, hit(e, "1.2.3.4").Code)
}

func TestPolicy_KeysAreIndependent(t *testing.T) {
	g := NewGate(time.Hour)
	defer g.Close()
	e := newPolicyServer(NewPolicy(g.Store(), 1, nil, nil))

	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.2").Code)
}

func TestPolicy_DenyHeaders(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate(time.Minute, WithClock(func() time.Time { return now }))
	defer g.Close()

	p := NewPolicy(g.Store(), 1, nil, nil)
	p.now = func() time.Time { return now }
	e := newPolicyServer(p)

	rec := hit(e, "1.2.3.4")
	assert.Empty(t, rec.Header().Get(headerLimit))

	rec = hit(e, "1.2.3.4")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(headerLimit))
	assert.Equal(t, "0", rec.Header().Get(headerRemaining))
	assert.Equal(t, strconv.FormatInt(now.Add(time.Minute).Unix(), 10), rec.Header().Get(headerReset))
	assert.Equal(t, "60", rec.Header().Get(headerRetryAfter))
}

func TestPolicy_CheckReportsCountAndReset(t *testing.T) {
	g := NewGate(time.Hour)
	defer g.Close()
	p := NewPolicy(g.Store(), 2, nil, nil)

	var d Decision
	var err error
	for i := 0; i < 3; i++ {
		d, err = p.Check(context.Background(), "k")
		require.NoError(t, err)
	}

	assert.False(t, d.Allowed)
	assert.Equal(t, int64(3), d.Count)
	assert.Equal(t, int64(0), d.Remaining)
	assert.Equal(t, g.ResetAt(), d.ResetAt)
}

type failingStore struct{ Store }

func (failingStore) Incr(context.Context, string) (Result, error) {
	return Result{}, errors.New("connection refused")
}

func TestPolicy_StoreFailureFailsOpen(t *testing.T) {
	m := metrics.New()
	p := NewPolicy(failingStore{}, 1, nil, m)

	allowed, err := p.Allow("1.2.3.4")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestPolicy_AllowRecordsMetrics(t *testing.T) {
	g := NewGate(time.Hour)
	defer g.Close()
	m := metrics.New()
	p := NewPolicy(g.Store(), 1, nil, m)

	allowed, err := p.Allow("k")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = p.Allow("k")
	assert.False(t, allowed)
	assert.ErrorIs(t, err, apperrors.ErrRateLimitExceeded)

	count, err := testutil.GatherAndCount(m.Registry(), "admission_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPolicy_RedisBackend(t *testing.T) {
	_, rdb := newTestRedis(t)
	now := time.Unix(1_700_000_010, 0)
	store := NewRedisStore(rdb, time.Minute, WithRedisClock(func() time.Time { return now }))
	e := newPolicyServer(NewPolicy(store, 2, nil, nil))

	assert.Equal(t, http.StatusOK, hit(e, "1.2.3.4").Code)
	assert.Equal(t, http.StatusOK, hit(e, "1.2.3.4").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(e, "1.2.3.4").Code)
}
