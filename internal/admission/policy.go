package admission

import (
	"context"
	"net/http"
	"strconv"
	"time"

	apperrors "admin-service/pkg/errors"
	"admin-service/pkg/logger"
	"admin-service/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

const (
	DefaultCeiling = 300

	msgRateLimitExceeded = "Request rate limit exceeded"

	headerLimit      = "X-RateLimit-Limit"
	headerRemaining  = "X-RateLimit-Remaining"
	headerReset      = "X-RateLimit-Reset"
	headerRetryAfter = "Retry-After"

	storeTimeout = 500 * time.Millisecond
)

// Decision is the outcome of checking one hit against the ceiling.
type Decision struct {
	Allowed   bool
	Limit     int64
	Count     int64
	Remaining int64
	ResetAt   time.Time
}

// Policy enforces a ceiling on top of a counting Store. It satisfies echo's
// RateLimiterStore so it can sit behind middleware.RateLimiterWithConfig.
type Policy struct {
	store   Store
	ceiling int64
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPolicy(store Store, ceiling int64, log logger.Logger, m *metrics.Metrics) *Policy {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Policy{
		store:   store,
		ceiling: ceiling,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Check counts one hit for key and compares it to the ceiling.
func (p *Policy) Check(ctx context.Context, key string) (Decision, error) {
	res, err := p.store.Incr(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return p.decide(res), nil
}

func (p *Policy) decide(res Result) Decision {
	remaining := p.ceiling - res.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   res.Count <= p.ceiling,
		Limit:     p.ceiling,
		Count:     res.Count,
		Remaining: remaining,
		ResetAt:   res.ResetAt,
	}
}

// Allow implements echomiddleware.RateLimiterStore. A store that cannot be
// reached lets the request through.
func (p *Policy) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	d, err := p.Check(ctx, identifier)
	if err != nil {
		p.log.Warn(ctx, "admission store failed, allowing request", "ip", identifier, "error", err)
		p.metrics.ObserveAdmission(true)
		return true, nil
	}

	p.metrics.ObserveAdmission(d.Allowed)
	if !d.Allowed {
		return false, apperrors.ErrRateLimitExceeded
	}
	return true, nil
}

// Middleware mounts the policy on echo keyed by the caller IP.
func (p *Policy) Middleware(skipper echomiddleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = echomiddleware.DefaultSkipper
	}
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Skipper: skipper,
		Store:   p,
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify caller").SetInternal(err)
		},
		DenyHandler: p.deny,
	})
}

func (p *Policy) deny(c echo.Context, identifier string, err error) error {
	ctx := c.Request().Context()
	p.log.Warn(ctx, "request rate limit exceeded, blocking request", "ip", identifier)

	h := c.Response().Header()
	h.Set(headerLimit, strconv.FormatInt(p.ceiling, 10))
	h.Set(headerRemaining, "0")

	if current, peekErr := p.store.Peek(ctx, identifier); peekErr == nil && !current.ResetAt.IsZero() {
		h.Set(headerReset, strconv.FormatInt(current.ResetAt.Unix(), 10))

		retry := int64(current.ResetAt.Sub(p.now()).Seconds())
		if retry < 1 {
			retry = 1
		}
		h.Set(headerRetryAfter, strconv.FormatInt(retry, 10))
	}

	if err == nil {
		err = apperrors.ErrRateLimitExceeded
	}
	return echo.NewHTTPError(http.StatusTooManyRequests, msgRateLimitExceeded).SetInternal(err)
}
