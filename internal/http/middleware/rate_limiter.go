package middleware

import (
	"admin-service/internal/auth"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const msgTooManyAttempts = "too many requests, slow down"

// RateLimiter implements token bucket throttling per caller. It runs after
// the admission gate and guards endpoints that are expensive to hit.
type RateLimiter struct {
	limiters sync.Map // key -> *rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter refilling requestsPerSecond tokens up to burst.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

// NewLoginRateLimiter allows one login attempt per second with a burst of five.
func NewLoginRateLimiter() *RateLimiter {
	return NewRateLimiter(1, 5)
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	limiter, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return limiter.(*rate.Limiter)
}

// Allow checks if a request should be allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware throttles by verified principal when one is attached, else by IP.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := rl.getLimiter(callerKey(c))
			limit := strconv.Itoa(rl.burst)

			if !limiter.Allow() {
				c.Response().Header().Set("X-RateLimit-Limit", limit)
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				c.Response().Header().Set("Retry-After", "1")

				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": msgTooManyAttempts,
				})
			}

			c.Response().Header().Set("X-RateLimit-Limit", limit)
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))

			return next(c)
		}
	}
}

func callerKey(c echo.Context) string {
	s, err := auth.GetSubject(c)
	if err != nil {
		return "ip:" + c.RealIP()
	}
	if s.IsAccessKey() {
		return "accesstoken:" + s.AccessTokenID.String()
	}
	return "principal:" + s.Principal.ID.String()
}
