package admission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "admission:"

var ErrStoreUnavailable = errors.New("admission store unavailable")

// RedisStore shares counts between replicas. Windows are aligned to the
// epoch, so every key rolls over at the same instant just like Gate.
type RedisStore struct {
	redis  *redis.Client
	prefix string
	window time.Duration
	now    func() time.Time
}

type RedisOption func(*RedisStore)

func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		s.now = now
	}
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

func NewRedisStore(client *redis.Client, window time.Duration, opts ...RedisOption) *RedisStore {
	if window <= 0 {
		window = DefaultWindow
	}
	s := &RedisStore{
		redis:  client,
		prefix: defaultRedisPrefix,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// bucket returns the key for the current window and the moment it ends.
func (s *RedisStore) bucket(key string) (string, time.Time) {
	n := s.now().UnixNano() / int64(s.window)
	resetAt := time.Unix(0, (n+1)*int64(s.window))
	return s.prefix + strconv.FormatInt(n, 10) + ":" + key, resetAt
}

func (s *RedisStore) Incr(ctx context.Context, key string) (Result, error) {
	k, resetAt := s.bucket(key)

	count, err := s.redis.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count == 1 {
		// one extra window so a slow clock on another replica still sees it
		if err := s.redis.Expire(ctx, k, 2*s.window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return Result{Count: count, ResetAt: resetAt}, nil
}

func (s *RedisStore) Peek(ctx context.Context, key string) (Result, error) {
	k, resetAt := s.bucket(key)

	count, err := s.redis.Get(ctx, k).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Result{ResetAt: resetAt}, nil
		}
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return Result{Count: count, ResetAt: resetAt}, nil
}

func (s *RedisStore) Decrement(ctx context.Context, key string) error {
	current, err := s.Peek(ctx, key)
	if err != nil {
		return err
	}
	if current.Count <= 0 {
		return nil
	}

	k, _ := s.bucket(key)
	if err := s.redis.Decr(ctx, k).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) ResetKey(ctx context.Context, key string) error {
	k, _ := s.bucket(key)
	if err := s.redis.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ResetAll drops every counter under the store prefix.
func (s *RedisStore) ResetAll(ctx context.Context) error {
	iter := s.redis.Scan(ctx, 0, s.prefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
