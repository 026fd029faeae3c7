package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("calendar date lock not acquired")
)

// Locker serialises check-then-write sections on a single calendar date.
type Locker interface {
	WithDateLock(ctx context.Context, date string, fn func(ctx context.Context) error) error
}

// LockOptions tune how hard a locker tries before giving up.
type LockOptions struct {
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

type redisDateLocker struct {
	client *redis.Client
	opts   LockOptions
}

// NewRedisDateLocker creates a locker that uses a per date Redis key
func NewRedisDateLocker(client *redis.Client, opts LockOptions) Locker {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &redisDateLocker{
		client: client,
		opts:   opts,
	}
}

func lockKey(date string) string {
	return fmt.Sprintf("lock:calendar:%s", date)
}

func (l *redisDateLocker) WithDateLock(ctx context.Context, date string, fn func(ctx context.Context) error) error {
	key := lockKey(date)
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}

	defer func() {
		// The caller's ctx may already be done; release must still run.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = l.release(releaseCtx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.opts.TTL)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *redisDateLocker) acquire(ctx context.Context, key, token string) error {
	for attempt := 0; ; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return fmt.Errorf("acquire date lock: %w", err)
		}
		if ok {
			return nil
		}
		if attempt >= l.opts.Retries {
			return ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.opts.RetryDelay):
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisDateLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release date lock: %w", err)
	}
	return nil
}

// LocalDateLocker is an in-process Locker for single-node runs and tests.
// Waiting for a date gives up when ctx is done.
type LocalDateLocker struct {
	mu    sync.Mutex
	dates map[string]chan struct{}
}

func NewLocalDateLocker() *LocalDateLocker {
	return &LocalDateLocker{dates: make(map[string]chan struct{})}
}

func (l *LocalDateLocker) WithDateLock(ctx context.Context, date string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	sem, ok := l.dates[date]
	if !ok {
		sem = make(chan struct{}, 1)
		l.dates[date] = sem
	}
	l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-sem }()

	return fn(ctx)
}
