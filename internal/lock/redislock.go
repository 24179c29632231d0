package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Keys under this prefix serialize stock mutations for one catalog item, so
// two offers reserving the same gear race on Redis instead of on Postgres.
const itemKeyPrefix = "reservation:item:"

// ItemKey returns the lock key guarding one catalog item's reservations.
func ItemKey(catalogItemID string) string {
	return itemKeyPrefix + catalogItemID
}

// releaseScript deletes the key only when the caller still holds it. A lock
// that expired mid-callback must not delete a successor's claim.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`

// Locker is a Redis SetNX lock with holder tokens. The zero RetryBackoff
// defaults to 50ms between acquisition attempts.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
}

// WithLock runs fn while holding the key, releasing it afterwards even when
// fn fails. Acquisition retries until the context is cancelled.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	holder := uuid.NewString()
	if err := l.acquire(ctx, key, holder, ttl); err != nil {
		return err
	}
	defer l.release(key, holder)
	return fn(ctx)
}

func (l Locker) acquire(ctx context.Context, key, holder string, ttl time.Duration) error {
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	for {
		claimed, err := l.R.SetNX(ctx, key, holder, ttl).Result()
		if err != nil {
			return err
		}
		if claimed {
			return nil
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// release uses a fresh context so the key is freed even when the caller's
// context is already cancelled. Failures are ignored; the TTL reclaims the
// key regardless.
func (l Locker) release(key, holder string) {
	_ = l.R.Eval(context.Background(), releaseScript, []string{key}, holder).Err()
}
