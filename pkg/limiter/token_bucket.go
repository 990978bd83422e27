package limiter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/admitgate/ratelimit/pkg/store"
)

// TokenBucket admits actions while a shared token counter stays non-negative.
// Consumers call Take; a producer — typically timer-driven — calls Add to
// replenish.
//
// Take and Add never coordinate with each other. Correctness rests entirely
// on the store's per-key atomic increment/decrement: a decrement on a missing
// key reads as -1, which doubles as the empty-bucket signal, and any negative
// value observed is transient corruption that is repaired on the spot by
// resetting the counter to zero.
type TokenBucket struct {
	store store.Store
	set   settings
	burst int64
	key   string
}

// NewTokenBucket constructs a bucket instance named by suffix holding at most
// burst tokens.
func NewTokenBucket(st store.Store, suffix string, burst int64, opts ...Option) (*TokenBucket, error) {
	if st == nil {
		return nil, Error.New("store must not be nil")
	}
	if suffix == "" {
		return nil, Error.New("suffix must not be empty")
	}
	if burst <= 0 {
		return nil, Error.New("burst must be positive")
	}
	set := newSettings(opts)
	return &TokenBucket{
		store: st,
		set:   set,
		burst: burst,
		key:   set.prefix + "token:" + suffix,
	}, nil
}

// Reset unconditionally empties the bucket.
func (tb *TokenBucket) Reset(ctx context.Context) error {
	return Error.Wrap(tb.store.Set(ctx, tb.key, 0, bucketTTL))
}

// Add deposits tokens into the bucket, clamped so the level never exceeds
// burst. amount == 0 means a full refill. It returns false without error when
// the clamp leaves nothing to add.
func (tb *TokenBucket) Add(ctx context.Context, amount int64) (bool, error) {
	if amount < 0 {
		return false, Error.New("amount must not be negative")
	}
	if amount == 0 {
		amount = tb.burst
	}

	level, present, err := tb.store.Get(ctx, tb.key)
	if err != nil {
		return false, Error.Wrap(err)
	}
	if !present {
		level = 0
	}
	if level < 0 {
		tb.set.log.Warn("negative token level, resetting bucket",
			zap.String("key", tb.key),
			zap.Int64("level", level))
		if err := tb.Reset(ctx); err != nil {
			return false, err
		}
		level = 0
	}

	add := amount
	if level+add > tb.burst {
		add = tb.burst - level
	}
	if add <= 0 {
		return false, nil
	}

	batch := tb.store.Batch()
	batch.IncrementBy(tb.key, add)
	batch.Expire(tb.key, bucketTTL)
	if err := batch.Exec(ctx); err != nil {
		return false, Error.Wrap(err)
	}
	return true, nil
}

// Take consumes one token, reporting false when the bucket is empty. The
// decrement and the expiry refresh travel in one round trip; a result below
// zero never persists, it triggers an immediate reset back to zero.
func (tb *TokenBucket) Take(ctx context.Context) (bool, error) {
	start := time.Now()

	batch := tb.store.Batch()
	remaining := batch.Decrement(tb.key)
	batch.Expire(tb.key, bucketTTL)
	if err := batch.Exec(ctx); err != nil {
		tb.set.observe(strategyTokenBucket, start, false)
		return false, Error.Wrap(err)
	}
	if remaining.Value() < 0 {
		if err := tb.Reset(ctx); err != nil {
			tb.set.observe(strategyTokenBucket, start, false)
			return false, err
		}
		tb.set.observe(strategyTokenBucket, start, false)
		return false, nil
	}
	tb.set.observe(strategyTokenBucket, start, true)
	return true, nil
}

const strategyTokenBucket = "token_bucket"
