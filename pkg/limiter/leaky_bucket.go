package limiter

import (
	"context"
	"time"

	"github.com/admitgate/ratelimit/pkg/store"
)

// bucketTTL is the fixed expiry shared by the leaky- and token-bucket state.
// A bucket untouched for this long reads as empty on the next access.
const bucketTTL = 60 * time.Second

// LeakyBucket admits up to burst actions per wall-clock second for one
// configured bucket instance, tracking a water level and the second it was
// last refreshed in the shared store.
//
// Draining is all-or-nothing: once the current second differs from the
// recorded one the bucket empties completely, rather than leaking
// rate*elapsed units. Rate is therefore the nominal steady-state drain and
// burst the only operative limit within a second. The refresh and the admit
// are two separate round trips; the store only needs get/set/increment
// primitives, and the inconsistency window that buys is bounded by the fixed
// expiry, with an expired bucket reading as empty on the next access.
type LeakyBucket struct {
	store      store.Store
	set        settings
	rate       int64
	burst      int64
	refreshKey string
	levelKey   string
}

// NewLeakyBucket constructs a bucket instance named by suffix. Rate is the
// nominal drain in units per second; burst is the bucket capacity.
func NewLeakyBucket(st store.Store, suffix string, rate, burst int64, opts ...Option) (*LeakyBucket, error) {
	if st == nil {
		return nil, Error.New("store must not be nil")
	}
	if suffix == "" {
		return nil, Error.New("suffix must not be empty")
	}
	if rate <= 0 {
		return nil, Error.New("rate must be positive")
	}
	if burst <= 0 {
		return nil, Error.New("burst must be positive")
	}
	set := newSettings(opts)
	return &LeakyBucket{
		store:      st,
		set:        set,
		rate:       rate,
		burst:      burst,
		refreshKey: set.prefix + "leaky:" + suffix + ":last_refresh",
		levelKey:   set.prefix + "leaky:" + suffix + ":water_level",
	}, nil
}

// Allow reports whether one more action fits in the bucket, raising the water
// level by one when it does.
func (lb *LeakyBucket) Allow(ctx context.Context) (bool, error) {
	start := time.Now()

	values, err := lb.store.GetMultiple(ctx, lb.refreshKey, lb.levelKey)
	if err != nil {
		lb.set.observe(strategyLeakyBucket, start, false)
		return false, Error.Wrap(err)
	}
	now := lb.set.clock.Now().Unix()
	var lastRefresh, level int64
	if values[0].Present {
		lastRefresh = values[0].Int
	}
	if values[1].Present {
		level = values[1].Int
	}
	// Crossing any second boundary drains the bucket completely. An expired
	// or missing pair lands here too: cold start reads as empty.
	if now != lastRefresh {
		level = 0
	}

	batch := lb.store.Batch()
	batch.Set(lb.refreshKey, now, bucketTTL)
	batch.Set(lb.levelKey, level, bucketTTL)
	if err := batch.Exec(ctx); err != nil {
		lb.set.observe(strategyLeakyBucket, start, false)
		return false, Error.Wrap(err)
	}

	if level >= lb.burst {
		lb.set.observe(strategyLeakyBucket, start, false)
		return false, nil
	}
	if _, err := lb.store.Increment(ctx, lb.levelKey); err != nil {
		lb.set.observe(strategyLeakyBucket, start, false)
		return false, Error.Wrap(err)
	}
	lb.set.observe(strategyLeakyBucket, start, true)
	return true, nil
}

const strategyLeakyBucket = "leaky_bucket"
