package limiter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/admitgate/ratelimit/pkg/store"
)

// epochOffsetMillis is subtracted from every event timestamp so that the
// ranks stored in the ordered set stay small. 2020-01-01T00:00:00Z.
const epochOffsetMillis = 1577836800000

// windowGrace is added on top of the window length whenever an action's set
// has its expiry extended, so an active set survives at least one more full
// window while an idle one still disappears on its own.
const windowGrace = 60 * time.Second

// SlidingWindowCounter admits at most maxInWindow events per action within a
// trailing window, counting individual event timestamps in an ordered set
// shared through the store.
//
// The admit path is a pre-check followed by a batched insert-and-recount. The
// two steps are not wrapped in an atomic script, so concurrent admits racing
// past the pre-check can each record their event; the window then briefly
// exceeds maxInWindow by up to the number of concurrent racers minus one.
// The post-insert count decides the returned verdict, which keeps the
// over-admission bounded and observable rather than silent.
type SlidingWindowCounter struct {
	store store.Store
	set   settings
}

// NewSlidingWindowCounter constructs a counter on the given store.
func NewSlidingWindowCounter(st store.Store, opts ...Option) (*SlidingWindowCounter, error) {
	if st == nil {
		return nil, Error.New("store must not be nil")
	}
	return &SlidingWindowCounter{
		store: st,
		set:   newSettings(opts),
	}, nil
}

func (c *SlidingWindowCounter) key(actionID string) string {
	return c.set.prefix + "window:" + actionID
}

// Allow records an event for actionID and reports whether it fits within
// maxInWindow events over the trailing window.
//
// When the window is already saturated the attempt is not recorded; the
// rejection path instead purges entries that have slid out of the window, so
// garbage collection rides along on the calls that need it least.
func (c *SlidingWindowCounter) Allow(ctx context.Context, actionID string, window time.Duration, maxInWindow int64) (Decision, error) {
	start := time.Now()
	if window <= 0 {
		return Decision{}, Error.New("window must be positive")
	}
	if maxInWindow <= 0 {
		return Decision{}, Error.New("maxInWindow must be positive")
	}

	key := c.key(actionID)
	now := c.set.clock.Now().UnixMilli() - epochOffsetMillis
	windowStart := now - window.Milliseconds()

	count, err := c.store.OrderedSetCountInRange(ctx, key, windowStart, now)
	if err != nil {
		c.set.observe(strategySlidingWindow, start, false)
		return Decision{}, Error.Wrap(err)
	}
	if count >= maxInWindow {
		if err := c.store.OrderedSetRemoveRange(ctx, key, 0, windowStart-1); err != nil {
			c.set.observe(strategySlidingWindow, start, false)
			return Decision{}, Error.Wrap(err)
		}
		c.set.observe(strategySlidingWindow, start, false)
		return Decision{Allowed: false, Count: count}, nil
	}

	// One round trip: record the event, recount the window including it, and
	// read the set's remaining lifetime.
	batch := c.store.Batch()
	batch.OrderedSetAdd(key, now, now)
	after := batch.OrderedSetCountInRange(key, windowStart, now)
	ttl := batch.TimeToLive(key)
	if err := batch.Exec(ctx); err != nil {
		c.set.observe(strategySlidingWindow, start, false)
		return Decision{}, Error.Wrap(err)
	}

	observed := after.Value()
	allowed := observed <= maxInWindow

	if remaining := ttl.Value(); remaining <= window {
		if remaining < 0 {
			remaining = 0
		}
		if err := c.store.Expire(ctx, key, remaining+window+windowGrace); err != nil {
			c.set.observe(strategySlidingWindow, start, false)
			return Decision{}, Error.Wrap(err)
		}
	}
	if !allowed {
		c.set.log.Debug("window over-admitted by concurrent racers",
			zap.String("action", actionID),
			zap.Int64("count", observed),
			zap.Int64("max", maxInWindow))
	}

	c.set.observe(strategySlidingWindow, start, allowed)
	return Decision{Allowed: allowed, Count: observed}, nil
}

const strategySlidingWindow = "sliding_window"
