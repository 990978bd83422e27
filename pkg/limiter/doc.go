// Package limiter provides distributed rate-limiting primitives shared across
// many uncoordinated process instances.
//
// All state that has to be consistent between instances lives in one external
// counter/ordered-set store (see package store); the limiters themselves hold
// no durable state and have no internal goroutines or timers. Every operation
// is a synchronous call performing one or two round trips to the store.
//
// # Strategies
//
// Three independent admission strategies answer "is this action allowed right
// now?", each against its own keys in the shared store:
//
//   - SlidingWindowCounter admits at most N events per action within a
//     trailing window, keeping each admitted event's timestamp in an ordered
//     set. Entries that slide out of the window are purged lazily, and idle
//     sets expire on their own.
//
//   - LeakyBucket admits up to burst actions per wall-clock second per bucket
//     instance, tracking a water level and its last refresh second as two
//     scalar counters. Crossing a second boundary drains the bucket
//     completely rather than proportionally.
//
//   - TokenBucket admits actions while a shared token counter stays
//     non-negative. Take consumes, Add (typically timer-driven) replenishes
//     up to burst, and Reset empties. A counter observed below zero is
//     repaired on the spot by resetting it.
//
// None of the three depends on another; pick one per use case.
//
// # Keys and Expiry
//
// Every key is namespaced under a fixed prefix (default "ratelimit:",
// override with WithPrefix), so distinct action identities never collide.
// The store owns every key's lifetime: the limiters only read, mutate, and
// extend expiry on access, and expiry is the only mechanism bounding state
// growth for idle identities. Expired bucket state reads as empty on the next
// access — a cold start, not an error.
//
// # Concurrency
//
// Cross-instance coordination is delegated entirely to the store's per-key
// atomicity. Mutations either use a primitive the store guarantees atomic
// (increment, decrement) or batch a fixed command sequence into one round
// trip. The sliding-window admit sequence (pre-check, then insert and
// recount) is deliberately not an atomic script: concurrent admits racing
// past the pre-check can over-admit the window by up to the number of racers
// minus one, a bounded inaccuracy accepted in exchange for keeping the store
// capability down to plain counter and ordered-set primitives.
//
// # Error Policy
//
// The limiters fail closed. A store failure is wrapped and returned as the
// operation's error with a zero-valued result, never as a panic crossing the
// package boundary; the caller decides whether and when to retry. There is no
// in-process timeout machinery — the context handed to each call is passed
// through to the store, and a caller-supplied deadline is the only escape
// hatch.
//
// # Configuration
//
// All three limiters use the Functional Options pattern:
//
//	swc, err := limiter.NewSlidingWindowCounter(st,
//		limiter.WithPrefix("myapp:"),
//		limiter.WithLogger(log),
//		limiter.WithRecorder(rec),
//	)
//
// Supported options:
//
//   - WithPrefix(string): key namespace prefix (default "ratelimit:").
//   - WithClock(clock.Clock): time source, injectable for tests.
//   - WithLogger(*zap.Logger): destination for self-healing and cleanup logs.
//   - WithRecorder(MetricsRecorder): metrics backend; PrometheusRecorder is
//     provided, NoOpMetricsRecorder is the default.
//
// # Metrics
//
// Every admission check records a "ratelimit.call" counter tagged with the
// strategy and outcome, and a "ratelimit.latency" observation in seconds.
package limiter
