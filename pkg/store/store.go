// Package store defines the counter/ordered-set capability the rate limiters
// run against, plus two implementations with the same API:
//
//   - RedisStore: the production backend. All cross-instance coordination is
//     delegated to Redis' per-key atomicity; batches are sent as pipelines.
//
//   - MemoryStore: an in-process backend with the same semantics, useful for
//     unit tests, local development, and single-instance deployments. Because
//     its state is local to the process, it does not enforce a global limit
//     across multiple replicas.
//
// Counters behave like Redis counters: increment and decrement on a missing
// key count from zero, so Decrement on an absent key yields -1. Keys expire
// on their own; the limiters rely on expiry, not explicit deletion, to bound
// the growth of idle state.
package store

import (
	"context"
	"time"

	"github.com/zeebo/errs"
)

// Error is the error class for store failures.
var Error = errs.Class("store")

// TimeToLive sentinels, matching the go-redis TTL convention.
const (
	// TTLNone means the key exists but carries no expiry.
	TTLNone = time.Duration(-1)
	// TTLMissing means the key does not exist.
	TTLMissing = time.Duration(-2)
)

// Value is one element of a GetMultiple reply. Present is false when the key
// was absent, in which case Int is zero.
type Value struct {
	Int     int64
	Present bool
}

// Store is the shared atomic counter/ordered-set capability.
//
// Implementations must be safe for concurrent use. Single operations are
// atomic per key; multi-step sequences that must travel together go through
// Batch.
type Store interface {
	// OrderedSetAdd inserts member with the given rank. Re-adding the same
	// member is idempotent (the rank is overwritten).
	OrderedSetAdd(ctx context.Context, key string, rank, member int64) error

	// OrderedSetCountInRange counts members with rank in [lowRank, highRank],
	// bounds inclusive.
	OrderedSetCountInRange(ctx context.Context, key string, lowRank, highRank int64) (int64, error)

	// OrderedSetRemoveRange removes members with rank in [lowRank, highRank],
	// bounds inclusive.
	OrderedSetRemoveRange(ctx context.Context, key string, lowRank, highRank int64) error

	// Get reads an integer value. present is false when the key is absent.
	Get(ctx context.Context, key string) (value int64, present bool, err error)

	// GetMultiple reads several keys in one round trip. The reply preserves
	// the order of keys.
	GetMultiple(ctx context.Context, keys ...string) ([]Value, error)

	// Set writes an integer value. A positive ttl arms expiry; ttl <= 0
	// leaves the key without one.
	Set(ctx context.Context, key string, value int64, ttl time.Duration) error

	// Increment adds 1 and returns the new value, treating an absent key as 0.
	Increment(ctx context.Context, key string) (int64, error)

	// IncrementBy adds n and returns the new value, treating an absent key as 0.
	IncrementBy(ctx context.Context, key string, n int64) (int64, error)

	// Decrement subtracts 1 and returns the new value, treating an absent key
	// as 0 (so a missing key decrements to -1).
	Decrement(ctx context.Context, key string) (int64, error)

	// TimeToLive reports the remaining lifetime of key, or TTLNone/TTLMissing.
	TimeToLive(ctx context.Context, key string) (time.Duration, error)

	// Expire arms or refreshes expiry on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Batch starts an empty command batch bound to this store.
	Batch() Batch
}

// Batch collects a fixed sequence of commands and sends them in a single
// round trip on Exec. Results become readable through the returned cells only
// after Exec returns.
//
// A batch is not serializable against other clients: commands from a
// concurrent client may land between two members of the batch. What it does
// guarantee is that the whole sequence is submitted together, so interleaving
// reduces to "before or after the batch landed" for each concurrent command.
type Batch interface {
	OrderedSetAdd(key string, rank, member int64)
	OrderedSetCountInRange(key string, lowRank, highRank int64) *Int64Result
	Set(key string, value int64, ttl time.Duration)
	IncrementBy(key string, n int64) *Int64Result
	Decrement(key string) *Int64Result
	TimeToLive(key string) *DurationResult
	Expire(key string, ttl time.Duration)

	// Exec sends the queued commands. A batch is single-use; queue new
	// commands on a fresh Batch.
	Exec(ctx context.Context) error
}

// Int64Result holds an integer command result, readable after Batch.Exec.
type Int64Result struct {
	val int64
}

// Value returns the command's result. Before Exec it is zero.
func (r *Int64Result) Value() int64 { return r.val }

// DurationResult holds a TimeToLive command result, readable after Batch.Exec.
type DurationResult struct {
	val time.Duration
}

// Value returns the command's result. Before Exec it is zero.
func (r *DurationResult) Value() time.Duration { return r.val }
