package limiter

import (
	"context"
	"time"

	"github.com/zeebo/errs"

	"github.com/admitgate/ratelimit/pkg/clock"
	"github.com/admitgate/ratelimit/pkg/store"
)

// testStart is an arbitrary fixed instant the manual clocks in this package
// start from.
var testStart = time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)

func newTestStore() (*store.MemoryStore, *clock.Manual) {
	clk := clock.NewManual(testStart)
	return store.NewMemoryStoreWithClock(clk), clk
}

var errBroken = errs.New("store unreachable")

// brokenStore fails every operation, for exercising the fail-closed paths.
type brokenStore struct{}

func (brokenStore) OrderedSetAdd(ctx context.Context, key string, rank, member int64) error {
	return errBroken
}

func (brokenStore) OrderedSetCountInRange(ctx context.Context, key string, lowRank, highRank int64) (int64, error) {
	return 0, errBroken
}

func (brokenStore) OrderedSetRemoveRange(ctx context.Context, key string, lowRank, highRank int64) error {
	return errBroken
}

func (brokenStore) Get(ctx context.Context, key string) (int64, bool, error) {
	return 0, false, errBroken
}

func (brokenStore) GetMultiple(ctx context.Context, keys ...string) ([]store.Value, error) {
	return nil, errBroken
}

func (brokenStore) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return errBroken
}

func (brokenStore) Increment(ctx context.Context, key string) (int64, error) {
	return 0, errBroken
}

func (brokenStore) IncrementBy(ctx context.Context, key string, n int64) (int64, error) {
	return 0, errBroken
}

func (brokenStore) Decrement(ctx context.Context, key string) (int64, error) {
	return 0, errBroken
}

func (brokenStore) TimeToLive(ctx context.Context, key string) (time.Duration, error) {
	return 0, errBroken
}

func (brokenStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return errBroken
}

func (brokenStore) Batch() store.Batch { return brokenBatch{} }

type brokenBatch struct{}

func (brokenBatch) OrderedSetAdd(key string, rank, member int64) {}

func (brokenBatch) OrderedSetCountInRange(key string, lowRank, highRank int64) *store.Int64Result {
	return new(store.Int64Result)
}

func (brokenBatch) Set(key string, value int64, ttl time.Duration) {}

func (brokenBatch) IncrementBy(key string, n int64) *store.Int64Result {
	return new(store.Int64Result)
}

func (brokenBatch) Decrement(key string) *store.Int64Result {
	return new(store.Int64Result)
}

func (brokenBatch) TimeToLive(key string) *store.DurationResult {
	return new(store.DurationResult)
}

func (brokenBatch) Expire(key string, ttl time.Duration) {}

func (brokenBatch) Exec(ctx context.Context) error { return errBroken }
