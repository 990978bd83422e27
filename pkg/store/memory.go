package store

import (
	"context"
	"sync"
	"time"

	"github.com/admitgate/ratelimit/pkg/clock"
)

// MemoryStore is an in-process Store with the same counter, ordered-set, and
// expiry semantics as RedisStore.
//
// It is safe for concurrent use by multiple goroutines (a mutex protects the
// key space), but its state is local to the process and is not shared across
// replicas. Use RedisStore when you need a single global limit across
// multiple instances.
type MemoryStore struct {
	mu    sync.Mutex
	clock clock.Clock
	items map[string]*memItem
}

// memItem is either a scalar counter (num) or an ordered set (members),
// depending on which operations touched the key. A zero expiresAt means the
// key never expires. Expired items are evicted lazily on the next access.
type memItem struct {
	num       int64
	members   map[int64]int64 // member -> rank
	expiresAt time.Time
}

// NewMemoryStore constructs a MemoryStore on the system clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(clock.System())
}

// NewMemoryStoreWithClock constructs a MemoryStore whose expiry follows clk.
func NewMemoryStoreWithClock(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		clock: clk,
		items: make(map[string]*memItem),
	}
}

// live returns the item for key, evicting it first if its expiry has passed.
// Callers must hold s.mu.
func (s *MemoryStore) live(key string) *memItem {
	it, ok := s.items[key]
	if !ok {
		return nil
	}
	if !it.expiresAt.IsZero() && !s.clock.Now().Before(it.expiresAt) {
		delete(s.items, key)
		return nil
	}
	return it
}

func (s *MemoryStore) OrderedSetAdd(ctx context.Context, key string, rank, member int64) error {
	if err := ctx.Err(); err != nil {
		return Error.Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderedSetAddLocked(key, rank, member)
	return nil
}

func (s *MemoryStore) orderedSetAddLocked(key string, rank, member int64) {
	it := s.live(key)
	if it == nil {
		it = &memItem{members: make(map[int64]int64)}
		s.items[key] = it
	}
	if it.members == nil {
		it.members = make(map[int64]int64)
	}
	it.members[member] = rank
}

func (s *MemoryStore) OrderedSetCountInRange(ctx context.Context, key string, lowRank, highRank int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, Error.Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderedSetCountLocked(key, lowRank, highRank), nil
}

func (s *MemoryStore) orderedSetCountLocked(key string, lowRank, highRank int64) int64 {
	it := s.live(key)
	if it == nil {
		return 0
	}
	var n int64
	for _, rank := range it.members {
		if rank >= lowRank && rank <= highRank {
			n++
		}
	}
	return n
}

func (s *MemoryStore) OrderedSetRemoveRange(ctx context.Context, key string, lowRank, highRank int64) error {
	if err := ctx.Err(); err != nil {
		return Error.Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.live(key)
	if it == nil {
		return nil
	}
	for member, rank := range it.members {
		if rank >= lowRank && rank <= highRank {
			delete(it.members, member)
		}
	}
	// An emptied set disappears, like a Redis zset would.
	if len(it.members) == 0 {
		delete(s.items, key)
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, Error.Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.live(key)
	if it == nil {
		return 0, false, nil
	}
	return it.num, true, nil
}

func (s *MemoryStore) GetMultiple(ctx context.Context, keys ...string) ([]Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, Error.Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make([]Value, len(keys))
	for i, key := range keys {
		if it := s.live(key); it != nil {
			values[i] = Value{Int: it.num, Present: true}
		}
	}
	return values, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return Error.Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, value, ttl)
	return nil
}

func (s *MemoryStore) setLocked(key string, value int64, ttl time.Duration) {
	it := &memItem{num: value}
	if ttl > 0 {
		it.expiresAt = s.clock.Now().Add(ttl)
	}
	s.items[key] = it
}

func (s *MemoryStore) Increment(ctx context.Context, key string) (int64, error) {
	return s.IncrementBy(ctx, key, 1)
}

func (s *MemoryStore) IncrementBy(ctx context.Context, key string, n int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, Error.Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incrementLocked(key, n), nil
}

func (s *MemoryStore) Decrement(ctx context.Context, key string) (int64, error) {
	return s.IncrementBy(ctx, key, -1)
}

// incrementLocked counts from zero on a missing key and leaves a freshly
// created counter without expiry, like Redis INCR/DECR.
func (s *MemoryStore) incrementLocked(key string, n int64) int64 {
	it := s.live(key)
	if it == nil {
		it = &memItem{}
		s.items[key] = it
	}
	it.num += n
	return it.num
}

func (s *MemoryStore) TimeToLive(ctx context.Context, key string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, Error.Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeToLiveLocked(key), nil
}

func (s *MemoryStore) timeToLiveLocked(key string) time.Duration {
	it := s.live(key)
	if it == nil {
		return TTLMissing
	}
	if it.expiresAt.IsZero() {
		return TTLNone
	}
	return it.expiresAt.Sub(s.clock.Now())
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return Error.Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key, ttl)
	return nil
}

func (s *MemoryStore) expireLocked(key string, ttl time.Duration) {
	it := s.live(key)
	if it == nil {
		return
	}
	if ttl <= 0 {
		delete(s.items, key)
		return
	}
	it.expiresAt = s.clock.Now().Add(ttl)
}

func (s *MemoryStore) Batch() Batch {
	return &memoryBatch{store: s}
}

// memoryBatch runs all queued commands under one acquisition of the store
// mutex, which makes it atomic in-process. That is a stronger guarantee than
// the Batch contract requires; callers must not rely on it when they also
// target RedisStore.
type memoryBatch struct {
	store *MemoryStore
	ops   []func()
}

func (b *memoryBatch) OrderedSetAdd(key string, rank, member int64) {
	b.ops = append(b.ops, func() {
		b.store.orderedSetAddLocked(key, rank, member)
	})
}

func (b *memoryBatch) OrderedSetCountInRange(key string, lowRank, highRank int64) *Int64Result {
	res := new(Int64Result)
	b.ops = append(b.ops, func() {
		res.val = b.store.orderedSetCountLocked(key, lowRank, highRank)
	})
	return res
}

func (b *memoryBatch) Set(key string, value int64, ttl time.Duration) {
	b.ops = append(b.ops, func() {
		b.store.setLocked(key, value, ttl)
	})
}

func (b *memoryBatch) IncrementBy(key string, n int64) *Int64Result {
	res := new(Int64Result)
	b.ops = append(b.ops, func() {
		res.val = b.store.incrementLocked(key, n)
	})
	return res
}

func (b *memoryBatch) Decrement(key string) *Int64Result {
	return b.IncrementBy(key, -1)
}

func (b *memoryBatch) TimeToLive(key string) *DurationResult {
	res := new(DurationResult)
	b.ops = append(b.ops, func() {
		res.val = b.store.timeToLiveLocked(key)
	})
	return res
}

func (b *memoryBatch) Expire(key string, ttl time.Duration) {
	b.ops = append(b.ops, func() {
		b.store.expireLocked(key, ttl)
	})
}

func (b *memoryBatch) Exec(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Error.Wrap(err)
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, op := range b.ops {
		op()
	}
	b.ops = nil
	return nil
}
