package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeebo/errs"
)

// RedisStore implements Store on a go-redis client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps client, verifying connectivity with a short ping first
// so that misconfiguration surfaces at construction time rather than on the
// first admission check.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, Error.Wrap(err)
	}
	return &RedisStore{client: client}, nil
}

func formatRank(rank int64) string {
	return strconv.FormatInt(rank, 10)
}

func (s *RedisStore) OrderedSetAdd(ctx context.Context, key string, rank, member int64) error {
	return Error.Wrap(s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(rank),
		Member: member,
	}).Err())
}

func (s *RedisStore) OrderedSetCountInRange(ctx context.Context, key string, lowRank, highRank int64) (int64, error) {
	n, err := s.client.ZCount(ctx, key, formatRank(lowRank), formatRank(highRank)).Result()
	return n, Error.Wrap(err)
}

func (s *RedisStore) OrderedSetRemoveRange(ctx context.Context, key string, lowRank, highRank int64) error {
	return Error.Wrap(s.client.ZRemRangeByScore(ctx, key, formatRank(lowRank), formatRank(highRank)).Err())
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, bool, error) {
	v, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, Error.Wrap(err)
	}
	return v, true, nil
}

func (s *RedisStore) GetMultiple(ctx context.Context, keys ...string) ([]Value, error) {
	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, Error.Wrap(err)
	}
	values := make([]Value, len(raw))
	for i, r := range raw {
		if r == nil {
			continue
		}
		str, ok := r.(string)
		if !ok {
			return nil, Error.New("unexpected MGET reply type %T for key %q", r, keys[i])
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		values[i] = Value{Int: n, Present: true}
	}
	return values, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return Error.Wrap(s.client.Set(ctx, key, value, ttl).Err())
}

func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	return n, Error.Wrap(err)
}

func (s *RedisStore) IncrementBy(ctx context.Context, key string, n int64) (int64, error) {
	v, err := s.client.IncrBy(ctx, key, n).Result()
	return v, Error.Wrap(err)
}

func (s *RedisStore) Decrement(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Decr(ctx, key).Result()
	return n, Error.Wrap(err)
}

func (s *RedisStore) TimeToLive(ctx context.Context, key string) (time.Duration, error) {
	// go-redis keeps the -1/-2 sentinels as raw negative durations, which is
	// exactly the TTLNone/TTLMissing convention.
	d, err := s.client.TTL(ctx, key).Result()
	return d, Error.Wrap(err)
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return Error.Wrap(s.client.Expire(ctx, key, ttl).Err())
}

func (s *RedisStore) Batch() Batch {
	return &redisBatch{client: s.client}
}

// redisBatch queues commands and sends them as one pipeline. Each queued
// closure issues its command on the pipeline and returns a fill function that
// copies the command's result into its cell once the pipeline has executed.
type redisBatch struct {
	client *redis.Client
	queued []func(ctx context.Context, pipe redis.Pipeliner) func() error
}

func (b *redisBatch) OrderedSetAdd(key string, rank, member int64) {
	b.queued = append(b.queued, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		cmd := pipe.ZAdd(ctx, key, redis.Z{Score: float64(rank), Member: member})
		return cmd.Err
	})
}

func (b *redisBatch) OrderedSetCountInRange(key string, lowRank, highRank int64) *Int64Result {
	res := new(Int64Result)
	b.queued = append(b.queued, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		cmd := pipe.ZCount(ctx, key, formatRank(lowRank), formatRank(highRank))
		return func() error {
			res.val = cmd.Val()
			return cmd.Err()
		}
	})
	return res
}

func (b *redisBatch) Set(key string, value int64, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	b.queued = append(b.queued, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		cmd := pipe.Set(ctx, key, value, ttl)
		return cmd.Err
	})
}

func (b *redisBatch) IncrementBy(key string, n int64) *Int64Result {
	res := new(Int64Result)
	b.queued = append(b.queued, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		cmd := pipe.IncrBy(ctx, key, n)
		return func() error {
			res.val = cmd.Val()
			return cmd.Err()
		}
	})
	return res
}

func (b *redisBatch) Decrement(key string) *Int64Result {
	res := new(Int64Result)
	b.queued = append(b.queued, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		cmd := pipe.Decr(ctx, key)
		return func() error {
			res.val = cmd.Val()
			return cmd.Err()
		}
	})
	return res
}

func (b *redisBatch) TimeToLive(key string) *DurationResult {
	res := new(DurationResult)
	b.queued = append(b.queued, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		cmd := pipe.TTL(ctx, key)
		return func() error {
			res.val = cmd.Val()
			return cmd.Err()
		}
	})
	return res
}

func (b *redisBatch) Expire(key string, ttl time.Duration) {
	b.queued = append(b.queued, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		cmd := pipe.Expire(ctx, key, ttl)
		return cmd.Err
	})
}

func (b *redisBatch) Exec(ctx context.Context) error {
	pipe := b.client.Pipeline()
	fills := make([]func() error, 0, len(b.queued))
	for _, queue := range b.queued {
		fills = append(fills, queue(ctx, pipe))
	}
	b.queued = nil

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Error.Wrap(err)
	}
	var group errs.Group
	for _, fill := range fills {
		if err := fill(); err != nil && !errors.Is(err, redis.Nil) {
			group.Add(err)
		}
	}
	return Error.Wrap(group.Err())
}
