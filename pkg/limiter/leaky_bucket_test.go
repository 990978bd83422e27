package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeakyBucket_BurstWithinOneSecond(t *testing.T) {
	ctx := context.Background()
	st, clk := newTestStore()
	lb, err := NewLeakyBucket(st, "send", 5, 3, WithClock(clk))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		allowed, err := lb.Allow(ctx)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d within burst should be admitted", i+1)
	}

	allowed, err := lb.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, allowed, "burst+1 within the same second should be denied")
}

func TestLeakyBucket_DrainsOnSecondBoundary(t *testing.T) {
	ctx := context.Background()
	st, clk := newTestStore()
	lb, err := NewLeakyBucket(st, "send", 5, 2, WithClock(clk))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		allowed, err := lb.Allow(ctx)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, err := lb.Allow(ctx)
	require.NoError(t, err)
	require.False(t, allowed)

	// The level does not leak proportionally; one second boundary empties it
	// all the way.
	clk.Advance(time.Second)

	for i := 0; i < 2; i++ {
		allowed, err := lb.Allow(ctx)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d after drain should be admitted", i+1)
	}
}

func TestLeakyBucket_ColdStartAfterExpiry(t *testing.T) {
	ctx := context.Background()
	st, clk := newTestStore()
	lb, err := NewLeakyBucket(st, "send", 5, 1, WithClock(clk))
	require.NoError(t, err)

	allowed, err := lb.Allow(ctx)
	require.NoError(t, err)
	require.True(t, allowed)

	clk.Advance(bucketTTL + time.Second)

	// Both counters have expired; the bucket reads as empty, not as an error.
	_, present, err := st.Get(ctx, lb.levelKey)
	require.NoError(t, err)
	require.False(t, present)

	allowed, err = lb.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLeakyBucket_Validation(t *testing.T) {
	st, _ := newTestStore()

	_, err := NewLeakyBucket(nil, "send", 1, 1)
	assert.Error(t, err)
	_, err = NewLeakyBucket(st, "", 1, 1)
	assert.Error(t, err)
	_, err = NewLeakyBucket(st, "send", 0, 1)
	assert.Error(t, err)
	_, err = NewLeakyBucket(st, "send", 1, 0)
	assert.Error(t, err)
}

func TestLeakyBucket_FailsClosed(t *testing.T) {
	lb, err := NewLeakyBucket(brokenStore{}, "send", 5, 3)
	require.NoError(t, err)

	allowed, err := lb.Allow(context.Background())
	require.Error(t, err)
	assert.False(t, allowed)
}
