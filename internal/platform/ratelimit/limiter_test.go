package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounter mimics INCR/EXPIRE semantics in memory.
type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "incr", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeCounter) Expire(ctx context.Context, key string, d time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "expire", key, d)
	f.expires[key] = d
	cmd.SetVal(true)
	return cmd
}

func TestRedisLimiter(t *testing.T) {
	t.Parallel()

	counter := newFakeCounter()
	l := NewRedisLimiter(counter, 2, time.Minute, nil)
	fixed := time.Date(2026, 5, 1, 10, 0, 30, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(context.Background(), "user-1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, ok, "third request in the window is rejected")

	ok, err = l.Allow(context.Background(), "user-2")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	assert.Len(t, counter.expires, 2, "expiry is set once per window key")

	fixed = fixed.Add(time.Minute)
	ok, err = l.Allow(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, ok, "a new window resets the count")
}

func TestRedisLimiterError(t *testing.T) {
	t.Parallel()

	counter := newFakeCounter()
	counter.err = errors.New("connection refused")
	l := NewRedisLimiter(counter, 2, time.Minute, nil)

	_, err := l.Allow(context.Background(), "user-1")
	assert.Error(t, err)
}

func TestMemoryLimiter(t *testing.T) {
	t.Parallel()

	l := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ok, _ := l.Allow(context.Background(), "k")
	assert.True(t, ok)
	now = now.Add(10 * time.Second)
	ok, _ = l.Allow(context.Background(), "k")
	assert.True(t, ok)
	ok, _ = l.Allow(context.Background(), "k")
	assert.False(t, ok)

	now = now.Add(55 * time.Second)
	ok, _ = l.Allow(context.Background(), "k")
	assert.True(t, ok, "the first hit slid out of the window")
}

func TestMemoryLimiterForgetsIdleKeys(t *testing.T) {
	t.Parallel()

	l := NewMemoryLimiter(5, time.Minute)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for _, key := range []string{"user:a", "user:b", "user:c"} {
		ok, err := l.Allow(context.Background(), key)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Len(t, l.hits, 3)

	now = now.Add(50 * time.Second)
	_, _ = l.Allow(context.Background(), "user:a")
	assert.Len(t, l.hits, 3, "no sweep before a full window has passed")

	now = now.Add(15 * time.Second)
	_, _ = l.Allow(context.Background(), "user:d")
	assert.Len(t, l.hits, 2, "idle keys are dropped")
	assert.Contains(t, l.hits, "user:a")
	assert.Contains(t, l.hits, "user:d")
}
