package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client), mr
}

func TestRedisIncrKeepsFirstTTL(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)

	for want := int64(1); want <= 3; want++ {
		got, err := r.Incr(ctx, "issues:alice", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		mr.FastForward(10 * time.Minute)
	}

	ttl, err := r.TTL(ctx, "issues:alice")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, ttl)

	got, err := r.Decr(ctx, "issues:alice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, got)
	ttl, _ = r.TTL(ctx, "issues:alice")
	assert.Equal(t, 30*time.Minute, ttl, "decrement keeps the window")

	mr.FastForward(30 * time.Minute)
	got, err = r.Incr(ctx, "issues:alice", time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got, "counter restarts after expiry")
}

func TestRedisFlags(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)

	ok, err := r.Exists(ctx, "revoked:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.SetFlag(ctx, "revoked:abc", time.Minute))
	ok, _ = r.Exists(ctx, "revoked:abc")
	assert.True(t, ok)

	mr.FastForward(time.Minute)
	ok, _ = r.Exists(ctx, "revoked:abc")
	assert.False(t, ok)

	ttl, err := r.TTL(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestRedisPing(t *testing.T) {
	r, mr := newTestRedis(t)
	require.NoError(t, r.Ping(context.Background()))
	assert.Equal(t, "redis", r.Name())

	mr.Close()
	assert.Error(t, r.Ping(context.Background()))
}

func TestMemoryDecr(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	got, err := m.Decr(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, got)

	_, _ = m.Incr(ctx, "issues:bob", time.Hour)
	_, _ = m.Incr(ctx, "issues:bob", time.Hour)
	got, err = m.Decr(ctx, "issues:bob")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got)
}
