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

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute), mr
}

func TestCache_GetSet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "dashboard:x")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "dashboard:x", []byte(`{"a":1}`)))

	got, err := c.Get(ctx, "dashboard:x")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	mr.FastForward(2 * time.Minute)

	_, err = c.Get(ctx, "dashboard:x")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_Ping(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, c.Ping(context.Background()))

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}

func TestDashboardKey(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 1, 500, time.UTC)

	a := DashboardKey("c1", now, 2*time.Second, 7, 3)
	b := DashboardKey("c1", now.Add(500*time.Millisecond), 2*time.Second, 7, 3)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, DashboardKey("c1", now, 2*time.Second, 8, 3))
	assert.NotEqual(t, a, DashboardKey("c1", now, 2*time.Second, 7, 4))
	assert.NotEqual(t, a, DashboardKey("c2", now, 2*time.Second, 7, 3))
	assert.Contains(t, DashboardKey("", now, 0, 0, 0), "dashboard:none:")
}
