package cache

import (
	"context"
	"errors"
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
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "product_trail-runner-3000", Key("product", "trail-runner-3000"))
}

func TestCache_SetGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "product_a", []byte(`{"id":1}`), time.Minute))

	got, err := c.Get(ctx, "product_a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(got))
	assert.Equal(t, time.Minute, mr.TTL("product_a"))
}

func TestCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)
	_, err := c.Get(context.Background(), "product_none")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestCache_Expiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "product_a", []byte("x"), time.Second))
	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "product_a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestCache_Delete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("product_a", "1"))
	require.NoError(t, mr.Set("product_b", "2"))

	require.NoError(t, c.Delete(ctx, "product_a", "product_b", "product_missing"))
	assert.False(t, mr.Exists("product_a"))
	assert.False(t, mr.Exists("product_b"))

	require.NoError(t, c.Delete(ctx))
}

func TestCache_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	c := New(client)

	err = c.Delete(context.Background(), "product_a")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMiss))
	assert.Error(t, c.Ping(context.Background()))

	_, err = c.Get(context.Background(), "product_a")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrMiss))
}
