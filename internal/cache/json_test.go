package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-finance/internal/cache"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONRoundTripAndDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := cache.NewJSON(client, "test:", time.Minute)
	ctx := context.Background()

	var got payload
	ok, err := c.Get(ctx, "a", &got)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", payload{Name: "x", Count: 2}))
	require.True(t, mr.Exists("test:a"))
	require.Equal(t, time.Minute, mr.TTL("test:a"))

	ok, err = c.Get(ctx, "a", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, payload{Name: "x", Count: 2}, got)

	require.NoError(t, c.Delete(ctx, "a", ""))
	require.False(t, mr.Exists("test:a"))
}

func TestJSONWithoutClientIsNoop(t *testing.T) {
	c := cache.NewJSON(nil, "test:", time.Minute)
	require.False(t, c.Enabled())
	require.NoError(t, c.Set(context.Background(), "a", payload{}))
	ok, err := c.Get(context.Background(), "a", &payload{})
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, c.Delete(context.Background(), "a"))
}

func TestJSONCorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, mr.Set("test:bad", "{not json"))

	c := cache.NewJSON(client, "test:", time.Minute)
	_, err := c.Get(context.Background(), "bad", &payload{})
	require.Error(t, err)
}
