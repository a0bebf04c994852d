package finance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-finance/internal/cache"
	"github.com/noah-isme/toko-finance/internal/finance"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSharedSourceFillsAndServesRedis(t *testing.T) {
	mr, client := newRedis(t)
	next := &scriptedSource{settings: custom}
	shared := finance.SharedSource{Cache: cache.NewJSON(client, "finance:", time.Minute), Next: next}

	got, err := shared.FetchSettings(context.Background())
	require.NoError(t, err)
	require.Equal(t, custom, got)
	require.True(t, mr.Exists("finance:"+finance.SharedKey))

	got, err = shared.FetchSettings(context.Background())
	require.NoError(t, err)
	require.Equal(t, custom, got)
	require.Equal(t, 1, next.Calls())

	require.NoError(t, shared.Invalidate(context.Background()))
	require.False(t, mr.Exists("finance:"+finance.SharedKey))
	_, err = shared.FetchSettings(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, next.Calls())
}

func TestSharedSourceDiscardsInvalidCopy(t *testing.T) {
	mr, client := newRedis(t)
	require.NoError(t, mr.Set("finance:"+finance.SharedKey, `{"platform_commission_rate":99,"shipping_seller_percentage":80,"shipping_max_seller_percentage":40}`))
	next := &scriptedSource{settings: custom}
	shared := finance.SharedSource{Cache: cache.NewJSON(client, "finance:", time.Minute), Next: next}

	got, err := shared.FetchSettings(context.Background())
	require.NoError(t, err)
	require.Equal(t, custom, got)
	require.Equal(t, 1, next.Calls())
}

func TestSharedSourceRedisDownFallsThrough(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()
	next := &scriptedSource{settings: custom}
	shared := finance.SharedSource{Cache: cache.NewJSON(client, "finance:", time.Minute), Next: next}

	got, err := shared.FetchSettings(context.Background())
	require.NoError(t, err)
	require.Equal(t, custom, got)
}

func TestSharedSourcePropagatesNextError(t *testing.T) {
	_, client := newRedis(t)
	boom := errors.New("boom")
	shared := finance.SharedSource{Cache: cache.NewJSON(client, "finance:", time.Minute), Next: &scriptedSource{err: boom}}

	_, err := shared.FetchSettings(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSharedSourceWithoutNext(t *testing.T) {
	shared := finance.SharedSource{}
	_, err := shared.FetchSettings(context.Background())
	require.ErrorIs(t, err, finance.ErrSettingsNotFound)
}
