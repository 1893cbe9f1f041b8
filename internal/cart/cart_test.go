package cart_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/monmi-labs/pay-gateway/internal/cart"
)

func TestFormatMinor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		minor int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{437, "4.37"},
		{100, "1.00"},
		{123456, "1234.56"},
		{-250, "-2.50"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, cart.FormatMinor(tt.minor))
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &cart.RedisStore{Client: client, TTL: time.Hour}
	ctx := context.Background()

	snap, err := store.Load(ctx, "shopper-1")
	require.NoError(t, err)
	require.True(t, snap.Empty())

	want := cart.Snapshot{
		Lines: []cart.Line{
			{Name: "Blue mug", UnitMinor: 437, Qty: 2},
			{Name: "Sticker", UnitMinor: 99, Qty: 1},
		},
		DiscountMinor: 100,
	}
	require.NoError(t, store.Save(ctx, "shopper-1", want))

	got, err := store.Load(ctx, "shopper-1")
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.False(t, got.Empty())

	require.NoError(t, store.Clear(ctx, "shopper-1"))
	got, err = store.Load(ctx, "shopper-1")
	require.NoError(t, err)
	require.True(t, got.Empty())
}
