package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/monmi-labs/pay-gateway/internal/order"
)

func TestMemoryStoreVersioning(t *testing.T) {
	t.Parallel()

	store := order.NewMemoryStore()
	ctx := context.Background()

	o := &order.Order{Status: order.StatusPending}
	require.NoError(t, store.Create(ctx, o))
	require.EqualValues(t, 1, o.Version)

	a, err := store.LoadByID(ctx, o.ID)
	require.NoError(t, err)
	b, err := store.LoadByID(ctx, o.ID)
	require.NoError(t, err)

	a.Status = order.StatusPaid
	require.NoError(t, store.Save(ctx, a))

	b.Status = order.StatusFailed
	require.ErrorIs(t, store.Save(ctx, b), order.ErrVersionConflict)

	final, err := store.LoadByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPaid, final.Status)
}

func TestMemoryStoreLoadByMeta(t *testing.T) {
	t.Parallel()

	store := order.NewMemoryStore()
	ctx := context.Background()

	first := &order.Order{Status: order.StatusPending}
	first.SetMeta(order.MetaPaymentToken, "tok_1")
	require.NoError(t, store.Create(ctx, first))

	second := &order.Order{Status: order.StatusPending}
	second.SetMeta(order.MetaPaymentToken, "tok_2")
	require.NoError(t, store.Create(ctx, second))

	got, err := store.LoadByMeta(ctx, order.MetaPaymentToken, "tok_2")
	require.NoError(t, err)
	require.Equal(t, second.ID, got.ID)

	_, err = store.LoadByMeta(ctx, order.MetaPaymentToken, "tok_missing")
	require.ErrorIs(t, err, order.ErrNotFound)

	_, err = store.LoadByMeta(ctx, order.MetaPaymentToken, "")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestMemoryStorePendingBefore(t *testing.T) {
	t.Parallel()

	store := order.NewMemoryStore()
	ctx := context.Background()

	stale := &order.Order{Status: order.StatusPending}
	require.NoError(t, store.Create(ctx, stale))

	paid := &order.Order{Status: order.StatusPaid}
	require.NoError(t, store.Create(ctx, paid))

	got, err := store.PendingBefore(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, stale.ID, got[0].ID)

	got, err = store.PendingBefore(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Empty(t, got)
}
