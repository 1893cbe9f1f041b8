package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/monmi-labs/pay-gateway/internal/order"
	"github.com/monmi-labs/pay-gateway/internal/reconcile"
)

func TestPendingSweepLeavesOrdersUntouched(t *testing.T) {
	t.Parallel()

	orders := order.NewMemoryStore()
	ctx := context.Background()

	stuck := &order.Order{Status: order.StatusPending}
	require.NoError(t, orders.Create(ctx, stuck))
	paid := &order.Order{Status: order.StatusPaid}
	require.NoError(t, orders.Create(ctx, paid))

	sweeper := &reconcile.Sweeper{
		Orders:       orders,
		PendingAfter: -time.Minute, // cutoff in the future: everything pending counts
		Limit:        10,
		Log:          zerolog.Nop(),
	}

	require.NoError(t, sweeper.HandlePendingSweep(ctx, reconcile.NewPendingSweepTask()))

	got, err := orders.LoadByID(ctx, stuck.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, got.Status)
	require.Empty(t, got.Notes)
}

func TestPendingSweepHonorsThreshold(t *testing.T) {
	t.Parallel()

	orders := order.NewMemoryStore()
	ctx := context.Background()
	fresh := &order.Order{Status: order.StatusPending}
	require.NoError(t, orders.Create(ctx, fresh))

	sweeper := &reconcile.Sweeper{
		Orders:       orders,
		PendingAfter: time.Hour,
		Limit:        10,
		Log:          zerolog.Nop(),
	}
	require.NoError(t, sweeper.HandlePendingSweep(ctx, reconcile.NewPendingSweepTask()))

	got, err := orders.LoadByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, got.Status)
}
