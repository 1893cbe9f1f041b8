// Package reconcile watches for orders stuck awaiting webhook confirmation.
// The provider guarantees at-least-once delivery, so a long-pending order
// usually means a lost callback or a misconfigured webhook URL; the sweep
// surfaces those to operators instead of guessing an outcome.
package reconcile

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/monmi-labs/pay-gateway/internal/obs"
	"github.com/monmi-labs/pay-gateway/internal/order"
)

// TaskPendingSweep is the asynq task type for the periodic sweep.
const TaskPendingSweep = "reconcile:pending_sweep"

// NewPendingSweepTask builds the task enqueued by the scheduler.
func NewPendingSweepTask() *asynq.Task {
	return asynq.NewTask(TaskPendingSweep, nil)
}

// Sweeper lists orders that have sat in pending past the threshold.
type Sweeper struct {
	Orders       order.Store
	PendingAfter time.Duration
	Limit        int
	Log          zerolog.Logger
}

// HandlePendingSweep is the asynq handler. It never mutates orders: unknown
// payment outcomes stay pending until the provider says otherwise.
func (s *Sweeper) HandlePendingSweep(ctx context.Context, _ *asynq.Task) error {
	cutoff := time.Now().Add(-s.PendingAfter)
	stuck, err := s.Orders.PendingBefore(ctx, cutoff, s.Limit)
	if err != nil {
		return err
	}

	if obs.ReconcilePendingOrders != nil {
		obs.ReconcilePendingOrders.Set(float64(len(stuck)))
	}
	for _, o := range stuck {
		s.Log.Warn().
			Int64("order_id", o.ID).
			Time("updated_at", o.UpdatedAt).
			Str("gateway_status", o.GetMeta(order.MetaGatewayStatus)).
			Msg("order still awaiting webhook confirmation")
	}
	if len(stuck) > 0 {
		s.Log.Info().Int("count", len(stuck)).Msg("pending sweep complete")
	}
	return nil
}
