package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/velanstores/backend-kadai/internal/lock"
)

// TypeOverdueSweep is the asynq task that flips past-due sent invoices to
// overdue. The worker schedules it on an interval.
const TypeOverdueSweep = "invoice:overdue_sweep"

const sweepLockKey = "lock:invoice:overdue_sweep"

// NewOverdueSweepTask builds the sweep task. It carries no payload; the
// sweep always covers everything past due.
func NewOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TypeOverdueSweep, nil)
}

// TaskHandler adapts the invoice service to asynq. When a Locker is
// configured the sweep runs under a distributed lock so overlapping workers
// do not race on the same rows.
type TaskHandler struct {
	Service *Service
	Locker  lock.Locker
	LockTTL time.Duration
	Log     zerolog.Logger
}

// Register attaches all invoice task handlers to the mux.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOverdueSweep, h.HandleOverdueSweep)
}

// HandleOverdueSweep runs one overdue sweep.
func (h *TaskHandler) HandleOverdueSweep(ctx context.Context, _ *asynq.Task) error {
	if h.Service == nil {
		return errors.New("invoice: service not configured")
	}
	if h.Locker.R == nil {
		return h.sweep(ctx)
	}
	ttl := h.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return h.Locker.WithLock(ctx, sweepLockKey, ttl, h.sweep)
}

func (h *TaskHandler) sweep(ctx context.Context) error {
	count, err := h.Service.SweepOverdue(ctx)
	if err != nil {
		h.Log.Error().Err(err).Msg("overdue sweep failed")
		return err
	}
	if count > 0 {
		h.Log.Info().Int("invoices", count).Msg("marked invoices overdue")
	}
	return nil
}
