package reconcile

import (
	"context"
	"fmt"
	"orders/booking"
	"orders/db"
	"orders/entity"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

type OrderLister interface {
	List(ctx context.Context, filter db.ListFilter) ([]entity.Order, error)
}

type Resyncer interface {
	Resync(ctx context.Context, order entity.Order) booking.Outcome
}

type Result struct {
	Synced      int
	StillFailed int
	Skipped     int
	Errors      int
}

// Reconciler periodically retries the inventory sync of SyncFailed orders.
type Reconciler struct {
	orders    OrderLister
	resyncer  Resyncer
	interval  time.Duration
	batchSize int
}

func NewReconciler(orders OrderLister, resyncer Resyncer, interval time.Duration, batchSize int) *Reconciler {
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Reconciler{
		orders:    orders,
		resyncer:  resyncer,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (r *Reconciler) Run(ctx context.Context) error {
	if r.interval <= 0 {
		logrus.Info("Reconciliation disabled")
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				logrus.WithError(err).Error("Reconciliation failed")
			}
		}
	}
}

func (r *Reconciler) RunOnce(ctx context.Context) (Result, error) {
	correlationID := "reconcile_" + shortuuid.New()
	ctx = log.ContextWithCorrelationID(ctx, correlationID)
	ctx = log.ToContext(ctx, logrus.WithField("correlation_id", correlationID))
	logger := log.FromContext(ctx)

	orders, err := r.orders.List(ctx, db.ListFilter{
		SyncStatus:         entity.SyncStatusSyncFailed,
		Limit:              r.batchSize,
		OldestUpdatedFirst: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("listing orders to reconcile: %w", err)
	}

	var result Result
	for _, order := range orders {
		if ctx.Err() != nil {
			break
		}

		outcome := r.resyncer.Resync(ctx, order)
		switch {
		case outcome.Kind == booking.Processed && outcome.Order.SyncStatus == entity.SyncStatusSynced:
			result.Synced++
		case outcome.Kind == booking.Processed:
			result.StillFailed++
		case outcome.Kind == booking.DuplicateSkipped:
			result.Skipped++
		default:
			result.Errors++
			logger.WithError(outcome.Reason).WithField("order_id", order.OrderID).Warn("Could not reconcile order")
		}
	}

	if len(orders) > 0 {
		logger.WithFields(logrus.Fields{
			"synced":       result.Synced,
			"still_failed": result.StillFailed,
			"skipped":      result.Skipped,
			"errors":       result.Errors,
		}).Info("Reconciled SyncFailed orders")
	}

	return result, nil
}
