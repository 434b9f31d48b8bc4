package booking

import (
	"context"
	"errors"
	"fmt"
	"orders/entity"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

type OrderStore interface {
	Save(ctx context.Context, order entity.Order) error
	GetByIdempotencyKey(ctx context.Context, key string) (entity.Order, error)
	UpdateSyncStatus(ctx context.Context, orderID string, from, to entity.SyncStatus) error
}

type InventoryClient interface {
	UpdateInventory(ctx context.Context, idempotencyKey string, eventID int64, ticketCount int) error
}

type Metrics interface {
	OutcomeRecorded(outcome Outcome)
	ResyncRecorded(outcome Outcome)
	InventoryAttempted(err error)
}

type OutcomeKind int

const (
	Processed OutcomeKind = iota + 1
	DuplicateSkipped
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Processed:
		return "processed"
	case DuplicateSkipped:
		return "duplicate_skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type Outcome struct {
	Kind   OutcomeKind
	Order  entity.Order
	Reason error
}

// Ack reports whether the delivery that produced the outcome must be
// acknowledged. Invalid events are acked so they are not redelivered.
func (o Outcome) Ack() bool {
	switch o.Kind {
	case Processed, DuplicateSkipped:
		return true
	}

	var validationErr *ValidationError
	return errors.As(o.Reason, &validationErr)
}

func failed(reason error) Outcome {
	return Outcome{Kind: Failed, Reason: reason}
}

type Options struct {
	StoreTimeout     time.Duration
	InventoryTimeout time.Duration
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	Multiplier       float64
	Metrics          Metrics
}

func DefaultOptions() Options {
	return Options{
		StoreTimeout:     5 * time.Second,
		InventoryTimeout: 5 * time.Second,
		MaxAttempts:      5,
		InitialBackoff:   200 * time.Millisecond,
		MaxBackoff:       5 * time.Second,
		Multiplier:       2,
	}
}

type Consumer struct {
	store     OrderStore
	inventory InventoryClient
	opts      Options
	metrics   Metrics
}

func NewConsumer(store OrderStore, inventory InventoryClient, opts Options) *Consumer {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Multiplier < 1 {
		opts.Multiplier = 1
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Consumer{
		store:     store,
		inventory: inventory,
		opts:      opts,
		metrics:   metrics,
	}
}

// Handle turns a booking event into a persisted order and syncs its tickets
// with the inventory service.
func (c *Consumer) Handle(ctx context.Context, e entity.BookingEvent) Outcome {
	outcome := c.handle(ctx, e)
	c.metrics.OutcomeRecorded(outcome)
	return outcome
}

func (c *Consumer) handle(ctx context.Context, e entity.BookingEvent) Outcome {
	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"event_id":     e.EventID,
		"user_id":      e.UserID,
		"ticket_count": e.TicketCount,
		"total_price":  e.TotalPrice.String(),
	})
	logger.Info("Received booking event")

	order, err := ToOrder(e)
	if err != nil {
		logger.WithError(err).Error("Dropping invalid booking event")
		return failed(err)
	}

	logger = logger.WithFields(logrus.Fields{
		"order_id":        order.OrderID,
		"idempotency_key": order.IdempotencyKey,
	})

	if err := c.save(ctx, order); err != nil {
		if !errors.Is(err, ErrDuplicateKey) {
			return failed(&StoreError{Op: "saving order", Err: err})
		}

		existing, err := c.getByIdempotencyKey(ctx, order.IdempotencyKey)
		if err != nil {
			return failed(&StoreError{Op: "loading existing order", Err: err})
		}

		if existing.SyncStatus != entity.SyncStatusPending {
			logger.WithField("sync_status", existing.SyncStatus).Info("Skipping duplicate booking event")
			return Outcome{Kind: DuplicateSkipped, Order: existing}
		}

		logger.Info("Resuming inventory sync of pending order")
		order = existing
	}

	return c.sync(ctx, logger, order)
}

// Resync retries the inventory sync of an order that previously exhausted its
// attempts.
func (c *Consumer) Resync(ctx context.Context, order entity.Order) Outcome {
	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id": order.OrderID,
		"event_id": order.EventID,
	})

	if order.SyncStatus != entity.SyncStatusSyncFailed {
		return failed(fmt.Errorf("resyncing order in status %s: %w", order.SyncStatus, ErrStatusConflict))
	}

	if err := c.updateSyncStatus(ctx, order, entity.SyncStatusPending); err != nil {
		return failed(&StoreError{Op: "reopening order", Err: err})
	}
	order.SyncStatus = entity.SyncStatusPending

	outcome := c.sync(ctx, logger, order)
	if outcome.Kind == Failed {
		// No booking redelivery follows a resync, so the order goes back to SyncFailed.
		if err := c.updateSyncStatus(ctx, order, entity.SyncStatusSyncFailed); err != nil {
			logger.WithError(err).Error("Could not return order to SyncFailed")
		}
	}
	c.metrics.ResyncRecorded(outcome)

	return outcome
}

func (c *Consumer) sync(ctx context.Context, logger *logrus.Entry, order entity.Order) Outcome {
	syncErr := c.updateInventory(ctx, logger, order)
	if syncErr != nil && ctx.Err() != nil {
		logger.WithError(syncErr).Warn("Inventory sync interrupted, order left pending")
		return failed(fmt.Errorf("syncing inventory: %w", ctx.Err()))
	}

	status := entity.SyncStatusSynced
	if syncErr != nil {
		status = entity.SyncStatusSyncFailed
	}

	if err := c.updateSyncStatus(ctx, order, status); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			if current, ok := c.settledElsewhere(ctx, order); ok {
				logger.WithField("sync_status", current.SyncStatus).Info("Order sync already finished by another writer")
				return Outcome{Kind: DuplicateSkipped, Order: current}
			}
		}
		return failed(&StoreError{Op: "updating sync status", Err: err})
	}
	order.SyncStatus = status

	if syncErr != nil {
		logger.WithError(syncErr).Error("Inventory sync failed, order marked for reconciliation")
	} else {
		logger.Infof("Inventory updated for event ID: %d, Ticket Count: %d", order.EventID, order.TicketCount)
	}

	return Outcome{Kind: Processed, Order: order}
}

func (c *Consumer) updateInventory(ctx context.Context, logger *logrus.Entry, order entity.Order) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialBackoff
	b.MaxInterval = c.opts.MaxBackoff
	b.Multiplier = c.opts.Multiplier
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.opts.MaxAttempts-1)), ctx)

	attempt := 0
	operation := func() error {
		attempt++

		callCtx, cancel := context.WithTimeout(ctx, c.opts.InventoryTimeout)
		defer cancel()

		err := c.inventory.UpdateInventory(callCtx, order.IdempotencyKey, order.EventID, order.TicketCount)
		c.metrics.InventoryAttempted(err)
		if err != nil && isPermanent(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	notify := func(err error, next time.Duration) {
		logger.WithError(err).WithField("attempt", attempt).Warnf("Inventory update failed, retrying in %s", next)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return fmt.Errorf("updating inventory after %d attempt(s): %w", attempt, err)
	}

	return nil
}

func (c *Consumer) save(ctx context.Context, order entity.Order) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.StoreTimeout)
	defer cancel()

	return c.store.Save(ctx, order)
}

func (c *Consumer) getByIdempotencyKey(ctx context.Context, key string) (entity.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.StoreTimeout)
	defer cancel()

	return c.store.GetByIdempotencyKey(ctx, key)
}

// settledElsewhere reports whether a concurrent writer, a reconciler resync
// racing a redelivery, already moved the order out of Pending.
func (c *Consumer) settledElsewhere(ctx context.Context, order entity.Order) (entity.Order, bool) {
	current, err := c.getByIdempotencyKey(context.WithoutCancel(ctx), order.IdempotencyKey)
	if err != nil {
		return entity.Order{}, false
	}

	return current, current.SyncStatus != entity.SyncStatusPending
}

// updateSyncStatus is not cancelled with ctx: once the inventory call has an
// outcome it is recorded, bounded by the store timeout.
func (c *Consumer) updateSyncStatus(ctx context.Context, order entity.Order, to entity.SyncStatus) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.StoreTimeout)
	defer cancel()

	return c.store.UpdateSyncStatus(ctx, order.OrderID, order.SyncStatus, to)
}

type noopMetrics struct{}

func (noopMetrics) OutcomeRecorded(Outcome)  {}
func (noopMetrics) ResyncRecorded(Outcome)   {}
func (noopMetrics) InventoryAttempted(error) {}
