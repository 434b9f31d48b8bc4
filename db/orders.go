package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"orders/booking"
	"orders/entity"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

func CreateOrdersTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS orders (
		order_id UUID PRIMARY KEY,
		idempotency_key TEXT NOT NULL UNIQUE,
		customer_id BIGINT NOT NULL,
		event_id BIGINT NOT NULL,
		ticket_count BIGINT NOT NULL CHECK (ticket_count > 0),
		total_price NUMERIC NOT NULL CHECK (total_price >= 0),
		sync_status VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS orders_sync_status_idx ON orders (sync_status);`)
	return err
}

type OrderRepo struct {
	db *sqlx.DB
}

func NewOrderRepo(db *sqlx.DB) OrderRepo {
	return OrderRepo{
		db: db,
	}
}

// Save inserts a new order. It returns booking.ErrDuplicateKey when an order
// with the same idempotency key already exists.
func (r OrderRepo) Save(ctx context.Context, order entity.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := insertOrder(ctx, tx, order); err != nil {
		return errors.Join(err, rollback(tx))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func insertOrder(ctx context.Context, tx *sqlx.Tx, order entity.Order) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO orders
		(order_id, idempotency_key, customer_id, event_id, ticket_count, total_price, sync_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		order.OrderID, order.IdempotencyKey, order.CustomerID, order.EventID,
		order.TicketCount, order.TotalPrice, order.SyncStatus)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return booking.ErrDuplicateKey
		}
		return fmt.Errorf("inserting order: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return booking.ErrDuplicateKey
	}

	return nil
}

func rollback(tx *sqlx.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

const selectOrder = `SELECT order_id, idempotency_key, customer_id, event_id, ticket_count,
	total_price, sync_status, created_at, updated_at FROM orders`

func (r OrderRepo) Get(ctx context.Context, orderID string) (entity.Order, error) {
	return r.getOne(ctx, selectOrder+" WHERE order_id = $1", orderID)
}

func (r OrderRepo) GetByIdempotencyKey(ctx context.Context, key string) (entity.Order, error) {
	return r.getOne(ctx, selectOrder+" WHERE idempotency_key = $1", key)
}

func (r OrderRepo) getOne(ctx context.Context, query string, arg any) (entity.Order, error) {
	var order entity.Order
	if err := r.db.GetContext(ctx, &order, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Order{}, booking.ErrOrderNotFound
		}
		return entity.Order{}, fmt.Errorf("querying order: %w", err)
	}

	return order, nil
}

// UpdateSyncStatus moves an order from one sync status to another. It returns
// booking.ErrStatusConflict when the order is not in the from status.
func (r OrderRepo) UpdateSyncStatus(ctx context.Context, orderID string, from, to entity.SyncStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("changing sync status from %s to %s: %w", from, to, booking.ErrStatusConflict)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE orders
		SET sync_status = $3, updated_at = now()
		WHERE order_id = $1 AND sync_status = $2`,
		orderID, from, to)
	if err != nil {
		return fmt.Errorf("executing update query: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n != 1 {
		return booking.ErrStatusConflict
	}

	return nil
}

type ListFilter struct {
	SyncStatus entity.SyncStatus
	Limit      int
	// OldestUpdatedFirst lists orders by their last status change instead of
	// newest first, so a batch rotates through orders that keep failing.
	OldestUpdatedFirst bool
}

func (r OrderRepo) List(ctx context.Context, filter ListFilter) ([]entity.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := selectOrder
	args := []any{}
	if filter.SyncStatus != "" {
		query += " WHERE sync_status = $1"
		args = append(args, filter.SyncStatus)
	}
	order := "created_at DESC"
	if filter.OldestUpdatedFirst {
		order = "updated_at ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s LIMIT %d", order, limit)

	orders := []entity.Order{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}

	return orders, nil
}
