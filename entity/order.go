package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "Pending"
	SyncStatusSynced     SyncStatus = "Synced"
	SyncStatusSyncFailed SyncStatus = "SyncFailed"
)

func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSynced, SyncStatusSyncFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order may move from s to next.
// SyncFailed only goes back to Pending, never straight to Synced.
func (s SyncStatus) CanTransitionTo(next SyncStatus) bool {
	switch s {
	case SyncStatusPending:
		return next == SyncStatusSynced || next == SyncStatusSyncFailed
	case SyncStatusSyncFailed:
		return next == SyncStatusPending
	}
	return false
}

// BookingEvent is a booking made upstream. BookingID is optional.
type BookingEvent struct {
	BookingID   string
	EventID     int64
	UserID      int64
	TicketCount int
	TotalPrice  decimal.Decimal
}

type Order struct {
	OrderID        string          `json:"order_id" db:"order_id"`
	IdempotencyKey string          `json:"idempotency_key" db:"idempotency_key"`
	CustomerID     int64           `json:"customer_id" db:"customer_id"`
	EventID        int64           `json:"event_id" db:"event_id"`
	TicketCount    int             `json:"ticket_count" db:"ticket_count"`
	TotalPrice     decimal.Decimal `json:"total_price" db:"total_price"`
	SyncStatus     SyncStatus      `json:"sync_status" db:"sync_status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}
