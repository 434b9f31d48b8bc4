package booking

import (
	"fmt"
	"orders/entity"

	"github.com/google/uuid"
)

var orderNamespace = uuid.MustParse("5b0f8a1e-3c2d-4e6f-9a7b-1c2d3e4f5a6b")

// IdempotencyKey identifies the logical booking behind an event.
func IdempotencyKey(e entity.BookingEvent) string {
	if e.BookingID != "" {
		return "booking:" + e.BookingID
	}
	return fmt.Sprintf("event:%d:user:%d", e.EventID, e.UserID)
}

// OrderID derives the order id from the idempotency key, so every delivery of
// the same booking maps to the same order.
func OrderID(idempotencyKey string) string {
	return uuid.NewSHA1(orderNamespace, []byte(idempotencyKey)).String()
}

// ToOrder validates a booking event and maps it to a Pending order.
func ToOrder(e entity.BookingEvent) (entity.Order, error) {
	if e.TicketCount <= 0 {
		return entity.Order{}, &ValidationError{
			Field:  "ticketCount",
			Reason: fmt.Sprintf("must be positive, got %d", e.TicketCount),
		}
	}

	if e.TotalPrice.IsNegative() {
		return entity.Order{}, &ValidationError{
			Field:  "totalPrice",
			Reason: fmt.Sprintf("must not be negative, got %s", e.TotalPrice),
		}
	}

	key := IdempotencyKey(e)

	return entity.Order{
		OrderID:        OrderID(key),
		IdempotencyKey: key,
		CustomerID:     e.UserID,
		EventID:        e.EventID,
		TicketCount:    e.TicketCount,
		TotalPrice:     e.TotalPrice,
		SyncStatus:     entity.SyncStatusPending,
	}, nil
}
