package event

import (
	"orders/entity"

	"github.com/shopspring/decimal"
)

const (
	TopicBooking = "booking"

	// MetadataIdempotencyKey is the message metadata (or Kafka header) a producer
	// may set to identify the booking when the payload has no bookingId.
	MetadataIdempotencyKey = "idempotency_key"
	// MetadataCorrelationID matches watermill's correlation id metadata key.
	MetadataCorrelationID = "correlation_id"
)

// BookingEvent is the payload published on the booking topic.
type BookingEvent struct {
	BookingID   string          `json:"bookingId,omitempty"`
	EventID     int64           `json:"eventId"`
	UserID      int64           `json:"userId"`
	TicketCount int             `json:"ticketCount"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

func NewBookingEvent(e entity.BookingEvent) BookingEvent {
	return BookingEvent{
		BookingID:   e.BookingID,
		EventID:     e.EventID,
		UserID:      e.UserID,
		TicketCount: e.TicketCount,
		TotalPrice:  e.TotalPrice,
	}
}

// ToEntity maps the payload to the domain event. idempotencyKey is used as the
// booking id when the payload does not carry one.
func (e BookingEvent) ToEntity(idempotencyKey string) entity.BookingEvent {
	bookingID := e.BookingID
	if bookingID == "" {
		bookingID = idempotencyKey
	}

	return entity.BookingEvent{
		BookingID:   bookingID,
		EventID:     e.EventID,
		UserID:      e.UserID,
		TicketCount: e.TicketCount,
		TotalPrice:  e.TotalPrice,
	}
}
