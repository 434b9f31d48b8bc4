package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"orders/booking"
	"orders/entity"
	"orders/event"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
)

var ErrNotAcknowledged = errors.New("booking event must be redelivered")

type BookingHandler interface {
	Handle(ctx context.Context, e entity.BookingEvent) booking.Outcome
}

// Handler decodes booking events and decides whether a delivery is
// acknowledged. It is shared by every transport.
type Handler struct {
	bookings BookingHandler
}

func NewHandler(bookings BookingHandler) Handler {
	return Handler{
		bookings: bookings,
	}
}

// Process returns nil when the delivery can be acknowledged.
func (h Handler) Process(ctx context.Context, payload []byte, idempotencyKey string) error {
	var e event.BookingEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		log.FromContext(ctx).WithError(err).Error("Dropping undecodable booking event")
		return nil
	}

	outcome := h.bookings.Handle(ctx, e.ToEntity(idempotencyKey))
	if outcome.Ack() {
		return nil
	}

	return fmt.Errorf("%w: %s: %w", ErrNotAcknowledged, outcome.Kind, outcome.Reason)
}

func (h Handler) HandleMessage(msg *message.Message) error {
	return h.Process(msg.Context(), msg.Payload, msg.Metadata.Get(event.MetadataIdempotencyKey))
}
