package metrics

import (
	"orders/booking"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	bookingEvents     *prometheus.CounterVec
	resyncs           *prometheus.CounterVec
	inventoryAttempts *prometheus.CounterVec
	orderSyncs        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_booking_events_total",
				Help: "Booking events handled, by outcome.",
			},
			[]string{"outcome"},
		),
		resyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_resyncs_total",
				Help: "Reconciliation resyncs of SyncFailed orders, by outcome.",
			},
			[]string{"outcome"},
		),
		inventoryAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_inventory_update_attempts_total",
				Help: "Inventory update calls, by result.",
			},
			[]string{"result"},
		),
		orderSyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_inventory_sync_total",
				Help: "Orders whose inventory sync finished, by final sync status.",
			},
			[]string{"sync_status"},
		),
	}

	reg.MustRegister(m.bookingEvents, m.resyncs, m.inventoryAttempts, m.orderSyncs)

	return m
}

func (m *Metrics) OutcomeRecorded(outcome booking.Outcome) {
	m.bookingEvents.WithLabelValues(outcome.Kind.String()).Inc()

	if outcome.Kind == booking.Processed {
		m.orderSyncs.WithLabelValues(string(outcome.Order.SyncStatus)).Inc()
	}
}

func (m *Metrics) ResyncRecorded(outcome booking.Outcome) {
	m.resyncs.WithLabelValues(outcome.Kind.String()).Inc()

	if outcome.Kind == booking.Processed {
		m.orderSyncs.WithLabelValues(string(outcome.Order.SyncStatus)).Inc()
	}
}

func (m *Metrics) InventoryAttempted(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.inventoryAttempts.WithLabelValues(result).Inc()
}
