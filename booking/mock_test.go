package booking_test

import (
	"context"
	"errors"
	"orders/booking"
	"orders/entity"
	"sync"
)

type MemoryOrderStore struct {
	lock      sync.Mutex
	orders    map[string]entity.Order
	SaveErr   error
	UpdateErr error
	// FailUpdateCall limits UpdateErr to the Nth UpdateSyncStatus call.
	FailUpdateCall int
	updateCalls    int
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: map[string]entity.Order{}}
}

func (s *MemoryOrderStore) Save(_ context.Context, order entity.Order) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.SaveErr != nil {
		return s.SaveErr
	}
	if _, ok := s.orders[order.IdempotencyKey]; ok {
		return booking.ErrDuplicateKey
	}
	s.orders[order.IdempotencyKey] = order

	return nil
}

func (s *MemoryOrderStore) GetByIdempotencyKey(_ context.Context, key string) (entity.Order, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	order, ok := s.orders[key]
	if !ok {
		return entity.Order{}, booking.ErrOrderNotFound
	}

	return order, nil
}

func (s *MemoryOrderStore) UpdateSyncStatus(_ context.Context, orderID string, from, to entity.SyncStatus) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.updateCalls++
	if s.UpdateErr != nil && (s.FailUpdateCall == 0 || s.updateCalls == s.FailUpdateCall) {
		return s.UpdateErr
	}

	for key, order := range s.orders {
		if order.OrderID != orderID {
			continue
		}
		if order.SyncStatus != from || !from.CanTransitionTo(to) {
			return booking.ErrStatusConflict
		}
		order.SyncStatus = to
		s.orders[key] = order
		return nil
	}

	return booking.ErrOrderNotFound
}

func (s *MemoryOrderStore) Orders() []entity.Order {
	s.lock.Lock()
	defer s.lock.Unlock()

	orders := make([]entity.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, order)
	}

	return orders
}

type InventoryUpdate struct {
	IdempotencyKey string
	EventID        int64
	TicketCount    int
}

type MockInventoryClient struct {
	lock sync.Mutex
	// FailFirst makes the first N calls fail with Err.
	FailFirst int
	Err       error
	// OnCall runs before every call.
	OnCall  func(call int)
	Calls   []InventoryUpdate
	Updates []InventoryUpdate
}

func (m *MockInventoryClient) UpdateInventory(_ context.Context, idempotencyKey string, eventID int64, ticketCount int) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	update := InventoryUpdate{IdempotencyKey: idempotencyKey, EventID: eventID, TicketCount: ticketCount}
	m.Calls = append(m.Calls, update)

	if m.OnCall != nil {
		m.OnCall(len(m.Calls))
	}

	if len(m.Calls) <= m.FailFirst {
		if m.Err != nil {
			return m.Err
		}
		return errors.New("inventory service unavailable")
	}

	m.Updates = append(m.Updates, update)

	return nil
}

func (m *MockInventoryClient) CallCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return len(m.Calls)
}

func (m *MockInventoryClient) AppliedUpdates() []InventoryUpdate {
	m.lock.Lock()
	defer m.lock.Unlock()

	return append([]InventoryUpdate(nil), m.Updates...)
}

type rejectedError struct{}

func (rejectedError) Error() string   { return "inventory rejected the update" }
func (rejectedError) Permanent() bool { return true }

type RecordingMetrics struct {
	lock              sync.Mutex
	Outcomes          []booking.OutcomeKind
	Resyncs           []booking.OutcomeKind
	InventoryAttempts int
}

func (m *RecordingMetrics) OutcomeRecorded(outcome booking.Outcome) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.Outcomes = append(m.Outcomes, outcome.Kind)
}

func (m *RecordingMetrics) ResyncRecorded(outcome booking.Outcome) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.Resyncs = append(m.Resyncs, outcome.Kind)
}

func (m *RecordingMetrics) InventoryAttempted(error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.InventoryAttempts++
}
