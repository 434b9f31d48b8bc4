package tests_test

import (
	"net/http"
	"strconv"
	"sync"
)

type InventoryUpdate struct {
	EventID        int64
	TicketCount    int
	IdempotencyKey string
}

type MockInventoryService struct {
	lock         sync.Mutex
	FailEventIDs map[int64]bool
	Calls        []InventoryUpdate
	Updates      []InventoryUpdate
}

func NewMockInventoryService() *MockInventoryService {
	return &MockInventoryService{FailEventIDs: map[int64]bool{}}
}

func (m *MockInventoryService) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/v1/inventory/event/{eventId}/capacity/{ticketCount}", m.updateInventory)
	return mux
}

func (m *MockInventoryService) updateInventory(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(r.PathValue("eventId"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	ticketCount, err := strconv.Atoi(r.PathValue("ticketCount"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	update := InventoryUpdate{
		EventID:        eventID,
		TicketCount:    ticketCount,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	m.Calls = append(m.Calls, update)

	if m.FailEventIDs[eventID] {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	m.Updates = append(m.Updates, update)
	w.WriteHeader(http.StatusOK)
}

func (m *MockInventoryService) SetFailing(eventID int64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.FailEventIDs[eventID] = true
}

func (m *MockInventoryService) CallsFor(eventID int64) []InventoryUpdate {
	m.lock.Lock()
	defer m.lock.Unlock()

	var calls []InventoryUpdate
	for _, c := range m.Calls {
		if c.EventID == eventID {
			calls = append(calls, c)
		}
	}
	return calls
}

func (m *MockInventoryService) UpdatesFor(eventID int64) []InventoryUpdate {
	m.lock.Lock()
	defer m.lock.Unlock()

	var updates []InventoryUpdate
	for _, u := range m.Updates {
		if u.EventID == eventID {
			updates = append(updates, u)
		}
	}
	return updates
}
