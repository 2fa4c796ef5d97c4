package notify

import (
	"context"
	"sync"
)

// Event is one enqueued deal notification.
type Event struct {
	DealID      string
	ProductID   uint
	DiscountPct float64
}

// MemoryDispatcher implements Dispatcher in memory for tests and redis-less
// local runs.
type MemoryDispatcher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryDispatcher creates an empty in-memory dispatcher.
func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{}
}

func (d *MemoryDispatcher) EnqueueDeal(_ context.Context, dealID string, productID uint, discountPct float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, Event{DealID: dealID, ProductID: productID, DiscountPct: discountPct})
	return nil
}

// Events returns a copy of everything enqueued so far.
func (d *MemoryDispatcher) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}
