// Package queue provides the bounded in-memory priority-lane queue between
// the scheduler and the check workers.
//
// Lane 0 is the most urgent. Dequeue always drains lower lanes first, so
// Tier1 work cannot sit behind a Tier4 backlog.
package queue

import (
	"context"
	"sync"
	"time"

	"dealwatch/internal/domain/model"
	"dealwatch/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultLaneCount = 4
	defaultLaneDepth = 20_000

	// idlePoll bounds how long an idle consumer sleeps when it lost the
	// wake race to another consumer.
	idlePoll = 50 * time.Millisecond
)

// Item is the payload type flowing through the queue.
type Item = model.WorkItem

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an item to its priority lane.
	// Returns false if the lane is full or the queue is closed; the caller
	// treats that as back-pressure, never as an error.
	Enqueue(ctx context.Context, it Item) bool

	// Dequeue returns a channel yielding items, most urgent lane first.
	// The channel closes when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Item

	// Len returns the total number of queued items.
	Len(ctx context.Context) int

	// Close stops new enqueues; queued items remain consumable.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// LaneQueue implements Queue with one buffered channel per lane.
type LaneQueue struct {
	lanes     []chan Item
	laneCount int
	laneDepth int

	wake chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewLaneQueue creates a lane queue with configuration options.
func NewLaneQueue(opts ...Option) *LaneQueue {
	q := &LaneQueue{
		laneCount: defaultLaneCount,
		laneDepth: defaultLaneDepth,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}

	q.lanes = make([]chan Item, q.laneCount)
	for i := range q.lanes {
		q.lanes[i] = make(chan Item, q.laneDepth)
		metrics.UpdateQueueDepth(i, 0)
	}
	return q
}

// Enqueue adds an item onto its lane without blocking.
func (q *LaneQueue) Enqueue(ctx context.Context, it Item) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	lane := it.Lane
	if lane < 0 || lane >= q.laneCount {
		lane = q.laneCount - 1
	}

	select {
	case q.lanes[lane] <- it:
		metrics.UpdateQueueDepth(lane, len(q.lanes[lane]))
		q.signal()
		return true
	case <-ctx.Done():
		return false
	default:
		return false // lane full
	}
}

// Dequeue returns a channel fed by a per-consumer drain loop.
func (q *LaneQueue) Dequeue(ctx context.Context) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)
		for {
			it, ok := q.next(ctx)
			if !ok {
				return
			}
			select {
			case out <- it:
				metrics.UpdateQueueDepth(it.Lane, len(q.lanes[it.Lane]))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// next blocks until an item is available, preferring lower lanes. It returns
// false once the queue is closed and drained or the context ends.
func (q *LaneQueue) next(ctx context.Context) (Item, bool) {
	for {
		for _, lane := range q.lanes {
			select {
			case it, ok := <-lane:
				if ok {
					return it, true
				}
				// lane closed and drained; fall through to the rest
			default:
			}
		}

		if q.IsClosed() {
			// Final sweep: an enqueue may have raced the close.
			for _, lane := range q.lanes {
				select {
				case it := <-lane:
					return it, true
				default:
				}
			}
			return Item{}, false
		}

		select {
		case <-ctx.Done():
			return Item{}, false
		case <-q.wake:
		case <-time.After(idlePoll):
		}
	}
}

// signal wakes one idle consumer; the rest catch up on the idle poll.
func (q *LaneQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Len returns the total queued item count across lanes.
func (q *LaneQueue) Len(_ context.Context) int {
	total := 0
	for _, lane := range q.lanes {
		total += len(lane)
	}
	return total
}

// LaneLen returns the queued item count for one lane.
func (q *LaneQueue) LaneLen(_ context.Context, lane int) int {
	if lane < 0 || lane >= q.laneCount {
		return 0
	}
	return len(q.lanes[lane])
}

// Close stops new enqueues. Consumers drain what remains, then their dequeue
// channels close.
func (q *LaneQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	q.signal()
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *LaneQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
