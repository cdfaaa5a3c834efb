package worker

import (
	"sync"
	"time"
)

// Item is one failed lookup awaiting out-of-band re-attempt.
type Item struct {
	Postcode string

	// CorrelationID is the originating owner's identifier (e.g. an item ID)
	// used to deliver the resolved result back. Empty when no owner cares.
	CorrelationID string

	// RetryCount is monotonically non-decreasing; the item is dropped for
	// good once it reaches the worker's ceiling.
	RetryCount int

	LastError   string
	NextRetryAt time.Time
}

// Queue holds items awaiting re-attempt. The in-memory implementation below
// is best-effort and process-local; a durable implementation (Redis, a
// broker) can be substituted without touching the worker.
type Queue interface {
	// Enqueue adds an item. Re-queueing a mutated item after a failed
	// attempt goes through the same method.
	Enqueue(item Item)

	// DequeueDue removes and returns up to max items whose NextRetryAt is
	// not after now. Items not yet due stay queued.
	DequeueDue(now time.Time, max int) []Item

	// Len returns the number of queued items.
	Len() int
}

// MemoryQueue is the in-process Queue used by this core.
type MemoryQueue struct {
	mu    sync.Mutex
	items []Item
}

// NewMemoryQueue creates an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(item Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

func (q *MemoryQueue) DequeueDue(now time.Time, max int) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []Item
	remaining := q.items[:0]
	for _, item := range q.items {
		if len(due) < max && !item.NextRetryAt.After(now) {
			due = append(due, item)
			continue
		}
		remaining = append(remaining, item)
	}
	q.items = remaining
	return due
}

func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
