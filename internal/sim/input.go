package sim

import (
	"sync"

	"github.com/forgesim/server/internal/core/system"
)

// InputQueue buffers inputs submitted from any goroutine until the tick loop
// drains them into the next Update. It is bounded; Push fails when full.
type InputQueue struct {
	mu      sync.Mutex
	items   []system.Input
	limit   int
	dropped uint64
}

func NewInputQueue(limit int) *InputQueue {
	return &InputQueue{items: make([]system.Input, 0, max(0, min(limit, 256))), limit: limit}
}

// Push queues in. It reports false and counts a drop when the queue is full.
func (q *InputQueue) Push(in system.Input) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.items) >= q.limit {
		q.dropped++
		return false
	}
	q.items = append(q.items, in)
	return true
}

// Drain removes up to upTo inputs in submission order. upTo <= 0 drains all.
func (q *InputQueue) Drain(upTo int) []system.Input {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if upTo > 0 && n > upTo {
		n = upTo
	}
	if n == 0 {
		return nil
	}
	out := make([]system.Input, n)
	copy(out, q.items[:n])
	rest := copy(q.items, q.items[n:])
	clear(q.items[rest:])
	q.items = q.items[:rest]
	return out
}

func (q *InputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many inputs were rejected because the queue was full.
func (q *InputQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
