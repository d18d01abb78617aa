package event

import (
	"errors"
	"sync"
)

// Aggregator collects notifiers that have pending events so the owner can
// drain exactly those without scanning every notifier.
type Aggregator struct {
	mu     sync.Mutex
	marked []*Notifier
	spare  []*Notifier
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		marked: make([]*Notifier, 0, 64),
		spare:  make([]*Notifier, 0, 64),
	}
}

// MarkDirty implements Marker.
func (a *Aggregator) MarkDirty(n *Notifier) {
	a.mu.Lock()
	a.marked = append(a.marked, n)
	a.mu.Unlock()
}

// Len returns the number of notifiers waiting to be drained.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.marked)
}

// DispatchAll drains every marked notifier in marking order. Each notifier
// is reset before it dispatches, so events submitted by listeners mark it
// again for the next round.
func (a *Aggregator) DispatchAll() error {
	a.mu.Lock()
	batch := a.marked
	a.marked = a.spare[:0]
	a.mu.Unlock()

	var all error
	for _, n := range batch {
		n.Reset()
		if err := n.Dispatch(); err != nil {
			all = errors.Join(all, err)
		}
	}
	clear(batch)

	a.mu.Lock()
	a.spare = batch[:0]
	a.mu.Unlock()
	return all
}
