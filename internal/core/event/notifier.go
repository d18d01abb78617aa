package event

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Handle identifies a registered listener.
type Handle string

// Marker is told when a notifier receives its first event after a reset.
type Marker interface {
	MarkDirty(n *Notifier)
}

type listener struct {
	handle Handle
	fn     func(any) error
}

// Notifier is a double-buffered event queue. Submit may be called from any
// goroutine; Dispatch is called by the owner. Events submitted in one burst
// are delivered together by the next Dispatch.
type Notifier struct {
	mu        sync.Mutex
	live      []any
	drain     []any
	listeners []listener
	dirty     bool
	owner     Marker
}

// NewNotifier returns a notifier that reports its first submit after every
// reset to owner. owner may be nil.
func NewNotifier(owner Marker) *Notifier {
	return &Notifier{
		live:  make([]any, 0, 8),
		drain: make([]any, 0, 8),
		owner: owner,
	}
}

// Submit queues ev for the next Dispatch.
func (n *Notifier) Submit(ev any) {
	n.mu.Lock()
	n.live = append(n.live, ev)
	notify := !n.dirty
	n.dirty = true
	n.mu.Unlock()

	if notify && n.owner != nil {
		n.owner.MarkDirty(n)
	}
}

// Reset re-arms the dirty signal.
func (n *Notifier) Reset() {
	n.mu.Lock()
	n.dirty = false
	n.mu.Unlock()
}

// Dispatch swaps the live queue with the drain buffer and delivers every
// drained event to every listener in registration order. The lock is not
// held while listeners run, so they may submit; those events wait for the
// next Dispatch. Listener errors are joined.
func (n *Notifier) Dispatch() error {
	n.mu.Lock()
	n.live, n.drain = n.drain, n.live
	listeners := n.listeners
	n.mu.Unlock()

	var all error
	for _, ev := range n.drain {
		for _, l := range listeners {
			if err := l.fn(ev); err != nil {
				all = errors.Join(all, err)
			}
		}
	}
	clear(n.drain)
	n.drain = n.drain[:0]
	return all
}

// Pending returns the number of queued events.
func (n *Notifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.live)
}

// Listen registers fn for every event.
func (n *Notifier) Listen(fn func(any) error) Handle {
	h := Handle(uuid.NewString())
	n.mu.Lock()
	defer n.mu.Unlock()
	// Copy on write so a Dispatch in progress keeps its listener slice.
	next := make([]listener, len(n.listeners), len(n.listeners)+1)
	copy(next, n.listeners)
	n.listeners = append(next, listener{handle: h, fn: fn})
	return h
}

// Unlisten removes a listener. Unknown handles are ignored.
func (n *Notifier) Unlisten(h Handle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	next := make([]listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		if l.handle != h {
			next = append(next, l)
		}
	}
	n.listeners = next
}

// Listen registers a handler for events of type T only.
func Listen[T any](n *Notifier, fn func(T) error) Handle {
	return n.Listen(func(ev any) error {
		if t, ok := ev.(T); ok {
			return fn(t)
		}
		return nil
	})
}
