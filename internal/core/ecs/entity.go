package ecs

import (
	"fmt"
	"sort"

	"github.com/forgesim/server/internal/core/event"
	"golang.org/x/text/unicode/norm"
)

// EntityID identifies an entity for the lifetime of the process. Ids are
// never reused.
type EntityID uint64

// IDGenerator hands out monotonically increasing ids starting at 1.
// Entities and templates use separate generators, so their id spaces are
// disjoint by type and never recycle.
type IDGenerator struct {
	last uint64
}

func (g *IDGenerator) Next() uint64 {
	g.last++
	return g.last
}

// Last returns the most recently issued id, or 0.
func (g *IDGenerator) Last() uint64 { return g.last }

type entityState uint8

const (
	entityPending entityState = iota // created, not yet committed
	entityActive
	entityRemoved // destroyed; observable for one tick
	entityGone
)

// Entity is a sparse set of data slots keyed by accessor. All methods must
// be called from the goroutine that owns the World.
type Entity struct {
	id    EntityID
	name  string
	world *World
	slots map[Accessor]*slot
	mask  Mask

	state          entityState
	destroyPending bool

	// touched lists slots mutated since the last commit, in mutation order.
	touched []Accessor
	dirty   bool

	// Observation window filled in by the last commit.
	wasAdded    Mask
	wasModified Mask
	wasRemoved  Mask
	observed    bool

	events *event.Notifier

	version    uint64
	captured   *EntitySnapshot
	capturedAt uint64
}

func normalizeName(name string) string {
	return norm.NFC.String(name)
}

func (e *Entity) ID() EntityID       { return e.id }
func (e *Entity) PrettyName() string { return e.name }

// SetPrettyName renames the entity. Names are diagnostic only.
func (e *Entity) SetPrettyName(name string) {
	e.name = normalizeName(name)
	e.version++
}

func (e *Entity) String() string {
	if e.name == "" {
		return fmt.Sprintf("entity %d", e.id)
	}
	return fmt.Sprintf("entity %d (%s)", e.id, e.name)
}

func (e *Entity) kindName(a Accessor) string {
	if n := e.world.accessors.Name(a); n != "" {
		return n
	}
	return fmt.Sprintf("accessor %d", a.id)
}

func (e *Entity) touch(a Accessor) {
	e.version++
	e.touched = append(e.touched, a)
	if !e.dirty {
		e.dirty = true
		e.world.dirty = append(e.world.dirty, e)
	}
}

func (e *Entity) markDirty() {
	e.version++
	if !e.dirty {
		e.dirty = true
		e.world.dirty = append(e.world.dirty, e)
	}
}

// AddData creates a fresh default instance of the kind behind a and returns
// it for initialization. The slot is observable through Current at once.
func (e *Entity) AddData(a Accessor) (Data, error) {
	if e.state >= entityRemoved {
		return nil, fmt.Errorf("add %s to %s: %w", e.kindName(a), e, ErrEntityRemoved)
	}
	if !e.world.accessors.known(a) {
		return nil, fmt.Errorf("add accessor %d to %s: unknown accessor", a.id, e)
	}
	s, ok := e.slots[a]
	if ok && s.state != mutRemoved {
		return nil, fmt.Errorf("add %s to %s: %w", e.kindName(a), e, ErrAlreadyAddedData)
	}
	ns := newSlot(e.world.accessors.New(a), e.world.accessors.Variant(a))
	if ok && !s.lingering {
		// Re-adding over data removed this tick replaces it. The old slot
		// was already touched, so it is queued for commit.
		ns.replaced = !s.fresh || s.replaced
		ns.previous = s.previous
		e.slots[a] = ns
		e.mask.set(a)
		e.version++
		return ns.current, nil
	}
	e.slots[a] = ns
	e.mask.set(a)
	e.touch(a)
	return ns.current, nil
}

// AddOrModify adds the data when absent and otherwise modifies it.
func (e *Entity) AddOrModify(a Accessor) (Data, error) {
	if e.ContainsData(a) {
		return e.Modify(a)
	}
	return e.AddData(a)
}

// RemoveData marks the slot removed. Storage is released one commit after
// the removal was observed. It reports false when there is nothing to remove.
func (e *Entity) RemoveData(a Accessor) bool {
	s, ok := e.slots[a]
	if !ok || s.state == mutRemoved || e.state >= entityRemoved {
		return false
	}
	wasTouched := s.state != mutNone
	s.state = mutRemoved
	e.mask.unset(a)
	if wasTouched {
		e.version++
	} else {
		e.touch(a)
	}
	return true
}

// Modify returns the mutable current value. Non-concurrent data can be
// modified once per tick.
func (e *Entity) Modify(a Accessor) (Data, error) {
	s, ok := e.slots[a]
	if !ok || e.state >= entityRemoved {
		return nil, fmt.Errorf("modify %s on %s: %w", e.kindName(a), e, ErrNoSuchData)
	}
	wasTouched := s.state != mutNone
	d, err := s.modify()
	if err != nil {
		return nil, fmt.Errorf("modify %s on %s: %w", e.kindName(a), e, err)
	}
	if wasTouched {
		e.version++
	} else {
		e.touch(a)
	}
	return d, nil
}

// Current returns the live value. Removed slots still answer through their
// removal window. The value must not be mutated; use Modify.
func (e *Entity) Current(a Accessor) (Data, error) {
	s, ok := e.slots[a]
	if !ok {
		return nil, fmt.Errorf("current %s on %s: %w", e.kindName(a), e, ErrNoSuchData)
	}
	return s.current, nil
}

// Previous returns the value as of the start of the last modifying tick.
func (e *Entity) Previous(a Accessor) (Data, error) {
	s, ok := e.slots[a]
	if !ok {
		return nil, fmt.Errorf("previous %s on %s: %w", e.kindName(a), e, ErrNoSuchData)
	}
	d, err := s.prev()
	if err != nil {
		return nil, fmt.Errorf("previous %s on %s: %w", e.kindName(a), e, err)
	}
	return d, nil
}

// ContainsData is false for removed slots even though Current still answers.
func (e *Entity) ContainsData(a Accessor) bool {
	s, ok := e.slots[a]
	return ok && s.state != mutRemoved && e.state < entityRemoved
}

// WasAdded reports whether a was added at the last commit.
func (e *Entity) WasAdded(a Accessor) bool { return e.wasAdded.Has(a) }

// WasModified reports whether a was modified at the last commit.
func (e *Entity) WasModified(a Accessor) bool { return e.wasModified.Has(a) }

// WasRemoved reports whether a was removed at the last commit.
func (e *Entity) WasRemoved(a Accessor) bool { return e.wasRemoved.Has(a) }

// Accessors returns the accessors of every contained slot in id order.
func (e *Entity) Accessors() []Accessor {
	out := make([]Accessor, 0, len(e.slots))
	for a, s := range e.slots {
		if s.state != mutRemoved {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Destroy queues the entity for removal at the next commit. Systems observe
// the removal of all its data for one more tick. The global entity cannot
// be destroyed.
func (e *Entity) Destroy() {
	if e.destroyPending || e.state >= entityRemoved || e == e.world.global {
		return
	}
	e.destroyPending = true
	e.version++
	e.world.destroyQueue = append(e.world.destroyQueue, e)
}

// IsDestroyed reports whether Destroy was called or the entity is removed.
func (e *Entity) IsDestroyed() bool {
	return e.destroyPending || e.state >= entityRemoved
}

// Events returns the entity's notifier, creating it on first use.
func (e *Entity) Events() *event.Notifier {
	if e.events == nil {
		e.events = event.NewNotifier(e.world.events)
	}
	return e.events
}
