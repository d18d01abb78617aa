package ecs

import (
	"fmt"
	"sort"

	"github.com/forgesim/server/internal/core/event"
	"go.uber.org/zap"
)

// World is the entity store. It owns every entity and template, the deferred
// destruction queue and the commit step that closes a tick. A World is
// single-writer: only the update goroutine (or a caller holding the engine's
// tick lock) may touch it.
type World struct {
	accessors   *AccessorRegistry
	entityIDs   IDGenerator
	templateIDs IDGenerator
	log         *zap.Logger

	index   map[EntityID]*Entity
	pending []*Entity
	active  []*Entity // ordered by id
	added   []*Entity // activated at the last commit
	removed []*Entity // destroyed at the last commit

	destroyQueue []*Entity
	dirty        []*Entity
	observed     []*Entity

	templates     map[TemplateID]*Template
	templateOrder []*Template
	frozen        bool

	global *Entity
	events *event.Aggregator
}

func NewWorld(accessors *AccessorRegistry, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	w := &World{
		accessors: accessors,
		log:       log,
		index:     make(map[EntityID]*Entity, 1024),
		active:    make([]*Entity, 0, 1024),
		templates: make(map[TemplateID]*Template, 64),
		events:    event.NewAggregator(),
	}
	w.global = w.CreateEntity("global")
	return w
}

func (w *World) Accessors() *AccessorRegistry { return w.accessors }

// Events returns the aggregator that collects entities with pending events.
func (w *World) Events() *event.Aggregator { return w.events }

// Global returns the world-wide singleton entity.
func (w *World) Global() *Entity { return w.global }

// CreateEntity allocates an entity. It becomes active at the next commit.
func (w *World) CreateEntity(name string) *Entity {
	e := &Entity{
		id:    EntityID(w.entityIDs.Next()),
		name:  normalizeName(name),
		world: w,
		slots: make(map[Accessor]*slot, 8),
		state: entityPending,
	}
	w.index[e.id] = e
	w.pending = append(w.pending, e)
	e.markDirty()
	return e
}

// Entity is the entity index lookup. Pending entities and entities in their
// removal window are found as well.
func (w *World) Entity(id EntityID) (*Entity, bool) {
	e, ok := w.index[id]
	return e, ok
}

// Active returns the committed live entities ordered by id.
func (w *World) Active() []*Entity { return w.active }

// Added returns the entities activated at the last commit.
func (w *World) Added() []*Entity { return w.added }

// Removed returns the entities destroyed at the last commit. They stay
// readable until the following commit.
func (w *World) Removed() []*Entity { return w.removed }

// Pending returns entities created since the last commit.
func (w *World) Pending() []*Entity { return w.pending }

// Len returns the number of indexed entities, including pending and removed.
func (w *World) Len() int { return len(w.index) }

// Changes describes what a commit did. Entity slices are ordered by id.
type Changes struct {
	Added   []*Entity
	Removed []*Entity
	// Touched holds every live entity whose slots changed, including newly
	// added ones.
	Touched []*Entity
}

// Commit closes the pending phase. It resolves concurrent modifications that
// are still unresolved, drops slots removed at the previous commit, clears
// added flags, rolls
// previous values forward, applies queued destroys and activates new
// entities. Observation flags (WasAdded/WasModified/WasRemoved) describe this
// commit until the next one.
func (w *World) Commit() (*Changes, error) {
	// Resolve first so a failing resolver leaves the store untouched.
	if err := w.ResolveConcurrent(); err != nil {
		return nil, err
	}

	for _, e := range w.observed {
		e.settle()
	}
	w.observed = w.observed[:0]

	for _, e := range w.removed {
		e.state = entityGone
		e.version++
		delete(w.index, e.id)
	}
	w.removed = nil

	ch := &Changes{}
	dirty := w.dirty
	w.dirty = nil
	for _, e := range dirty {
		e.dirty = false
		if e.state == entityPending && e.destroyPending {
			continue
		}
		e.commitSlots()
		w.observe(e)
		if e.state == entityActive && !e.destroyPending {
			ch.Touched = append(ch.Touched, e)
		}
	}

	if len(w.destroyQueue) > 0 {
		gone := make(map[EntityID]struct{}, len(w.destroyQueue))
		for _, e := range w.destroyQueue {
			if e.state == entityPending {
				// Never observed; vanishes without a removal window.
				e.state = entityGone
				delete(w.index, e.id)
				gone[e.id] = struct{}{}
				continue
			}
			e.retire()
			w.observe(e)
			gone[e.id] = struct{}{}
			w.removed = append(w.removed, e)
		}
		w.destroyQueue = w.destroyQueue[:0]
		w.active = compact(w.active, gone)
		w.pending = compact(w.pending, gone)
		sortByID(w.removed)
		ch.Removed = w.removed
	}

	w.added = w.pending
	w.pending = nil
	for _, e := range w.added {
		e.state = entityActive
		e.version++
		// Ids are monotonic, so appending keeps active sorted.
		w.active = append(w.active, e)
	}
	ch.Added = w.added
	if len(w.added) > 0 {
		ch.Touched = append(ch.Touched, w.added...)
	}
	sortByID(ch.Touched)
	ch.Touched = dedupe(ch.Touched)

	w.log.Debug("commit",
		zap.Int("added", len(ch.Added)),
		zap.Int("removed", len(ch.Removed)),
		zap.Int("touched", len(ch.Touched)),
		zap.Int("active", len(w.active)),
	)
	return ch, nil
}

// ResolveConcurrent merges pending concurrent modifications. Each slot is
// resolved once per batch of modifications.
func (w *World) ResolveConcurrent() error {
	for _, e := range w.dirty {
		for _, a := range e.touched {
			s := e.slots[a]
			if s == nil {
				continue
			}
			if err := s.resolve(); err != nil {
				return fmt.Errorf("resolve %s on %s: %w", e.kindName(a), e, err)
			}
		}
	}
	return nil
}

func (w *World) observe(e *Entity) {
	if !e.observed {
		e.observed = true
		w.observed = append(w.observed, e)
	}
}

// commitSlots applies the per-slot commit rules to every touched slot.
func (e *Entity) commitSlots() {
	for _, a := range e.touched {
		s, ok := e.slots[a]
		if !ok || s.state == mutNone || s.lingering {
			// Duplicate entry from a remove/re-add sequence.
			continue
		}
		switch s.state {
		case mutRemoved:
			if s.fresh && !s.replaced {
				// Added and removed in the same tick; nothing to observe.
				delete(e.slots, a)
				continue
			}
			// Kept readable until triggers have seen the removal.
			e.wasRemoved.set(a)
			s.lingering = true
			s.start = nil
			s.settle = false
			continue
		case mutAdded:
			e.wasAdded.set(a)
			if s.replaced {
				e.wasRemoved.set(a)
			}
			if s.versioned() {
				s.previous = s.current
				s.settle = true
			}
		case mutModified:
			e.wasModified.set(a)
			if s.versioned() {
				s.previous = s.start
				s.settle = true
			}
		}
		s.start = nil
		s.state = mutNone
		s.modifies = 0
		s.resolved = false
		s.fresh = false
		s.replaced = false
	}
	e.touched = e.touched[:0]
	e.version++
}

// settle clears the observation window of the previous commit and rolls
// previous forward for slots left untouched since then.
func (e *Entity) settle() {
	e.observed = false
	e.wasAdded.reset()
	e.wasModified.reset()
	e.wasRemoved.reset()
	for a, s := range e.slots {
		if s.lingering {
			delete(e.slots, a)
			continue
		}
		if s.settle && s.state == mutNone {
			s.previous = s.current
			s.settle = false
		} else if s.settle && s.state != mutNone {
			s.settle = false
		}
	}
	e.version++
}

// retire moves a destroyed entity into its removal window. Slots keep
// answering Current but report removed.
func (e *Entity) retire() {
	e.state = entityRemoved
	e.destroyPending = false
	e.wasAdded.reset()
	e.wasModified.reset()
	for a, s := range e.slots {
		if s.state == mutNone || s.state == mutModified {
			e.wasRemoved.set(a)
		}
		s.state = mutRemoved
	}
	e.mask.reset()
	e.touched = e.touched[:0]
	e.version++
}

func compact(list []*Entity, gone map[EntityID]struct{}) []*Entity {
	out := list[:0]
	for _, e := range list {
		if _, ok := gone[e.id]; !ok {
			out = append(out, e)
		}
	}
	for i := len(out); i < len(list); i++ {
		list[i] = nil
	}
	return out
}

func sortByID(list []*Entity) {
	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
}

func dedupe(sorted []*Entity) []*Entity {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, e := range sorted[1:] {
		if e != out[len(out)-1] {
			out = append(out, e)
		}
	}
	return out
}
