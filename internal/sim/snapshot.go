package sim

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/forgesim/server/internal/core/ecs"
	"github.com/forgesim/server/internal/core/system"
)

// Snapshot is the read-only view of a completed tick. Published snapshots
// are never mutated; data values are shared with the store, which copies
// them before writing again. Readers must not mutate returned data.
type Snapshot struct {
	tick      uint64
	accessors *ecs.AccessorRegistry
	entities  map[ecs.EntityID]*ecs.EntitySnapshot
	active    []ecs.EntityID
	added     []ecs.EntityID
	removed   []ecs.EntityID
	global    ecs.EntityID
	templates map[ecs.TemplateID]*ecs.TemplateSnapshot
	tmplOrder []ecs.TemplateID
	systems   []system.Info
}

// Tick returns the number of completed ticks the snapshot reflects.
func (s *Snapshot) Tick() uint64 { return s.tick }

// Accessors returns the registry the snapshot's accessors belong to.
func (s *Snapshot) Accessors() *ecs.AccessorRegistry { return s.accessors }

// Entity is the entity index lookup.
func (s *Snapshot) Entity(id ecs.EntityID) (*ecs.EntitySnapshot, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// Template is the template index lookup.
func (s *Snapshot) Template(id ecs.TemplateID) (*ecs.TemplateSnapshot, bool) {
	t, ok := s.templates[id]
	return t, ok
}

// Global returns the global entity.
func (s *Snapshot) Global() *ecs.EntitySnapshot { return s.entities[s.global] }

// Active returns live entity ids in ascending order.
func (s *Snapshot) Active() []ecs.EntityID { return s.active }

// Added returns ids of entities that became active in this tick.
func (s *Snapshot) Added() []ecs.EntityID { return s.added }

// Removed returns ids of entities in their removal window.
func (s *Snapshot) Removed() []ecs.EntityID { return s.removed }

// Templates returns template ids in creation order.
func (s *Snapshot) Templates() []ecs.TemplateID { return s.tmplOrder }

// Systems describes the registered systems in dispatch order.
func (s *Snapshot) Systems() []system.Info { return s.systems }

// Clone returns a fully independent deep copy.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		tick:      s.tick,
		accessors: s.accessors,
		entities:  make(map[ecs.EntityID]*ecs.EntitySnapshot, len(s.entities)),
		active:    append([]ecs.EntityID(nil), s.active...),
		added:     append([]ecs.EntityID(nil), s.added...),
		removed:   append([]ecs.EntityID(nil), s.removed...),
		global:    s.global,
		templates: make(map[ecs.TemplateID]*ecs.TemplateSnapshot, len(s.templates)),
		tmplOrder: append([]ecs.TemplateID(nil), s.tmplOrder...),
		systems:   make([]system.Info, len(s.systems)),
	}
	for id, e := range s.entities {
		out.entities[id] = e.Clone()
	}
	for id, t := range s.templates {
		out.templates[id] = t.Clone()
	}
	for i, info := range s.systems {
		info.Required = append([]ecs.Accessor(nil), info.Required...)
		out.systems[i] = info
	}
	return out
}

// Checksum digests the tick, every entity id, name and data value. Two runs
// fed the same inputs produce the same checksum for the same tick. Data
// values are hashed as JSON, so only exported fields count and pointers are
// followed rather than compared by address.
func (s *Snapshot) Checksum() uint64 {
	d := xxhash.New()
	enc := json.NewEncoder(d)
	fmt.Fprintf(d, "tick=%d;", s.tick)
	digest := func(id ecs.EntityID) {
		e := s.entities[id]
		fmt.Fprintf(d, "e%d:%s:%t;", id, e.PrettyName(), e.Removed())
		for _, sl := range e.Slots() {
			fmt.Fprintf(d, "a%d=", sl.Accessor.ID())
			if err := enc.Encode(sl.Current); err != nil {
				fmt.Fprintf(d, "%T!", sl.Current)
			}
		}
	}
	for _, id := range s.active {
		digest(id)
	}
	for _, id := range s.removed {
		digest(id)
	}
	return d.Sum64()
}
