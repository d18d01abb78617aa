package ecs

import (
	"fmt"
	"sort"
)

// SlotSnapshot is the published state of one slot. Current and Previous are
// shared with the store and must be treated as read-only.
type SlotSnapshot struct {
	Accessor Accessor
	Variant  Variant
	Current  Data
	Previous Data // value at the start of the captured tick; nil when none
	Removed  bool
}

// EntitySnapshot is an immutable read view of an entity as of one tick.
type EntitySnapshot struct {
	id          EntityID
	name        string
	removed     bool
	slots       []SlotSnapshot
	wasAdded    Mask
	wasModified Mask
	wasRemoved  Mask
}

// Capture returns the entity's read view. Unchanged entities return the view
// captured last time; captured values are copied before the store writes to
// them again.
func (e *Entity) Capture() *EntitySnapshot {
	if e.captured != nil && e.capturedAt == e.version {
		return e.captured
	}
	snap := &EntitySnapshot{
		id:          e.id,
		name:        e.name,
		removed:     e.state >= entityRemoved,
		slots:       make([]SlotSnapshot, 0, len(e.slots)),
		wasAdded:    e.wasAdded.clone(),
		wasModified: e.wasModified.clone(),
		wasRemoved:  e.wasRemoved.clone(),
	}
	for a, s := range e.slots {
		prev := s.published()
		s.shared = true
		snap.slots = append(snap.slots, SlotSnapshot{
			Accessor: a,
			Variant:  s.variant,
			Current:  s.current,
			Previous: prev,
			Removed:  s.state == mutRemoved || snap.removed,
		})
	}
	sort.Slice(snap.slots, func(i, j int) bool { return snap.slots[i].Accessor.id < snap.slots[j].Accessor.id })
	e.captured = snap
	e.capturedAt = e.version
	return snap
}

func (s *EntitySnapshot) ID() EntityID       { return s.id }
func (s *EntitySnapshot) PrettyName() string { return s.name }

// Removed reports whether the entity was in its removal window.
func (s *EntitySnapshot) Removed() bool { return s.removed }

// Slots returns the captured slots in accessor order.
func (s *EntitySnapshot) Slots() []SlotSnapshot { return s.slots }

func (s *EntitySnapshot) find(a Accessor) (SlotSnapshot, bool) {
	i := sort.Search(len(s.slots), func(i int) bool { return s.slots[i].Accessor.id >= a.id })
	if i < len(s.slots) && s.slots[i].Accessor == a {
		return s.slots[i], true
	}
	return SlotSnapshot{}, false
}

func (s *EntitySnapshot) Current(a Accessor) (Data, error) {
	sl, ok := s.find(a)
	if !ok {
		return nil, fmt.Errorf("entity %d accessor %d: %w", s.id, a.id, ErrNoSuchData)
	}
	return sl.Current, nil
}

func (s *EntitySnapshot) Previous(a Accessor) (Data, error) {
	sl, ok := s.find(a)
	if !ok || sl.Removed {
		return nil, fmt.Errorf("entity %d accessor %d: %w", s.id, a.id, ErrNoSuchData)
	}
	if sl.Variant == NonVersioned {
		return nil, fmt.Errorf("entity %d accessor %d: %w", s.id, a.id, ErrPreviousRequiresVersionedData)
	}
	if sl.Previous == nil {
		return nil, fmt.Errorf("entity %d accessor %d: %w", s.id, a.id, ErrNoSuchData)
	}
	return sl.Previous, nil
}

func (s *EntitySnapshot) ContainsData(a Accessor) bool {
	sl, ok := s.find(a)
	return ok && !sl.Removed
}

func (s *EntitySnapshot) WasAdded(a Accessor) bool    { return s.wasAdded.Has(a) }
func (s *EntitySnapshot) WasModified(a Accessor) bool { return s.wasModified.Has(a) }
func (s *EntitySnapshot) WasRemoved(a Accessor) bool  { return s.wasRemoved.Has(a) }

// Clone deep-copies the view, including every data value.
func (s *EntitySnapshot) Clone() *EntitySnapshot {
	out := *s
	out.slots = make([]SlotSnapshot, len(s.slots))
	for i, sl := range s.slots {
		sl.Current = sl.Current.Clone()
		if sl.Previous != nil {
			sl.Previous = sl.Previous.Clone()
		}
		out.slots[i] = sl
	}
	out.wasAdded = s.wasAdded.clone()
	out.wasModified = s.wasModified.clone()
	out.wasRemoved = s.wasRemoved.clone()
	return &out
}

// TemplateSnapshot is the read view of a template.
type TemplateSnapshot struct {
	id       TemplateID
	name     string
	defaults []SlotSnapshot
}

// Capture returns the template's read view. Defaults are shared; templates
// are frozen while the engine runs.
func (t *Template) Capture() *TemplateSnapshot {
	snap := &TemplateSnapshot{id: t.id, name: t.name}
	for _, a := range t.Accessors() {
		d := t.defaults[a]
		snap.defaults = append(snap.defaults, SlotSnapshot{Accessor: a, Variant: d.Variant(), Current: d})
	}
	return snap
}

func (s *TemplateSnapshot) ID() TemplateID           { return s.id }
func (s *TemplateSnapshot) PrettyName() string       { return s.name }
func (s *TemplateSnapshot) Defaults() []SlotSnapshot { return s.defaults }

func (s *TemplateSnapshot) Default(a Accessor) (Data, error) {
	for _, d := range s.defaults {
		if d.Accessor == a {
			return d.Current, nil
		}
	}
	return nil, fmt.Errorf("template %d accessor %d: %w", s.id, a.id, ErrNoSuchData)
}

func (s *TemplateSnapshot) Clone() *TemplateSnapshot {
	out := *s
	out.defaults = make([]SlotSnapshot, len(s.defaults))
	for i, d := range s.defaults {
		d.Current = d.Current.Clone()
		out.defaults[i] = d
	}
	return &out
}
