package ecs

import (
	"fmt"
	"sort"
)

// TemplateID identifies a template. Template ids come from their own
// generator and are never reused.
type TemplateID uint64

// Template is an entity prototype holding default data. Templates become
// immutable once the world is frozen at engine start.
type Template struct {
	id       TemplateID
	name     string
	world    *World
	defaults map[Accessor]Data
}

// CreateTemplate registers an empty template.
func (w *World) CreateTemplate(name string) (*Template, error) {
	if w.frozen {
		return nil, fmt.Errorf("create template %q: %w", name, ErrTemplateFrozen)
	}
	t := &Template{
		id:       TemplateID(w.templateIDs.Next()),
		name:     normalizeName(name),
		world:    w,
		defaults: make(map[Accessor]Data, 8),
	}
	w.templates[t.id] = t
	w.templateOrder = append(w.templateOrder, t)
	return t, nil
}

// Template is the template index lookup.
func (w *World) Template(id TemplateID) (*Template, bool) {
	t, ok := w.templates[id]
	return t, ok
}

// Templates returns every template in creation order.
func (w *World) Templates() []*Template { return w.templateOrder }

// Freeze makes every template immutable.
func (w *World) Freeze() { w.frozen = true }

// Frozen reports whether templates are immutable.
func (w *World) Frozen() bool { return w.frozen }

func (t *Template) ID() TemplateID     { return t.id }
func (t *Template) PrettyName() string { return t.name }

// AddDefault adds a default instance of the kind behind a and returns it
// for initialization.
func (t *Template) AddDefault(a Accessor) (Data, error) {
	if t.world.frozen {
		return nil, fmt.Errorf("template %q: %w", t.name, ErrTemplateFrozen)
	}
	if _, ok := t.defaults[a]; ok {
		return nil, fmt.Errorf("template %q default %s: %w", t.name, t.world.accessors.Name(a), ErrAlreadyAddedData)
	}
	d := t.world.accessors.New(a)
	t.defaults[a] = d
	return d, nil
}

// SetDefault stores d as the default for its kind, replacing any previous one.
func (t *Template) SetDefault(d Data) (Accessor, error) {
	a := t.world.accessors.GetOrCreate(d)
	if t.world.frozen {
		return a, fmt.Errorf("template %q: %w", t.name, ErrTemplateFrozen)
	}
	t.defaults[a] = d
	return a, nil
}

// Default returns the default instance for a. It must not be mutated.
func (t *Template) Default(a Accessor) (Data, error) {
	d, ok := t.defaults[a]
	if !ok {
		return nil, fmt.Errorf("template %q default %s: %w", t.name, t.world.accessors.Name(a), ErrNoSuchData)
	}
	return d, nil
}

// ContainsData reports whether the template has a default for a.
func (t *Template) ContainsData(a Accessor) bool {
	_, ok := t.defaults[a]
	return ok
}

// Accessors returns the template's accessors in id order.
func (t *Template) Accessors() []Accessor {
	out := make([]Accessor, 0, len(t.defaults))
	for a := range t.defaults {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Instantiate creates an entity holding a copy of every default. The data is
// reported as added at the next commit.
func (t *Template) Instantiate() (*Entity, error) {
	e := t.world.CreateEntity(t.name)
	for _, a := range t.Accessors() {
		if _, err := e.AddData(a); err != nil {
			return nil, err
		}
		e.slots[a].current = t.defaults[a].Clone()
	}
	return e, nil
}
