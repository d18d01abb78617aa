package system

import (
	"fmt"
	"sort"

	"github.com/forgesim/server/internal/core/ecs"
	"go.uber.org/zap"
)

// member tracks one system's filter and current passing set.
type member struct {
	sys    System
	hooks  Hooks
	caps   Capability
	filter ecs.Filter
	inputs map[string]struct{}
	global map[string]struct{}

	ids     map[ecs.EntityID]struct{}
	members []*ecs.Entity // ordered by id

	// Transitions computed for the current tick.
	entered  []*ecs.Entity
	left     []*ecs.Entity
	modified []*ecs.Entity
}

// Info describes a registered system for diagnostics and snapshots.
type Info struct {
	Name         string
	Required     []ecs.Accessor
	Capabilities Capability
	Members      int
}

// Runner dispatches registered systems each tick in scheduled order.
type Runner struct {
	systems  []System
	states   []*member
	byName   map[string]*member
	schedule *Schedule
	sorted   bool
	log      *zap.Logger
}

func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		systems: make([]System, 0, 16),
		byName:  make(map[string]*member, 16),
		log:     log,
	}
}

// Register adds a system. Names must be unique.
func (r *Runner) Register(s System) error {
	if _, dup := r.byName[s.Name()]; dup {
		return fmt.Errorf("register system %q: duplicate name", s.Name())
	}
	hooks := s.Hooks()
	m := &member{
		sys:    s,
		hooks:  hooks,
		caps:   hooks.Capabilities(),
		filter: ecs.NewFilter(s.RequiredData()...),
		inputs: kindSet(hooks.InputKinds),
		global: kindSet(hooks.GlobalInputKinds),
		ids:    make(map[ecs.EntityID]struct{}, 64),
	}
	r.systems = append(r.systems, s)
	r.byName[s.Name()] = m
	r.sorted = false
	return nil
}

func kindSet(kinds []string) map[string]struct{} {
	if len(kinds) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		out[k] = struct{}{}
	}
	return out
}

func accepts(set map[string]struct{}, in Input) bool {
	if set == nil {
		return true
	}
	_, ok := set[in.Kind()]
	return ok
}

// Schedule computes the dispatch order if the system set changed since the
// last call.
func (r *Runner) Schedule() (*Schedule, error) {
	if err := r.ensureSorted(); err != nil {
		return nil, err
	}
	return r.schedule, nil
}

func (r *Runner) ensureSorted() error {
	if r.sorted {
		return nil
	}
	s, err := BuildSchedule(r.systems)
	if err != nil {
		return err
	}
	r.schedule = s
	r.states = r.states[:0]
	for _, sys := range s.order {
		r.states = append(r.states, r.byName[sys.Name()])
	}
	r.sorted = true
	r.log.Info("system schedule built",
		zap.Strings("order", s.Names()),
		zap.Int("groups", len(s.groups)),
	)
	return nil
}

// Infos returns a description of every system in dispatch order.
func (r *Runner) Infos() []Info {
	out := make([]Info, 0, len(r.states))
	for _, m := range r.states {
		out = append(out, Info{
			Name:         m.sys.Name(),
			Required:     m.filter.Required(),
			Capabilities: m.caps,
			Members:      len(m.members),
		})
	}
	return out
}

// Members returns the ids currently passing the named system's filter.
func (r *Runner) Members(name string) []ecs.EntityID {
	m, ok := r.byName[name]
	if !ok {
		return nil
	}
	out := make([]ecs.EntityID, len(m.members))
	for i, e := range m.members {
		out[i] = e.ID()
	}
	return out
}

// Load schedules the systems and runs every EngineLoaded hook.
func (r *Runner) Load(ctx *Context) error {
	if err := r.ensureSorted(); err != nil {
		return err
	}
	for _, m := range r.states {
		if m.hooks.EngineLoaded == nil {
			continue
		}
		if err := m.hooks.EngineLoaded(ctx); err != nil {
			return fmt.Errorf("system %s: engine loaded: %w", m.sys.Name(), err)
		}
	}
	return nil
}

// Dispatch runs one tick's worth of hooks: membership transitions are
// computed from ch for every system first, then global pre-update hooks,
// then per system added, removed, modified, input, global input and update
// hooks, then global post-update hooks. The first error aborts dispatch.
func (r *Runner) Dispatch(ctx *Context, ch *ecs.Changes, inputs []Input) error {
	if err := r.ensureSorted(); err != nil {
		return err
	}
	for _, m := range r.states {
		m.transition(ch)
	}

	for _, m := range r.states {
		if m.hooks.GlobalPreUpdate == nil {
			continue
		}
		if err := m.hooks.GlobalPreUpdate(ctx); err != nil {
			return fmt.Errorf("system %s: global pre-update: %w", m.sys.Name(), err)
		}
	}

	for _, m := range r.states {
		if err := m.dispatch(ctx, inputs); err != nil {
			return fmt.Errorf("system %s: %w", m.sys.Name(), err)
		}
	}

	for _, m := range r.states {
		if m.hooks.GlobalPostUpdate == nil {
			continue
		}
		if err := m.hooks.GlobalPostUpdate(ctx); err != nil {
			return fmt.Errorf("system %s: global post-update: %w", m.sys.Name(), err)
		}
	}
	return nil
}

// transition recomputes membership for every entity the commit touched.
func (m *member) transition(ch *ecs.Changes) {
	m.entered = m.entered[:0]
	m.left = m.left[:0]
	m.modified = m.modified[:0]
	if m.caps&CapFiltered == 0 {
		return
	}

	for _, e := range ch.Removed {
		if _, ok := m.ids[e.ID()]; ok {
			m.left = append(m.left, e)
			m.drop(e)
		}
	}
	for _, e := range ch.Touched {
		_, was := m.ids[e.ID()]
		now := m.filter.Check(e)
		switch {
		case now && !was:
			m.entered = append(m.entered, e)
			m.insert(e)
		case !now && was:
			m.left = append(m.left, e)
			m.drop(e)
		case now && was && m.filter.Touched(e):
			m.modified = append(m.modified, e)
		}
	}
}

func (m *member) insert(e *ecs.Entity) {
	m.ids[e.ID()] = struct{}{}
	i := sort.Search(len(m.members), func(i int) bool { return m.members[i].ID() >= e.ID() })
	m.members = append(m.members, nil)
	copy(m.members[i+1:], m.members[i:])
	m.members[i] = e
}

func (m *member) drop(e *ecs.Entity) {
	delete(m.ids, e.ID())
	i := sort.Search(len(m.members), func(i int) bool { return m.members[i].ID() >= e.ID() })
	if i < len(m.members) && m.members[i] == e {
		m.members = append(m.members[:i], m.members[i+1:]...)
	}
}

func (m *member) dispatch(ctx *Context, inputs []Input) error {
	h := &m.hooks
	if h.Added != nil {
		for _, e := range m.entered {
			if err := h.Added(ctx, e); err != nil {
				return fmt.Errorf("added %s: %w", e, err)
			}
		}
	}
	if h.Removed != nil {
		for _, e := range m.left {
			if err := h.Removed(ctx, e); err != nil {
				return fmt.Errorf("removed %s: %w", e, err)
			}
		}
	}
	if h.Modified != nil {
		for _, e := range m.modified {
			if err := h.Modified(ctx, e); err != nil {
				return fmt.Errorf("modified %s: %w", e, err)
			}
		}
	}
	if h.Input != nil {
		for _, in := range inputs {
			if !accepts(m.inputs, in) {
				continue
			}
			for _, e := range m.members {
				if err := h.Input(ctx, in, e); err != nil {
					return fmt.Errorf("input %s on %s: %w", in.Kind(), e, err)
				}
			}
		}
	}
	if h.GlobalInput != nil {
		for _, in := range inputs {
			if !accepts(m.global, in) {
				continue
			}
			if err := h.GlobalInput(ctx, in); err != nil {
				return fmt.Errorf("global input %s: %w", in.Kind(), err)
			}
		}
	}
	if h.Update != nil {
		for _, e := range m.members {
			if err := h.Update(ctx, e); err != nil {
				return fmt.Errorf("update %s: %w", e, err)
			}
		}
	}
	return nil
}
