package system

import (
	"strings"

	"github.com/forgesim/server/internal/core/ecs"
	"go.uber.org/zap"
)

// Capability is one way a system can be invoked by the dispatcher.
type Capability uint16

const (
	CapAdded Capability = 1 << iota
	CapRemoved
	CapModified
	CapUpdate
	CapInput
	CapGlobalPreUpdate
	CapGlobalPostUpdate
	CapGlobalInput
	CapEngineLoaded
)

// CapFiltered holds the capabilities that run per entity through the
// system's filter.
const CapFiltered = CapAdded | CapRemoved | CapModified | CapUpdate | CapInput

var capabilityNames = []string{
	"added", "removed", "modified", "update", "input",
	"global-pre-update", "global-post-update", "global-input", "engine-loaded",
}

// Has reports whether every capability in c2 is set in c.
func (c Capability) Has(c2 Capability) bool { return c&c2 == c2 }

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for i, name := range capabilityNames {
		if c&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Ordering is what a system declares about its position relative to another.
type Ordering int8

const (
	Concurrent Ordering = iota
	Before
	After
)

func (o Ordering) String() string {
	switch o {
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "concurrent"
	}
}

// Input is one queued input item handed to Update. Kind keys input hooks.
type Input interface {
	Kind() string
}

// Context is passed to every hook.
type Context struct {
	World *ecs.World
	Tick  uint64
	Log   *zap.Logger
}

// Hooks is the explicit capability table of a system. A nil hook means the
// capability is absent.
type Hooks struct {
	Added    func(ctx *Context, e *ecs.Entity) error
	Removed  func(ctx *Context, e *ecs.Entity) error
	Modified func(ctx *Context, e *ecs.Entity) error
	Update   func(ctx *Context, e *ecs.Entity) error

	// Input runs once per matching input for every member entity.
	// InputKinds restricts the kinds; empty accepts every kind.
	Input      func(ctx *Context, in Input, e *ecs.Entity) error
	InputKinds []string

	GlobalPreUpdate  func(ctx *Context) error
	GlobalPostUpdate func(ctx *Context) error

	// GlobalInput runs once per matching input.
	GlobalInput      func(ctx *Context, in Input) error
	GlobalInputKinds []string

	// EngineLoaded runs once when the engine starts.
	EngineLoaded func(ctx *Context) error
}

// Capabilities derives the capability set from the non-nil hooks.
func (h *Hooks) Capabilities() Capability {
	var c Capability
	if h.Added != nil {
		c |= CapAdded
	}
	if h.Removed != nil {
		c |= CapRemoved
	}
	if h.Modified != nil {
		c |= CapModified
	}
	if h.Update != nil {
		c |= CapUpdate
	}
	if h.Input != nil {
		c |= CapInput
	}
	if h.GlobalPreUpdate != nil {
		c |= CapGlobalPreUpdate
	}
	if h.GlobalPostUpdate != nil {
		c |= CapGlobalPostUpdate
	}
	if h.GlobalInput != nil {
		c |= CapGlobalInput
	}
	if h.EngineLoaded != nil {
		c |= CapEngineLoaded
	}
	return c
}

// System is the registration surface every trigger implements.
type System interface {
	Name() string
	// RequiredData lists the kinds an entity must hold to pass the filter.
	RequiredData() []ecs.Accessor
	// Ordering reports where this system must run relative to other.
	Ordering(other System) Ordering
	Hooks() Hooks
}

// Base implements name, requirement and name-based ordering for embedding.
type Base struct {
	name     string
	required []ecs.Accessor
	before   map[string]struct{}
	after    map[string]struct{}
}

func NewBase(name string, required ...ecs.Accessor) Base {
	return Base{name: name, required: required}
}

func (b *Base) Name() string                 { return b.name }
func (b *Base) RequiredData() []ecs.Accessor { return b.required }

// RunBefore declares that this system runs before the named systems.
func (b *Base) RunBefore(names ...string) {
	if b.before == nil {
		b.before = make(map[string]struct{}, len(names))
	}
	for _, n := range names {
		b.before[n] = struct{}{}
	}
}

// RunAfter declares that this system runs after the named systems.
func (b *Base) RunAfter(names ...string) {
	if b.after == nil {
		b.after = make(map[string]struct{}, len(names))
	}
	for _, n := range names {
		b.after[n] = struct{}{}
	}
}

func (b *Base) Ordering(other System) Ordering {
	name := other.Name()
	if _, ok := b.before[name]; ok {
		return Before
	}
	if _, ok := b.after[name]; ok {
		return After
	}
	return Concurrent
}
