package sim

import "github.com/forgesim/server/internal/core/ecs"

// Engine-level events, delivered through Engine.Events after each tick's
// dispatch.

type EntityCreated struct {
	Tick   uint64
	Entity ecs.EntityID
}

type EntityDestroyed struct {
	Tick   uint64
	Entity ecs.EntityID
}

type TickCompleted struct {
	Tick    uint64
	Inputs  int
	Active  int
	Added   int
	Removed int
}
