package component

import "github.com/forgesim/server/internal/core/ecs"

// Clock lives on the global entity and carries the simulation tick.
type Clock struct {
	Tick uint64 `yaml:"tick" json:"tick"`
}

func (c *Clock) Variant() ecs.Variant { return ecs.Versioned }

func (c *Clock) Clone() ecs.Data {
	cc := *c
	return &cc
}
