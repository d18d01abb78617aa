package component

import (
	"fmt"

	"github.com/forgesim/server/internal/core/ecs"
)

// Position is versioned so readers can interpolate between the previous and
// current tick.
type Position struct {
	X int64 `yaml:"x" json:"x"`
	Y int64 `yaml:"y" json:"y"`
}

func (p *Position) Variant() ecs.Variant { return ecs.Versioned }

func (p *Position) Clone() ecs.Data {
	c := *p
	return &c
}

func (p *Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Velocity is applied to Position once per tick.
type Velocity struct {
	DX int64 `yaml:"dx" json:"dx"`
	DY int64 `yaml:"dy" json:"dy"`
}

func (v *Velocity) Variant() ecs.Variant { return ecs.NonVersioned }

func (v *Velocity) Clone() ecs.Data {
	c := *v
	return &c
}

// Zero reports whether the velocity moves nothing.
func (v *Velocity) Zero() bool { return v.DX == 0 && v.DY == 0 }
