package system

import (
	"github.com/forgesim/server/internal/component"
	"github.com/forgesim/server/internal/core/ecs"
	coresys "github.com/forgesim/server/internal/core/system"
)

// MovementSystem applies Velocity to Position every tick. Moving costs one
// unit of Energy per tick when the entity has any.
type MovementSystem struct {
	coresys.Base
	pos    ecs.Accessor
	vel    ecs.Accessor
	energy ecs.Accessor
}

func NewMovementSystem(reg *ecs.AccessorRegistry) *MovementSystem {
	pos := ecs.AccessorOf[*component.Position](reg)
	vel := ecs.AccessorOf[*component.Velocity](reg)
	return &MovementSystem{
		Base:   coresys.NewBase("movement", pos, vel),
		pos:    pos,
		vel:    vel,
		energy: ecs.AccessorOf[*component.Energy](reg),
	}
}

func (s *MovementSystem) Hooks() coresys.Hooks {
	return coresys.Hooks{Update: s.update}
}

func (s *MovementSystem) update(_ *coresys.Context, e *ecs.Entity) error {
	v, err := ecs.As[*component.Velocity](e.Current(s.vel))
	if err != nil {
		return err
	}
	if v.Zero() {
		return nil
	}
	if e.ContainsData(s.energy) {
		en, err := ecs.As[*component.Energy](e.Current(s.energy))
		if err != nil {
			return err
		}
		if en.Value <= 0 {
			return nil
		}
		en, err = ecs.As[*component.Energy](e.Modify(s.energy))
		if err != nil {
			return err
		}
		en.Apply(-1)
	}
	p, err := ecs.As[*component.Position](e.Modify(s.pos))
	if err != nil {
		return err
	}
	p.X += v.DX
	p.Y += v.DY
	return nil
}
