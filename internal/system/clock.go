package system

import (
	"github.com/forgesim/server/internal/component"
	"github.com/forgesim/server/internal/core/ecs"
	coresys "github.com/forgesim/server/internal/core/system"
)

// ClockSystem keeps the tick counter on the global entity so snapshot
// readers can find it without engine access.
type ClockSystem struct {
	coresys.Base
	clock ecs.Accessor
}

func NewClockSystem(reg *ecs.AccessorRegistry) *ClockSystem {
	s := &ClockSystem{
		Base:  coresys.NewBase("clock"),
		clock: ecs.AccessorOf[*component.Clock](reg),
	}
	s.RunBefore("spawn", "regen", "movement", "energy", "expiry", "cleanup")
	return s
}

func (s *ClockSystem) Hooks() coresys.Hooks {
	return coresys.Hooks{
		EngineLoaded:    s.load,
		GlobalPreUpdate: s.tick,
	}
}

func (s *ClockSystem) load(ctx *coresys.Context) error {
	_, err := ctx.World.Global().AddOrModify(s.clock)
	return err
}

func (s *ClockSystem) tick(ctx *coresys.Context) error {
	c, err := ecs.As[*component.Clock](ctx.World.Global().Modify(s.clock))
	if err != nil {
		return err
	}
	c.Tick = ctx.Tick
	return nil
}
