package system

import (
	"github.com/forgesim/server/internal/component"
	"github.com/forgesim/server/internal/core/ecs"
	coresys "github.com/forgesim/server/internal/core/system"
)

// EnergySystem grants energy on refuel inputs. Energy is modified by more
// than one system per tick; the deltas are merged when the tick resolves.
type EnergySystem struct {
	coresys.Base
	energy ecs.Accessor
}

func NewEnergySystem(reg *ecs.AccessorRegistry) *EnergySystem {
	energy := ecs.AccessorOf[*component.Energy](reg)
	return &EnergySystem{
		Base:   coresys.NewBase("energy", energy),
		energy: energy,
	}
}

func (s *EnergySystem) Hooks() coresys.Hooks {
	return coresys.Hooks{
		Input:      s.refuel,
		InputKinds: []string{KindRefuel},
	}
}

func (s *EnergySystem) refuel(_ *coresys.Context, in coresys.Input, e *ecs.Entity) error {
	r := in.(RefuelInput)
	en, err := ecs.As[*component.Energy](e.Modify(s.energy))
	if err != nil {
		return err
	}
	en.Apply(r.Amount)
	return nil
}
