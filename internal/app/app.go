// Package app assembles a runnable simulation from configuration: data kinds,
// content templates, the example systems and the engine.
package app

import (
	"fmt"

	"github.com/forgesim/server/internal/component"
	"github.com/forgesim/server/internal/config"
	"github.com/forgesim/server/internal/core/ecs"
	coresys "github.com/forgesim/server/internal/core/system"
	"github.com/forgesim/server/internal/data"
	"github.com/forgesim/server/internal/sim"
	"github.com/forgesim/server/internal/system"
	"go.uber.org/zap"
)

// Regeneration used by the daemon: one hit point every ten ticks.
const (
	RegenInterval = 10
	RegenAmount   = 1
)

// Sim is a fully wired, not yet started simulation.
type Sim struct {
	Registry  *ecs.AccessorRegistry
	World     *ecs.World
	Templates *data.TemplateTable
	Runner    *coresys.Runner
	Engine    *sim.Engine
	Audit     *system.AuditSystem
	Spawner   *system.SpawnSystem
}

// New builds the simulation. Content is read from cfg.Content.Templates, or
// from raw when it is non-nil.
func New(cfg *config.Config, raw []byte, log *zap.Logger, opts ...sim.Option) (*Sim, error) {
	if log == nil {
		log = zap.NewNop()
	}
	reg := ecs.NewAccessorRegistry()
	reg.Register(component.Kinds()...)
	world := ecs.NewWorld(reg, log.Named("world"))

	var (
		table *data.TemplateTable
		err   error
	)
	switch {
	case raw != nil:
		table, err = data.ParseTemplates(raw, world)
	case cfg.Content.Templates != "":
		table, err = data.LoadTemplates(cfg.Content.Templates, world)
	default:
		table, err = data.ParseTemplates(nil, world)
	}
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}

	s := &Sim{
		Registry:  reg,
		World:     world,
		Templates: table,
		Runner:    coresys.NewRunner(log.Named("systems")),
		Audit:     system.NewAuditSystem(),
		Spawner:   system.NewSpawnSystem(table, cfg.Simulation.MaxSpawnBatch),
	}
	systems := []coresys.System{
		system.NewClockSystem(reg),
		s.Spawner,
		system.NewRegenSystem(reg, RegenInterval, RegenAmount),
		system.NewMovementSystem(reg),
		system.NewEnergySystem(reg),
		system.NewExpirySystem(reg),
		system.NewCleanupSystem(reg),
		s.Audit,
	}
	for _, sys := range systems {
		if err := s.Runner.Register(sys); err != nil {
			return nil, err
		}
	}
	s.Engine = sim.New(world, s.Runner, log.Named("engine"), opts...)
	return s, nil
}

// Step runs one full tick, Update then SynchronizeState, and returns the
// published snapshot. A recorder failure is returned with the snapshot.
func (s *Sim) Step(inputs []coresys.Input) (*sim.Snapshot, error) {
	if err := <-s.Engine.Update(inputs); err != nil {
		return nil, err
	}
	err := <-s.Engine.SynchronizeState()
	return s.Engine.Published(), err
}
