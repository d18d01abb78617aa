package system

import (
	"math"

	"github.com/forgesim/server/internal/component"
	"github.com/forgesim/server/internal/core/ecs"
	coresys "github.com/forgesim/server/internal/core/system"
	"go.uber.org/zap"
)

// RegenSystem owns Health. Damage inputs are queued by entity and applied
// together with regeneration in a single Modify per entity per tick, since
// Health can only be modified once per tick.
//
// Regeneration adds Amount every Interval ticks to living entities below
// their maximum.
type RegenSystem struct {
	coresys.Base
	health   ecs.Accessor
	interval uint64
	amount   int32
	damage   map[ecs.EntityID]int64
}

func NewRegenSystem(reg *ecs.AccessorRegistry, interval uint64, amount int32) *RegenSystem {
	if interval == 0 {
		interval = 1
	}
	health := ecs.AccessorOf[*component.Health](reg)
	return &RegenSystem{
		Base:     coresys.NewBase("regen", health),
		health:   health,
		interval: interval,
		amount:   amount,
		damage:   make(map[ecs.EntityID]int64),
	}
}

func (s *RegenSystem) Hooks() coresys.Hooks {
	return coresys.Hooks{
		GlobalInput:      s.queueDamage,
		GlobalInputKinds: []string{KindDamage},
		Update:           s.update,
		Removed:          s.forget,
	}
}

func (s *RegenSystem) queueDamage(ctx *coresys.Context, in coresys.Input) error {
	d := in.(DamageInput)
	if d.Amount <= 0 {
		return nil
	}
	e, ok := ctx.World.Entity(d.Entity)
	if !ok || !e.ContainsData(s.health) {
		ctx.Log.Debug("damage ignored", zap.Uint64("entity", uint64(d.Entity)))
		return nil
	}
	s.damage[d.Entity] += int64(d.Amount)
	return nil
}

func (s *RegenSystem) forget(_ *coresys.Context, e *ecs.Entity) error {
	delete(s.damage, e.ID())
	return nil
}

func (s *RegenSystem) update(ctx *coresys.Context, e *ecs.Entity) error {
	h, err := ecs.As[*component.Health](e.Current(s.health))
	if err != nil {
		return err
	}
	var delta int64
	if dmg, ok := s.damage[e.ID()]; ok {
		delete(s.damage, e.ID())
		delta -= dmg
	}
	if ctx.Tick%s.interval == 0 && !h.Dead() && (h.Max == 0 || h.Value < h.Max) {
		delta += int64(s.amount)
	}
	if delta == 0 {
		return nil
	}

	h, err = ecs.As[*component.Health](e.Modify(s.health))
	if err != nil {
		return err
	}
	if delta > 0 {
		h.Heal(int32(delta))
	} else {
		h.Value = int32(max(int64(h.Value)+delta, math.MinInt32))
	}
	if h.Dead() {
		ctx.Log.Debug("entity died", zap.Stringer("entity", e), zap.Uint64("tick", ctx.Tick))
	}
	return nil
}

// Pending returns the number of entities with damage not yet applied.
func (s *RegenSystem) Pending() int { return len(s.damage) }
