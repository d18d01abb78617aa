package system

import (
	"github.com/forgesim/server/internal/component"
	"github.com/forgesim/server/internal/core/ecs"
	coresys "github.com/forgesim/server/internal/core/system"
	"go.uber.org/zap"
)

// CleanupSystem destroys entities whose Health was modified down to zero
// and handles explicit destroy inputs. Destruction is deferred to the next
// commit; the entity stays observable as removed for one tick after that.
type CleanupSystem struct {
	coresys.Base
	health ecs.Accessor
}

func NewCleanupSystem(reg *ecs.AccessorRegistry) *CleanupSystem {
	health := ecs.AccessorOf[*component.Health](reg)
	s := &CleanupSystem{
		Base:   coresys.NewBase("cleanup", health),
		health: health,
	}
	s.RunAfter("regen")
	return s
}

func (s *CleanupSystem) Hooks() coresys.Hooks {
	return coresys.Hooks{
		Added:            s.check,
		Modified:         s.check,
		GlobalInput:      s.destroy,
		GlobalInputKinds: []string{KindDestroy},
	}
}

func (s *CleanupSystem) check(ctx *coresys.Context, e *ecs.Entity) error {
	h, err := ecs.As[*component.Health](e.Current(s.health))
	if err != nil {
		return err
	}
	if h.Dead() {
		e.Destroy()
		ctx.Log.Debug("entity destroyed", zap.Stringer("entity", e), zap.Uint64("tick", ctx.Tick))
	}
	return nil
}

func (s *CleanupSystem) destroy(ctx *coresys.Context, in coresys.Input) error {
	id := in.(DestroyInput).Entity
	e, ok := ctx.World.Entity(id)
	if !ok {
		ctx.Log.Debug("destroy unknown entity", zap.Uint64("entity", uint64(id)))
		return nil
	}
	e.Destroy()
	return nil
}
