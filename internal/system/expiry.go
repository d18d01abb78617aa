package system

import (
	"github.com/forgesim/server/internal/component"
	"github.com/forgesim/server/internal/core/ecs"
	coresys "github.com/forgesim/server/internal/core/system"
)

// ExpirySystem counts Lifetime down and destroys the entity at zero.
type ExpirySystem struct {
	coresys.Base
	lifetime ecs.Accessor
}

func NewExpirySystem(reg *ecs.AccessorRegistry) *ExpirySystem {
	lifetime := ecs.AccessorOf[*component.Lifetime](reg)
	return &ExpirySystem{
		Base:     coresys.NewBase("expiry", lifetime),
		lifetime: lifetime,
	}
}

func (s *ExpirySystem) Hooks() coresys.Hooks {
	return coresys.Hooks{Update: s.update}
}

func (s *ExpirySystem) update(_ *coresys.Context, e *ecs.Entity) error {
	if e.IsDestroyed() {
		return nil
	}
	l, err := ecs.As[*component.Lifetime](e.Modify(s.lifetime))
	if err != nil {
		return err
	}
	l.Ticks--
	if l.Ticks <= 0 {
		e.Destroy()
	}
	return nil
}
