package system

import (
	"github.com/forgesim/server/internal/core/ecs"
	coresys "github.com/forgesim/server/internal/core/system"
	"go.uber.org/zap"
)

// AuditStats counts lifecycle transitions seen by AuditSystem.
type AuditStats struct {
	Entered uint64
	Left    uint64
	Ticks   uint64
}

// AuditSystem watches every entity and logs per-tick membership changes at
// debug level. Its filter is empty, so every live entity passes.
type AuditSystem struct {
	coresys.Base
	stats   AuditStats
	entered int
	left    int
}

func NewAuditSystem() *AuditSystem {
	return &AuditSystem{Base: coresys.NewBase("audit")}
}

func (s *AuditSystem) Hooks() coresys.Hooks {
	return coresys.Hooks{
		GlobalPreUpdate:  s.begin,
		Added:            s.added,
		Removed:          s.removed,
		GlobalPostUpdate: s.end,
	}
}

func (s *AuditSystem) begin(_ *coresys.Context) error {
	s.entered, s.left = 0, 0
	return nil
}

func (s *AuditSystem) added(_ *coresys.Context, _ *ecs.Entity) error {
	s.entered++
	return nil
}

func (s *AuditSystem) removed(_ *coresys.Context, _ *ecs.Entity) error {
	s.left++
	return nil
}

func (s *AuditSystem) end(ctx *coresys.Context) error {
	s.stats.Entered += uint64(s.entered)
	s.stats.Left += uint64(s.left)
	s.stats.Ticks++
	if s.entered > 0 || s.left > 0 {
		ctx.Log.Debug("membership changed",
			zap.Uint64("tick", ctx.Tick),
			zap.Int("entered", s.entered),
			zap.Int("left", s.left),
			zap.Int("active", len(ctx.World.Active())),
		)
	}
	return nil
}

// Stats returns the totals so far.
func (s *AuditSystem) Stats() AuditStats { return s.stats }
