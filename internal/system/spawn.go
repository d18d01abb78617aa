package system

import (
	"fmt"

	"github.com/forgesim/server/internal/core/ecs"
	coresys "github.com/forgesim/server/internal/core/system"
	"github.com/forgesim/server/internal/data"
	"go.uber.org/zap"
)

// SpawnSystem creates the boot population when the engine loads and
// instantiates templates on spawn inputs. New entities become active at the
// next commit.
type SpawnSystem struct {
	coresys.Base
	table    *data.TemplateTable
	maxBatch int
	spawned  int
}

func NewSpawnSystem(table *data.TemplateTable, maxBatch int) *SpawnSystem {
	return &SpawnSystem{
		Base:     coresys.NewBase("spawn"),
		table:    table,
		maxBatch: maxBatch,
	}
}

func (s *SpawnSystem) Hooks() coresys.Hooks {
	return coresys.Hooks{
		EngineLoaded:     s.load,
		GlobalInput:      s.spawn,
		GlobalInputKinds: []string{KindSpawn},
	}
}

func (s *SpawnSystem) load(ctx *coresys.Context) error {
	ents, err := s.table.SpawnAll()
	if err != nil {
		return err
	}
	s.spawned += len(ents)
	ctx.Log.Info("boot population spawned",
		zap.Int("templates", s.table.Count()),
		zap.Int("entities", len(ents)),
	)
	return nil
}

func (s *SpawnSystem) spawn(ctx *coresys.Context, in coresys.Input) error {
	req := in.(SpawnInput)
	tmpl := s.table.Get(req.Template)
	if tmpl == nil {
		ctx.Log.Warn("spawn ignored", zap.String("template", req.Template))
		return nil
	}
	n := req.Count
	if n <= 0 {
		n = 1
	}
	if s.maxBatch > 0 && n > s.maxBatch {
		ctx.Log.Warn("spawn batch clamped",
			zap.String("template", req.Template),
			zap.Int("requested", n),
			zap.Int("max", s.maxBatch),
		)
		n = s.maxBatch
	}
	for i := 0; i < n; i++ {
		if _, err := tmpl.Instantiate(); err != nil {
			return fmt.Errorf("spawn %q: %w", req.Template, err)
		}
	}
	s.spawned += n
	return nil
}

// Spawned returns the number of entities created so far.
func (s *SpawnSystem) Spawned() int { return s.spawned }

// Lookup returns the template behind a spawn name.
func (s *SpawnSystem) Lookup(name string) (*ecs.Template, bool) {
	t := s.table.Get(name)
	return t, t != nil
}
