package system

import (
	"fmt"
	"testing"

	"github.com/forgesim/server/internal/core/ecs"
	"go.uber.org/zap"
)

type hp struct{ Value int }

func (h *hp) Variant() ecs.Variant { return ecs.NonVersioned }
func (h *hp) Clone() ecs.Data      { c := *h; return &c }

type tag struct{}

func (t *tag) Variant() ecs.Variant { return ecs.NonVersioned }
func (t *tag) Clone() ecs.Data      { return &tag{} }

type testInput string

func (k testInput) Kind() string { return string(k) }

// spy is a configurable system that records every hook call.
type spy struct {
	Base
	hooks Hooks
	calls *[]string
}

func newSpy(name string, calls *[]string, required ...ecs.Accessor) *spy {
	return &spy{Base: NewBase(name, required...), calls: calls}
}

func (p *spy) Hooks() Hooks { return p.hooks }

func (p *spy) record(format string, args ...any) {
	*p.calls = append(*p.calls, p.Name()+":"+fmt.Sprintf(format, args...))
}

// recordAll installs recording hooks for every capability.
func (p *spy) recordAll() *spy {
	p.hooks = Hooks{
		Added:    func(_ *Context, e *ecs.Entity) error { p.record("added %d", e.ID()); return nil },
		Removed:  func(_ *Context, e *ecs.Entity) error { p.record("removed %d", e.ID()); return nil },
		Modified: func(_ *Context, e *ecs.Entity) error { p.record("modified %d", e.ID()); return nil },
		Update:   func(_ *Context, e *ecs.Entity) error { p.record("update %d", e.ID()); return nil },
		GlobalPreUpdate: func(*Context) error {
			p.record("pre")
			return nil
		},
		GlobalPostUpdate: func(*Context) error {
			p.record("post")
			return nil
		},
	}
	return p
}

type world struct {
	w   *ecs.World
	hp  ecs.Accessor
	tag ecs.Accessor
}

func newWorld(t *testing.T) *world {
	t.Helper()
	reg := ecs.NewAccessorRegistry()
	return &world{
		w:   ecs.NewWorld(reg, zap.NewNop()),
		hp:  ecs.AccessorOf[*hp](reg),
		tag: ecs.AccessorOf[*tag](reg),
	}
}

// tick commits the world and dispatches the runner once.
func (w *world) tick(t *testing.T, r *Runner, n uint64, inputs ...Input) {
	t.Helper()
	ch, err := w.w.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	ctx := &Context{World: w.w, Tick: n, Log: zap.NewNop()}
	if err := r.Dispatch(ctx, ch, inputs); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
}
