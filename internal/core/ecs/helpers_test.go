package ecs

import (
	"testing"

	"go.uber.org/zap"
)

type hp struct{ Value int }

func (h *hp) Variant() Variant { return NonVersioned }
func (h *hp) Clone() Data      { c := *h; return &c }

type pos struct{ X, Y int }

func (p *pos) Variant() Variant { return Versioned }
func (p *pos) Clone() Data      { c := *p; return &c }

// tally sums queued deltas on resolve and counts resolutions.
type tally struct {
	Total    int
	Resolves int
	pending  []int
}

func (t *tally) Variant() Variant { return ConcurrentVersioned }

func (t *tally) Clone() Data {
	c := *t
	c.pending = append([]int(nil), t.pending...)
	return &c
}

func (t *tally) ResolveConcurrentModifications() error {
	for _, d := range t.pending {
		t.Total += d
	}
	t.pending = t.pending[:0]
	t.Resolves++
	return nil
}

type fixture struct {
	w     *World
	hp    Accessor
	pos   Accessor
	tally Accessor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := NewAccessorRegistry()
	f := &fixture{
		hp:    AccessorOf[*hp](reg),
		pos:   AccessorOf[*pos](reg),
		tally: AccessorOf[*tally](reg),
	}
	f.w = NewWorld(reg, zap.NewNop())
	return f
}

func (f *fixture) commit(t *testing.T) *Changes {
	t.Helper()
	ch, err := f.w.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return ch
}

// spawn creates an entity with the given data and commits it.
func (f *fixture) spawn(t *testing.T, name string, accessors ...Accessor) *Entity {
	t.Helper()
	e := f.w.CreateEntity(name)
	for _, a := range accessors {
		if _, err := e.AddData(a); err != nil {
			t.Fatalf("add data: %v", err)
		}
	}
	f.commit(t)
	return e
}
