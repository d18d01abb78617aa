package system

import (
	"errors"
	"fmt"
	"testing"

	"github.com/forgesim/server/internal/core/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatchMembershipTransitions(t *testing.T) {
	w := newWorld(t)
	var calls []string
	p := newSpy("p", &calls, w.hp).recordAll()
	r := NewRunner(nil)
	require.NoError(t, r.Register(p))

	e := w.w.CreateEntity("e")
	_, err := e.AddData(w.hp)
	require.NoError(t, err)
	w.tick(t, r, 1)
	assert.Equal(t, []string{"p:pre", "p:added 2", "p:update 2", "p:post"}, calls)
	assert.Equal(t, []ecs.EntityID{2}, r.Members("p"))

	calls = calls[:0]
	_, err = e.Modify(w.hp)
	require.NoError(t, err)
	w.tick(t, r, 2)
	assert.Equal(t, []string{"p:pre", "p:modified 2", "p:update 2", "p:post"}, calls)

	calls = calls[:0]
	w.tick(t, r, 3)
	assert.Equal(t, []string{"p:pre", "p:update 2", "p:post"}, calls)

	calls = calls[:0]
	require.True(t, e.RemoveData(w.hp))
	w.tick(t, r, 4)
	assert.Equal(t, []string{"p:pre", "p:removed 2", "p:post"}, calls)
	assert.Empty(t, r.Members("p"))

	calls = calls[:0]
	_, err = e.AddData(w.hp)
	require.NoError(t, err)
	w.tick(t, r, 5)
	assert.Equal(t, []string{"p:pre", "p:added 2", "p:update 2", "p:post"}, calls)

	calls = calls[:0]
	e.Destroy()
	w.tick(t, r, 6)
	assert.Equal(t, []string{"p:pre", "p:removed 2", "p:post"}, calls)
	assert.Empty(t, r.Members("p"))
}

func TestRemovedHookReadsRemovedData(t *testing.T) {
	w := newWorld(t)
	var calls []string
	p := newSpy("p", &calls, w.hp)
	p.hooks = Hooks{
		Removed: func(_ *Context, e *ecs.Entity) error {
			d, err := ecs.As[*hp](e.Current(w.hp))
			if err != nil {
				return err
			}
			p.record("removed %d hp=%d", e.ID(), d.Value)
			return nil
		},
	}
	r := NewRunner(nil)
	require.NoError(t, r.Register(p))

	a := w.w.CreateEntity("a")
	d, err := ecs.As[*hp](a.AddData(w.hp))
	require.NoError(t, err)
	d.Value = 4
	b := w.w.CreateEntity("b")
	d, err = ecs.As[*hp](b.AddData(w.hp))
	require.NoError(t, err)
	d.Value = 9
	w.tick(t, r, 1)

	require.True(t, a.RemoveData(w.hp))
	b.Destroy()
	w.tick(t, r, 2)
	assert.Equal(t, []string{"p:removed 3 hp=9", "p:removed 2 hp=4"}, calls)
	assert.False(t, a.ContainsData(w.hp))

	w.tick(t, r, 3)
	_, err = a.Current(w.hp)
	assert.ErrorIs(t, err, ecs.ErrNoSuchData)
}

func TestDispatchIgnoresUnrelatedChanges(t *testing.T) {
	w := newWorld(t)
	var calls []string
	p := newSpy("p", &calls, w.hp).recordAll()
	r := NewRunner(nil)
	require.NoError(t, r.Register(p))

	e := w.w.CreateEntity("e")
	_, err := e.AddData(w.hp)
	require.NoError(t, err)
	w.tick(t, r, 1)

	calls = calls[:0]
	_, err = e.AddData(w.tag)
	require.NoError(t, err)
	w.tick(t, r, 2)
	assert.Equal(t, []string{"p:pre", "p:update 2", "p:post"}, calls)
}

func TestDispatchInputsByKind(t *testing.T) {
	w := newWorld(t)
	var calls []string
	p := newSpy("p", &calls, w.hp)
	p.hooks = Hooks{
		Input: func(_ *Context, in Input, e *ecs.Entity) error {
			p.record("input %s %d", in.Kind(), e.ID())
			return nil
		},
		InputKinds: []string{"poke"},
		GlobalInput: func(_ *Context, in Input) error {
			p.record("global %s", in.Kind())
			return nil
		},
	}
	r := NewRunner(nil)
	require.NoError(t, r.Register(p))

	for i := 0; i < 2; i++ {
		e := w.w.CreateEntity(fmt.Sprintf("e%d", i))
		_, err := e.AddData(w.hp)
		require.NoError(t, err)
	}
	w.tick(t, r, 1, testInput("poke"), testInput("other"), testInput("poke"))

	assert.Equal(t, []string{
		"p:input poke 2", "p:input poke 3",
		"p:input poke 2", "p:input poke 3",
		"p:global poke", "p:global other", "p:global poke",
	}, calls)
}

func TestDispatchGlobalPhasesWrapScheduledSystems(t *testing.T) {
	w := newWorld(t)
	var calls []string
	a := newSpy("a", &calls, w.hp).recordAll()
	b := newSpy("b", &calls, w.hp).recordAll()
	a.RunBefore("b")
	r := NewRunner(zap.NewNop())
	require.NoError(t, r.Register(b))
	require.NoError(t, r.Register(a))

	e := w.w.CreateEntity("e")
	_, err := e.AddData(w.hp)
	require.NoError(t, err)
	w.tick(t, r, 1)

	assert.Equal(t, []string{
		"a:pre", "b:pre",
		"a:added 2", "a:update 2",
		"b:added 2", "b:update 2",
		"a:post", "b:post",
	}, calls)

	infos := r.Infos()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, 1, infos[0].Members)
	assert.True(t, infos[0].Capabilities.Has(CapUpdate|CapGlobalPreUpdate))
	assert.Equal(t, []ecs.Accessor{w.hp}, infos[0].Required)
}

func TestDispatchStopsAtFirstError(t *testing.T) {
	w := newWorld(t)
	var calls []string
	boom := errors.New("boom")
	a := newSpy("a", &calls, w.hp)
	a.hooks = Hooks{Update: func(*Context, *ecs.Entity) error { return boom }}
	b := newSpy("b", &calls, w.hp).recordAll()
	r := NewRunner(nil)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	e := w.w.CreateEntity("e")
	_, err := e.AddData(w.hp)
	require.NoError(t, err)
	ch, err := w.w.Commit()
	require.NoError(t, err)

	err = r.Dispatch(&Context{World: w.w, Tick: 1, Log: zap.NewNop()}, ch, nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "system a")
	assert.Equal(t, []string{"b:pre"}, calls)
}

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	var calls []string
	r := NewRunner(nil)
	require.NoError(t, r.Register(newSpy("p", &calls)))
	assert.Error(t, r.Register(newSpy("p", &calls)))
}

func TestLoadRunsEngineLoadedInOrder(t *testing.T) {
	w := newWorld(t)
	var calls []string
	mk := func(name string) *spy {
		p := newSpy(name, &calls)
		p.hooks = Hooks{EngineLoaded: func(*Context) error {
			p.record("loaded")
			return nil
		}}
		return p
	}
	a, b := mk("a"), mk("b")
	b.RunBefore("a")
	r := NewRunner(nil)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	require.NoError(t, r.Load(&Context{World: w.w, Log: zap.NewNop()}))
	assert.Equal(t, []string{"b:loaded", "a:loaded"}, calls)
}

func TestLoadReportsCycle(t *testing.T) {
	w := newWorld(t)
	var calls []string
	a := newSpy("a", &calls)
	b := newSpy("b", &calls)
	a.RunAfter("b")
	b.RunAfter("a")
	r := NewRunner(nil)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	err := r.Load(&Context{World: w.w, Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrSchedulingCycle)
}

func TestCapabilityString(t *testing.T) {
	assert.Equal(t, "none", Capability(0).String())
	assert.Equal(t, "added|update", (CapAdded | CapUpdate).String())

	h := Hooks{GlobalInput: func(*Context, Input) error { return nil }}
	assert.Equal(t, CapGlobalInput, h.Capabilities())
}
