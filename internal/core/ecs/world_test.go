package ecs

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(list []*Entity) []EntityID {
	out := make([]EntityID, len(list))
	for i, e := range list {
		out[i] = e.ID()
	}
	return out
}

func TestGlobalEntity(t *testing.T) {
	f := newFixture(t)
	g := f.w.Global()
	require.NotNil(t, g)
	assert.Equal(t, EntityID(1), g.ID())
	assert.Equal(t, "global", g.PrettyName())

	ch := f.commit(t)
	assert.Equal(t, []EntityID{1}, ids(ch.Added))

	g.Destroy()
	assert.False(t, g.IsDestroyed())
	f.commit(t)
	assert.Equal(t, []EntityID{1}, ids(f.w.Active()))
}

func TestEntityBecomesActiveAtCommit(t *testing.T) {
	f := newFixture(t)
	f.commit(t)

	e := f.w.CreateEntity("e")
	assert.NotContains(t, f.w.Active(), e)
	assert.Contains(t, f.w.Pending(), e)
	got, ok := f.w.Entity(e.ID())
	require.True(t, ok)
	assert.Same(t, e, got)

	ch := f.commit(t)
	assert.Equal(t, []EntityID{e.ID()}, ids(ch.Added))
	assert.Equal(t, []EntityID{e.ID()}, ids(ch.Touched))
	assert.Contains(t, f.w.Active(), e)
	assert.Empty(t, f.w.Pending())

	ch = f.commit(t)
	assert.Empty(t, ch.Added)
	assert.Empty(t, f.w.Added())
}

func TestDestroyKeepsEntityObservableForOneTick(t *testing.T) {
	f := newFixture(t)
	e := f.w.CreateEntity("e")
	d, err := As[*hp](e.AddData(f.hp))
	require.NoError(t, err)
	d.Value = 4
	f.commit(t)

	e.Destroy()
	assert.True(t, e.IsDestroyed())
	_, err = e.Modify(f.hp)
	assert.NoError(t, err, "the entity lives until the next commit")

	ch := f.commit(t)
	assert.Equal(t, []EntityID{e.ID()}, ids(ch.Removed))
	assert.Equal(t, []EntityID{e.ID()}, ids(f.w.Removed()))
	assert.NotContains(t, f.w.Active(), e)
	assert.True(t, e.WasRemoved(f.hp))
	assert.False(t, e.ContainsData(f.hp))

	cur, err := As[*hp](e.Current(f.hp))
	require.NoError(t, err)
	assert.Equal(t, 4, cur.Value)

	_, err = e.Modify(f.hp)
	assert.ErrorIs(t, err, ErrNoSuchData)
	_, err = e.AddData(f.pos)
	assert.ErrorIs(t, err, ErrEntityRemoved)
	_, ok := f.w.Entity(e.ID())
	assert.True(t, ok)

	f.commit(t)
	assert.Empty(t, f.w.Removed())
	_, ok = f.w.Entity(e.ID())
	assert.False(t, ok)
}

func TestDestroyBeforeFirstCommit(t *testing.T) {
	f := newFixture(t)
	f.commit(t)

	e := f.w.CreateEntity("short-lived")
	_, err := e.AddData(f.hp)
	require.NoError(t, err)
	e.Destroy()

	ch := f.commit(t)
	assert.Empty(t, ch.Added)
	assert.Empty(t, ch.Removed)
	assert.Empty(t, ch.Touched)
	_, ok := f.w.Entity(e.ID())
	assert.False(t, ok)
}

func TestDestroyTwiceQueuesOnce(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, "e")
	e.Destroy()
	e.Destroy()
	ch := f.commit(t)
	assert.Len(t, ch.Removed, 1)
}

func TestIDsAreNeverReused(t *testing.T) {
	f := newFixture(t)
	a := f.spawn(t, "a")
	a.Destroy()
	f.commit(t)
	f.commit(t)

	b := f.w.CreateEntity("b")
	assert.Greater(t, uint64(b.ID()), uint64(a.ID()))
}

func TestActiveStaysOrderedByID(t *testing.T) {
	f := newFixture(t)
	var made []*Entity
	for i := 0; i < 5; i++ {
		made = append(made, f.w.CreateEntity(""))
	}
	f.commit(t)
	made[1].Destroy()
	made[3].Destroy()
	f.commit(t)
	f.w.CreateEntity("")
	f.commit(t)

	got := ids(f.w.Active())
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }))
	assert.Len(t, got, 5) // global + 3 survivors + 1 new
}

func TestTouchedListsOnlyChangedEntities(t *testing.T) {
	f := newFixture(t)
	a := f.spawn(t, "a", f.hp)
	b := f.spawn(t, "b", f.hp)
	f.commit(t)

	_, err := b.Modify(f.hp)
	require.NoError(t, err)
	ch := f.commit(t)
	assert.Equal(t, []EntityID{b.ID()}, ids(ch.Touched))
	assert.False(t, a.WasModified(f.hp))
	assert.True(t, b.WasModified(f.hp))
}

func TestFilterCheck(t *testing.T) {
	f := newFixture(t)
	both := f.spawn(t, "both", f.hp, f.pos)
	one := f.spawn(t, "one", f.hp)

	filter := NewFilter(f.hp, f.pos)
	assert.True(t, filter.Check(both))
	assert.False(t, filter.Check(one))
	assert.True(t, NewFilter().Check(one), "an empty filter passes everything")

	both.RemoveData(f.pos)
	assert.False(t, filter.Check(both), "removed slots do not count")

	var got []EntityID
	require.NoError(t, f.w.Select(NewFilter(f.hp), func(e *Entity) error {
		got = append(got, e.ID())
		return nil
	}))
	assert.Equal(t, []EntityID{both.ID(), one.ID()}, got)
}

func TestFilterTouched(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, "e", f.hp, f.pos)
	filter := NewFilter(f.pos)

	_, err := e.Modify(f.hp)
	require.NoError(t, err)
	f.commit(t)
	assert.False(t, filter.Touched(e))
	assert.True(t, NewFilter().Touched(e))

	_, err = e.Modify(f.pos)
	require.NoError(t, err)
	f.commit(t)
	assert.True(t, filter.Touched(e))
}

func TestMaskGrowsPastOneWord(t *testing.T) {
	var m Mask
	a := Accessor{id: 3}
	b := Accessor{id: 130}
	m.set(a)
	m.set(b)
	assert.True(t, m.Has(a))
	assert.True(t, m.Has(b))
	assert.False(t, m.Has(Accessor{id: 64}))
	assert.Equal(t, 2, m.Len())

	var sub Mask
	sub.set(b)
	assert.True(t, m.Contains(sub))
	assert.True(t, m.Intersects(sub))
	m.unset(b)
	assert.False(t, m.Contains(sub))
	assert.False(t, m.Empty())
}

func TestEach2(t *testing.T) {
	f := newFixture(t)
	e := f.w.CreateEntity("e")
	p, err := As[*pos](e.AddData(f.pos))
	require.NoError(t, err)
	p.X = 2
	h, err := As[*hp](e.AddData(f.hp))
	require.NoError(t, err)
	h.Value = 9
	f.spawn(t, "only-hp", f.hp)

	calls := 0
	Each2(f.w, f.pos, f.hp, func(got *Entity, p *pos, h *hp) {
		calls++
		assert.Same(t, e, got)
		assert.Equal(t, 2, p.X)
		assert.Equal(t, 9, h.Value)
	})
	assert.Equal(t, 1, calls)
}
