package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureIsNotAffectedByLaterWrites(t *testing.T) {
	f := newFixture(t)
	e := f.w.CreateEntity("e")
	h, err := As[*hp](e.AddData(f.hp))
	require.NoError(t, err)
	h.Value = 10
	p, err := As[*pos](e.AddData(f.pos))
	require.NoError(t, err)
	p.X = 1
	f.commit(t)

	snap := e.Capture()

	h, err = As[*hp](e.Modify(f.hp))
	require.NoError(t, err)
	h.Value = 3
	p, err = As[*pos](e.Modify(f.pos))
	require.NoError(t, err)
	p.X = 2

	sh, err := As[*hp](snap.Current(f.hp))
	require.NoError(t, err)
	assert.Equal(t, 10, sh.Value)
	sp, err := As[*pos](snap.Current(f.pos))
	require.NoError(t, err)
	assert.Equal(t, 1, sp.X)
}

func TestCaptureReusesUnchangedView(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, "e", f.hp)
	a := e.Capture()
	assert.Same(t, a, e.Capture())

	_, err := e.Modify(f.hp)
	require.NoError(t, err)
	assert.NotSame(t, a, e.Capture())
}

func TestSnapshotPreviousIsTickStart(t *testing.T) {
	f := newFixture(t)
	e := f.w.CreateEntity("e")
	p, err := As[*pos](e.AddData(f.pos))
	require.NoError(t, err)
	p.X = 1

	snap := e.Capture()
	_, err = snap.Previous(f.pos)
	assert.ErrorIs(t, err, ErrNoSuchData, "added this tick")

	f.commit(t)
	p, err = As[*pos](e.Modify(f.pos))
	require.NoError(t, err)
	p.X = 5
	snap = e.Capture()
	prev, err := As[*pos](snap.Previous(f.pos))
	require.NoError(t, err)
	assert.Equal(t, 1, prev.X)

	f.commit(t)
	snap = e.Capture()
	assert.True(t, snap.WasModified(f.pos))
	prev, err = As[*pos](snap.Previous(f.pos))
	require.NoError(t, err)
	assert.Equal(t, 5, prev.X, "unchanged during the captured tick")
}

func TestSnapshotErrors(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, "e", f.hp)
	snap := e.Capture()

	_, err := snap.Previous(f.hp)
	assert.ErrorIs(t, err, ErrPreviousRequiresVersionedData)
	_, err = snap.Current(f.pos)
	assert.ErrorIs(t, err, ErrNoSuchData)
	assert.True(t, snap.ContainsData(f.hp))
	assert.False(t, snap.ContainsData(f.pos))
	assert.Equal(t, "e", snap.PrettyName())
	assert.Equal(t, e.ID(), snap.ID())
}

func TestSnapshotOfDestroyedEntity(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, "e", f.hp)
	e.Destroy()
	f.commit(t)

	snap := e.Capture()
	assert.True(t, snap.Removed())
	assert.True(t, snap.WasRemoved(f.hp))
	assert.False(t, snap.ContainsData(f.hp))
	_, err := snap.Current(f.hp)
	assert.NoError(t, err)
}

func TestEntitySnapshotClone(t *testing.T) {
	f := newFixture(t)
	e := f.w.CreateEntity("e")
	h, err := As[*hp](e.AddData(f.hp))
	require.NoError(t, err)
	h.Value = 8
	f.commit(t)

	snap := e.Capture()
	c := snap.Clone()
	ch, err := As[*hp](c.Current(f.hp))
	require.NoError(t, err)
	ch.Value = 0

	sh, err := As[*hp](snap.Current(f.hp))
	require.NoError(t, err)
	assert.Equal(t, 8, sh.Value)
}

func TestTemplateCapture(t *testing.T) {
	f := newFixture(t)
	tmpl, err := f.w.CreateTemplate("t")
	require.NoError(t, err)
	_, err = tmpl.SetDefault(&hp{Value: 2})
	require.NoError(t, err)

	snap := tmpl.Capture()
	assert.Equal(t, tmpl.ID(), snap.ID())
	assert.Equal(t, "t", snap.PrettyName())
	require.Len(t, snap.Defaults(), 1)

	c := snap.Clone()
	d, err := As[*hp](c.Default(f.hp))
	require.NoError(t, err)
	d.Value = 100
	orig, err := As[*hp](snap.Default(f.hp))
	require.NoError(t, err)
	assert.Equal(t, 2, orig.Value)

	_, err = snap.Default(f.pos)
	assert.ErrorIs(t, err, ErrNoSuchData)
}
