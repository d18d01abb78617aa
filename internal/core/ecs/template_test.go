package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateInstantiate(t *testing.T) {
	f := newFixture(t)
	tmpl, err := f.w.CreateTemplate("soldier")
	require.NoError(t, err)
	assert.Equal(t, TemplateID(1), tmpl.ID(), "template ids are separate from entity ids")

	d, err := As[*hp](tmpl.AddDefault(f.hp))
	require.NoError(t, err)
	d.Value = 30
	_, err = tmpl.SetDefault(&pos{X: 4})
	require.NoError(t, err)
	_, err = tmpl.AddDefault(f.hp)
	assert.ErrorIs(t, err, ErrAlreadyAddedData)
	assert.Equal(t, []Accessor{f.hp, f.pos}, tmpl.Accessors())

	e, err := tmpl.Instantiate()
	require.NoError(t, err)
	assert.Equal(t, "soldier", e.PrettyName())
	h, err := As[*hp](e.Modify(f.hp))
	require.NoError(t, err)
	assert.Equal(t, 30, h.Value)
	h.Value = 1

	def, err := As[*hp](tmpl.Default(f.hp))
	require.NoError(t, err)
	assert.Equal(t, 30, def.Value, "instances own a copy of the defaults")

	f.commit(t)
	assert.True(t, e.WasAdded(f.hp))
	assert.True(t, e.WasAdded(f.pos))
	p, err := As[*pos](e.Current(f.pos))
	require.NoError(t, err)
	assert.Equal(t, 4, p.X)

	got, ok := f.w.Template(tmpl.ID())
	require.True(t, ok)
	assert.Same(t, tmpl, got)
}

func TestFrozenTemplates(t *testing.T) {
	f := newFixture(t)
	tmpl, err := f.w.CreateTemplate("a")
	require.NoError(t, err)
	f.w.Freeze()
	assert.True(t, f.w.Frozen())

	_, err = f.w.CreateTemplate("b")
	assert.ErrorIs(t, err, ErrTemplateFrozen)
	_, err = tmpl.AddDefault(f.hp)
	assert.ErrorIs(t, err, ErrTemplateFrozen)
	_, err = tmpl.SetDefault(&hp{})
	assert.ErrorIs(t, err, ErrTemplateFrozen)

	_, err = tmpl.Instantiate()
	assert.NoError(t, err, "frozen templates can still be instantiated")
	assert.Len(t, f.w.Templates(), 1)
}
