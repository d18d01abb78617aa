package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScheduleRespectsOrdering(t *testing.T) {
	var calls []string
	a := newSpy("a", &calls)
	b := newSpy("b", &calls)
	c := newSpy("c", &calls)
	a.RunBefore("b")
	c.RunAfter("b")

	s, err := BuildSchedule([]System{c, b, a})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, s.Names())
	require.Len(t, s.Groups(), 3)
	assert.Equal(t, []System{a}, s.Groups()[0])
}

func TestBuildScheduleKeepsRegistrationOrderForUnrelated(t *testing.T) {
	var calls []string
	x := newSpy("x", &calls)
	y := newSpy("y", &calls)
	z := newSpy("z", &calls)
	w := newSpy("w", &calls)
	w.RunBefore("x")

	s, err := BuildSchedule([]System{x, y, z, w})
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z", "w", "x"}, s.Names())
	require.Len(t, s.Groups(), 2)
	assert.Len(t, s.Groups()[0], 3)
	assert.Equal(t, []System{x}, s.Groups()[1])

	again, err := BuildSchedule([]System{x, y, z, w})
	require.NoError(t, err)
	assert.Equal(t, s.Names(), again.Names())
}

func TestGroupsFollowDispatchOrder(t *testing.T) {
	var calls []string
	a := newSpy("a", &calls)
	b := newSpy("b", &calls)
	c := newSpy("c", &calls)
	a.RunBefore("b")

	s, err := BuildSchedule([]System{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, s.Names())
	assert.Equal(t, [][]System{{a}, {b, c}}, s.Groups())

	var flat []System
	for _, g := range s.Groups() {
		flat = append(flat, g...)
	}
	assert.Equal(t, s.Order(), flat)
}

func TestBuildScheduleDetectsCycle(t *testing.T) {
	var calls []string
	a := newSpy("a", &calls)
	b := newSpy("b", &calls)
	c := newSpy("c", &calls)
	a.RunBefore("b")
	b.RunBefore("c")
	c.RunBefore("a")

	_, err := BuildSchedule([]System{a, b, c})
	require.ErrorIs(t, err, ErrSchedulingCycle)
	assert.Contains(t, err.Error(), "a -> b")
	assert.Contains(t, err.Error(), "c -> a")
}

func TestBuildScheduleDetectsContradiction(t *testing.T) {
	var calls []string
	a := newSpy("a", &calls)
	b := newSpy("b", &calls)
	a.RunBefore("b")
	b.RunBefore("a")

	_, err := BuildSchedule([]System{a, b})
	require.ErrorIs(t, err, ErrSchedulingCycle)
	assert.Contains(t, err.Error(), "a and b")
}

func TestOrderingFromBothSides(t *testing.T) {
	var calls []string
	a := newSpy("a", &calls)
	b := newSpy("b", &calls)
	b.RunAfter("a")
	a.RunBefore("b")

	s, err := BuildSchedule([]System{b, a})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.Names())
}
