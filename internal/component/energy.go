package component

import "github.com/forgesim/server/internal/core/ecs"

// Energy accepts several modifications per tick. Each writer queues a delta
// with Apply; the queued deltas are summed and clamped to [0, Max] when the
// tick's modifications are resolved.
type Energy struct {
	Value int32 `yaml:"value" json:"value"`
	Max   int32 `yaml:"max" json:"max"`

	pending []int32
}

func (e *Energy) Variant() ecs.Variant { return ecs.ConcurrentVersioned }

func (e *Energy) Clone() ecs.Data {
	c := *e
	c.pending = append([]int32(nil), e.pending...)
	return &c
}

// Apply queues a delta.
func (e *Energy) Apply(delta int32) {
	e.pending = append(e.pending, delta)
}

// Pending returns the number of queued deltas.
func (e *Energy) Pending() int { return len(e.pending) }

func (e *Energy) ResolveConcurrentModifications() error {
	v := int64(e.Value)
	for _, d := range e.pending {
		v += int64(d)
	}
	if v < 0 {
		v = 0
	}
	if e.Max > 0 && v > int64(e.Max) {
		v = int64(e.Max)
	}
	e.Value = int32(v)
	e.pending = e.pending[:0]
	return nil
}
