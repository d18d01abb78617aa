package component

import "github.com/forgesim/server/internal/core/ecs"

// Health is hit points. Only the current value matters, so it keeps no
// previous copy.
type Health struct {
	Value int32 `yaml:"value" json:"value"`
	Max   int32 `yaml:"max" json:"max"`
}

func (h *Health) Variant() ecs.Variant { return ecs.NonVersioned }

func (h *Health) Clone() ecs.Data {
	c := *h
	return &c
}

// Dead reports whether the entity ran out of hit points.
func (h *Health) Dead() bool { return h.Value <= 0 }

// Heal adds n, capped at Max. A zero Max means uncapped.
func (h *Health) Heal(n int32) {
	h.Value += n
	if h.Max > 0 && h.Value > h.Max {
		h.Value = h.Max
	}
}

// Lifetime destroys its entity after Ticks more ticks.
type Lifetime struct {
	Ticks int32 `yaml:"ticks" json:"ticks"`
}

func (l *Lifetime) Variant() ecs.Variant { return ecs.NonVersioned }

func (l *Lifetime) Clone() ecs.Data {
	c := *l
	return &c
}
