package ecs

import "math/bits"

// Mask is a growable bit set of accessor ids.
type Mask []uint64

func (m *Mask) set(a Accessor) {
	w := int(a.id >> 6)
	for len(*m) <= w {
		*m = append(*m, 0)
	}
	(*m)[w] |= 1 << (a.id & 63)
}

func (m Mask) unset(a Accessor) {
	w := int(a.id >> 6)
	if w < len(m) {
		m[w] &^= 1 << (a.id & 63)
	}
}

// Has reports whether a is in the set.
func (m Mask) Has(a Accessor) bool {
	w := int(a.id >> 6)
	return w < len(m) && m[w]&(1<<(a.id&63)) != 0
}

// Contains reports whether every bit of sub is also set in m.
func (m Mask) Contains(sub Mask) bool {
	for i, w := range sub {
		if w == 0 {
			continue
		}
		if i >= len(m) || m[i]&w != w {
			return false
		}
	}
	return true
}

// Intersects reports whether m and other share at least one bit.
func (m Mask) Intersects(other Mask) bool {
	n := min(len(m), len(other))
	for i := 0; i < n; i++ {
		if m[i]&other[i] != 0 {
			return true
		}
	}
	return false
}

// Empty reports whether no bit is set.
func (m Mask) Empty() bool {
	for _, w := range m {
		if w != 0 {
			return false
		}
	}
	return true
}

// Len returns the number of set bits.
func (m Mask) Len() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

func (m *Mask) reset() {
	for i := range *m {
		(*m)[i] = 0
	}
}

func (m Mask) clone() Mask {
	if len(m) == 0 {
		return nil
	}
	out := make(Mask, len(m))
	copy(out, m)
	return out
}

// Filter selects entities holding every required data kind. An empty filter
// passes every entity.
type Filter struct {
	required []Accessor
	mask     Mask
}

func NewFilter(required ...Accessor) Filter {
	f := Filter{required: append([]Accessor(nil), required...)}
	for _, a := range required {
		f.mask.set(a)
	}
	return f
}

// Required returns the accessors the filter was built from.
func (f Filter) Required() []Accessor { return f.required }

// Empty reports whether the filter has no requirements.
func (f Filter) Empty() bool { return f.mask.Empty() }

// Check reports whether e currently contains every required kind. Removed
// slots do not count.
func (f Filter) Check(e *Entity) bool {
	if e.state == entityRemoved {
		return false
	}
	return e.mask.Contains(f.mask)
}

// Touched reports whether any required kind of e was added, modified or
// removed at the last commit. For an empty filter any change counts.
func (f Filter) Touched(e *Entity) bool {
	if f.Empty() {
		return !e.wasAdded.Empty() || !e.wasModified.Empty() || !e.wasRemoved.Empty()
	}
	return f.mask.Intersects(e.wasAdded) || f.mask.Intersects(e.wasModified) || f.mask.Intersects(e.wasRemoved)
}
