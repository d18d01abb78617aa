package ecs

// Select calls fn for every active entity passing f, in id order. Iteration
// stops at the first error.
func (w *World) Select(f Filter, fn func(*Entity) error) error {
	for _, e := range w.active {
		if !f.Check(e) {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Each2 iterates over active entities holding both kinds behind a and b.
func Each2[A, B Data](w *World, a, b Accessor, fn func(*Entity, A, B)) {
	f := NewFilter(a, b)
	for _, e := range w.active {
		if !f.Check(e) {
			continue
		}
		da, okA := e.slots[a].current.(A)
		db, okB := e.slots[b].current.(B)
		if okA && okB {
			fn(e, da, db)
		}
	}
}

// SelectData returns the current value of every contained slot whose
// accessor passes pred, in accessor order. A nil pred selects everything.
func (e *Entity) SelectData(pred func(Accessor) bool) []Data {
	var out []Data
	for _, a := range e.Accessors() {
		if pred == nil || pred(a) {
			out = append(out, e.slots[a].current)
		}
	}
	return out
}
