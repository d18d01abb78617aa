package ecs

// mutation is the per-tick state of a slot.
type mutation uint8

const (
	mutNone mutation = iota
	mutAdded
	mutRemoved
	mutModified
)

func (m mutation) String() string {
	switch m {
	case mutAdded:
		return "added"
	case mutRemoved:
		return "removed"
	case mutModified:
		return "modified"
	default:
		return "none"
	}
}

// slot stores one data kind on one entity.
//
// current is the live value. previous is the value published as the last
// tick's starting point; it is never written in place. start holds the value
// current had when a versioned slot was first modified this tick and becomes
// previous at the next commit.
type slot struct {
	current  Data
	previous Data
	start    Data
	variant  Variant
	state    mutation
	modifies int

	// fresh is set when the slot was added this tick; a fresh slot has no
	// previous value yet.
	fresh bool
	// replaced is set when data was added over a slot removed this tick.
	replaced bool
	// lingering marks a slot removed at the last commit. It keeps answering
	// Current for the removal window and is dropped at the next commit.
	lingering bool
	// resolved is set once concurrent modifications were merged.
	resolved bool
	// shared marks current as referenced outside the store, so the next
	// write must go to a copy.
	shared bool
	// settle asks the next commit to roll previous forward if the slot is
	// left untouched.
	settle bool
}

func newSlot(d Data, v Variant) *slot {
	return &slot{current: d, variant: v, state: mutAdded, fresh: true}
}

func (s *slot) versioned() bool { return s.variant != NonVersioned }

// writable returns current, first detaching it from any outside reference.
func (s *slot) writable() Data {
	if s.shared {
		s.current = s.current.Clone()
		s.shared = false
	}
	return s.current
}

// modify applies the single-modify rule and hands out the mutable value.
func (s *slot) modify() (Data, error) {
	switch s.state {
	case mutRemoved:
		return nil, ErrNoSuchData
	case mutAdded:
		// Added data is still being initialized; the single-modify rule
		// does not apply, but concurrent modifications are counted.
		s.modifies++
		s.resolved = false
		return s.writable(), nil
	}
	if s.modifies > 0 && s.variant != ConcurrentVersioned {
		return nil, ErrRemodifiedData
	}
	if s.modifies == 0 && s.versioned() {
		// Keep the tick's starting value intact for the next Previous window.
		s.start = s.current
		s.current = s.current.Clone()
		s.shared = false
	}
	s.state = mutModified
	s.modifies++
	s.resolved = false
	return s.writable(), nil
}

// resolve merges concurrent modifications at most once per batch.
func (s *slot) resolve() error {
	if s.variant != ConcurrentVersioned || s.resolved {
		return nil
	}
	if s.state != mutModified && (s.state != mutAdded || s.modifies == 0) {
		return nil
	}
	s.resolved = true
	return s.writable().(Resolver).ResolveConcurrentModifications()
}

// published returns the value the slot held when the running tick started,
// or nil when there is none.
func (s *slot) published() Data {
	if !s.versioned() || s.fresh {
		return nil
	}
	switch s.state {
	case mutModified:
		return s.start
	case mutRemoved:
		return nil
	default:
		return s.current
	}
}

func (s *slot) prev() (Data, error) {
	if !s.versioned() {
		return nil, ErrPreviousRequiresVersionedData
	}
	if s.state == mutRemoved || s.fresh || s.previous == nil {
		return nil, ErrNoSuchData
	}
	return s.previous, nil
}
