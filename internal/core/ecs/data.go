package ecs

// Variant selects how a data kind is versioned across ticks.
type Variant uint8

const (
	// NonVersioned data keeps only its current value; Previous is invalid.
	NonVersioned Variant = iota
	// Versioned data keeps the value from the start of the last modifying
	// tick, refreshed only at the tick boundary.
	Versioned
	// ConcurrentVersioned data is versioned and accepts more than one Modify
	// per tick. The kind must implement Resolver.
	ConcurrentVersioned
)

func (v Variant) String() string {
	switch v {
	case NonVersioned:
		return "non-versioned"
	case Versioned:
		return "versioned"
	case ConcurrentVersioned:
		return "concurrent-versioned"
	default:
		return "unknown"
	}
}

// Data is implemented by every data kind stored on an entity. Kinds must be
// pointers to structs; the zero struct is the default instance. State that
// must survive a replay belongs in exported fields, which is what snapshot
// checksums encode.
type Data interface {
	Variant() Variant
	// Clone returns a deep copy that shares no mutable state with the receiver.
	Clone() Data
}

// Resolver merges every modification made to a ConcurrentVersioned slot in
// one tick into a single state. Calling it again without further
// modifications must not change the value.
type Resolver interface {
	ResolveConcurrentModifications() error
}

// As narrows a (Data, error) pair to the concrete kind T.
func As[T Data](d Data, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	t, ok := d.(T)
	if !ok {
		return zero, ErrNoSuchData
	}
	return t, nil
}
