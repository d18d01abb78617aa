package ecs

import (
	"fmt"
	"reflect"
	"sync"
)

// Accessor is the stable small-integer handle of a data kind.
type Accessor struct {
	id uint32
}

// ID returns the dense index of the accessor.
func (a Accessor) ID() int { return int(a.id) }

type kindInfo struct {
	typ     reflect.Type
	name    string
	variant Variant
}

// AccessorRegistry maps data kinds to accessors. Ids are dense, handed out
// monotonically on first use and never released. Each simulation owns its
// registry; tests build one per case.
type AccessorRegistry struct {
	mu     sync.RWMutex
	ids    map[reflect.Type]Accessor
	kinds  []kindInfo
	byName map[string]Accessor
}

func NewAccessorRegistry() *AccessorRegistry {
	return &AccessorRegistry{
		ids:    make(map[reflect.Type]Accessor, 32),
		kinds:  make([]kindInfo, 0, 32),
		byName: make(map[string]Accessor, 32),
	}
}

var dataType = reflect.TypeOf((*Data)(nil)).Elem()

// AccessorOf returns the accessor for kind T, registering it if needed.
func AccessorOf[T Data](r *AccessorRegistry) Accessor {
	return r.GetOrCreateType(reflect.TypeOf((*T)(nil)).Elem())
}

// GetOrCreate returns the accessor for the dynamic type of kind.
func (r *AccessorRegistry) GetOrCreate(kind Data) Accessor {
	return r.GetOrCreateType(reflect.TypeOf(kind))
}

// Register registers every given kind and returns their accessors in order.
func (r *AccessorRegistry) Register(kinds ...Data) []Accessor {
	out := make([]Accessor, len(kinds))
	for i, k := range kinds {
		out[i] = r.GetOrCreate(k)
	}
	return out
}

// GetOrCreateType is idempotent. It panics when t is not a pointer to a
// struct implementing Data, or when a ConcurrentVersioned kind lacks
// ResolveConcurrentModifications; both are programming errors.
func (r *AccessorRegistry) GetOrCreateType(t reflect.Type) Accessor {
	r.mu.RLock()
	a, ok := r.ids[t]
	r.mu.RUnlock()
	if ok {
		return a
	}

	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct || !t.Implements(dataType) {
		panic(fmt.Sprintf("ecs: %v is not a pointer-to-struct data kind", t))
	}
	proto := reflect.New(t.Elem()).Interface().(Data)
	variant := proto.Variant()
	if variant == ConcurrentVersioned {
		if _, ok := proto.(Resolver); !ok {
			panic(fmt.Sprintf("ecs: concurrent kind %v does not implement Resolver", t))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.ids[t]; ok {
		return a
	}
	a = Accessor{id: uint32(len(r.kinds))}
	info := kindInfo{typ: t, name: t.Elem().Name(), variant: variant}
	if _, taken := r.byName[info.name]; taken {
		info.name = t.Elem().PkgPath() + "." + info.name
	}
	r.ids[t] = a
	r.kinds = append(r.kinds, info)
	r.byName[info.name] = a
	return a
}

// TypeOf returns the data kind behind a. Used for diagnostics and content
// loading, never on the hot path.
func (r *AccessorRegistry) TypeOf(a Accessor) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for t, id := range r.ids {
		if id == a {
			return t, true
		}
	}
	return nil, false
}

// Name returns the registered short name of a, or "" if unknown.
func (r *AccessorRegistry) Name(a Accessor) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(a.id) >= len(r.kinds) {
		return ""
	}
	return r.kinds[a.id].name
}

// ByName resolves a registered short name.
func (r *AccessorRegistry) ByName(name string) (Accessor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	return a, ok
}

// Variant returns the versioning variant of a.
func (r *AccessorRegistry) Variant(a Accessor) Variant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.kinds[a.id].variant
}

// New returns a fresh default instance of the kind behind a.
func (r *AccessorRegistry) New(a Accessor) Data {
	r.mu.RLock()
	t := r.kinds[a.id].typ
	r.mu.RUnlock()
	return reflect.New(t.Elem()).Interface().(Data)
}

// Len returns the number of issued accessors.
func (r *AccessorRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.kinds)
}

func (r *AccessorRegistry) known(a Accessor) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int(a.id) < len(r.kinds)
}
