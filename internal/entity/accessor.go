// Package entity holds the double-buffered entity model: a registry of data
// kinds, the sparse per-entity store, content and runtime entities, and the
// buffered event notifier they report to.
package entity

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateKind is returned when a kind name is registered twice.
var ErrDuplicateKind = errors.New("entity: kind already registered")

// Data is one unit of component state attached to an entity.
// Clone must return a deep copy that shares nothing mutable with the receiver.
type Data interface {
	Clone() Data
}

// Factory builds the default instance of a kind
type Factory func() Data

type descriptor struct {
	id      int
	name    string
	factory Factory
}

// Accessor identifies a registered kind. The zero Accessor is invalid.
// Accessors are comparable and may be used as map keys.
type Accessor struct {
	d *descriptor
}

// ID is the small integer assigned at registration, stable across
// processes that register kinds in the same order.
func (a Accessor) ID() int {
	if a.d == nil {
		return -1
	}
	return a.d.id
}

func (a Accessor) Name() string {
	if a.d == nil {
		return "<invalid>"
	}
	return a.d.name
}

// New returns a fresh default instance
func (a Accessor) New() Data { return a.d.factory() }

func (a Accessor) Valid() bool { return a.d != nil }

func (a Accessor) String() string { return fmt.Sprintf("%s#%d", a.Name(), a.ID()) }

// Registry assigns ids to kinds in registration order
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Accessor
	kinds  []Accessor
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Accessor)}
}

// DefaultRegistry is the process-wide registry used by the server binaries.
var DefaultRegistry = NewRegistry()

// Register adds a kind and returns its accessor. Ids are 0, 1, 2... in call order.
func (r *Registry) Register(name string, factory Factory) (Accessor, error) {
	if factory == nil {
		return Accessor{}, fmt.Errorf("entity: nil factory for kind %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; ok {
		return Accessor{}, fmt.Errorf("%w: %q", ErrDuplicateKind, name)
	}
	acc := Accessor{&descriptor{id: len(r.kinds), name: name, factory: factory}}
	r.byName[name] = acc
	r.kinds = append(r.kinds, acc)
	return acc, nil
}

// MustRegister is Register for package initialisation; it panics on error.
func (r *Registry) MustRegister(name string, factory Factory) Accessor {
	acc, err := r.Register(name, factory)
	if err != nil {
		panic(err)
	}
	return acc
}

func (r *Registry) Lookup(name string) (Accessor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byName[name]
	return acc, ok
}

func (r *Registry) ByID(id int) (Accessor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || id >= len(r.kinds) {
		return Accessor{}, false
	}
	return r.kinds[id], true
}

// Kinds returns every registered accessor ordered by id
func (r *Registry) Kinds() []Accessor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Accessor, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// As converts d to the concrete kind T, reporting a mismatch as an error
func As[T Data](d Data, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	t, ok := d.(T)
	if !ok {
		return zero, fmt.Errorf("entity: data is %T, not %T", d, zero)
	}
	return t, nil
}
