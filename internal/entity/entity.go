package entity

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyAdded     = errors.New("data already added")
	ErrNoSuchData       = errors.New("no such data")
	ErrContentEntity    = errors.New("entity: operation not supported on content entity")
	ErrIdentityMismatch = errors.New("entity: restore source has a different id")
	ErrDestroyed        = errors.New("entity: entity destroyed")
	ErrInvalidAccessor  = errors.New("entity: invalid accessor")
)

// ID is a process-unique, monotonically assigned entity identifier
type ID int64

// DataError reports a usage error against one kind on one entity
type DataError struct {
	EntityID ID
	Kind     Accessor
	Err      error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("entity %d: %s: %v", e.EntityID, e.Kind.Name(), e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// Entity is implemented by *ContentEntity and *RuntimeEntity.
type Entity interface {
	ID() ID
	Name() string

	// AddData allocates default current and previous instances.
	AddData(acc Accessor) (Data, error)
	// Modify returns the current instance for writing and flags it.
	Modify(acc Accessor) (Data, error)
	// RemoveData drops both instances in one step.
	RemoveData(acc Accessor) error

	Current(acc Accessor) (Data, error)
	Previous(acc Accessor) (Data, error)
	Contains(acc Accessor) bool

	WasAdded(acc Accessor) bool
	WasModified(acc Accessor) bool
	WasRemoved(acc Accessor) bool

	// SelectCurrentData lists current instances accepted by filter (all
	// when filter is nil) in store order.
	SelectCurrentData(filter func(Accessor, Data) bool) []Data
	Accessors() []Accessor
	HasModification() bool

	// Notifier is nil for entities that do not emit events.
	Notifier() *EventNotifier
	Destroy() error
	// Restore replaces this entity's data with a deep copy of src's.
	Restore(src Entity) error

	String() string
}

func dataErr(id ID, acc Accessor, err error) error {
	return &DataError{EntityID: id, Kind: acc, Err: err}
}

func lookup(id ID, s *store, acc Accessor) (*slot, error) {
	if !acc.Valid() {
		return nil, ErrInvalidAccessor
	}
	sl, ok := s.get(acc)
	if !ok {
		return nil, dataErr(id, acc, ErrNoSuchData)
	}
	return sl, nil
}

func describe(kind string, id ID, name string, s *store) string {
	if name == "" {
		return fmt.Sprintf("%s(%d, %d kinds)", kind, id, s.len())
	}
	return fmt.Sprintf("%s(%d %q, %d kinds)", kind, id, name, s.len())
}
