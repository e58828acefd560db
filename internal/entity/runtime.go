package entity

// RuntimeEntity is a live, engine-owned entity with the full tick lifecycle.
//
// An entity is driven by at most one goroutine per tick. The engine calls
// Commit before the next tick's mutations so that previous always holds the
// last committed state.
type RuntimeEntity struct {
	id   ID
	name string
	data *store

	added    map[int]struct{}
	modified map[int]struct{}
	removed  map[int]struct{}
	touched  bool

	notifier  *EventNotifier
	destroyed bool
}

// NewRuntimeEntity creates an empty entity reporting to notifier, which may be nil.
func NewRuntimeEntity(id ID, name string, notifier *EventNotifier) *RuntimeEntity {
	return &RuntimeEntity{
		id:       id,
		name:     name,
		data:     newStore(),
		added:    make(map[int]struct{}),
		modified: make(map[int]struct{}),
		removed:  make(map[int]struct{}),
		notifier: notifier,
	}
}

// Spawn creates a runtime entity holding a deep copy of src's data. If src
// carries a modification, every kind is rotated on the first Commit so the
// spawned entity commits exactly as the one src was copied from would have.
func Spawn(src Entity, notifier *EventNotifier) (*RuntimeEntity, error) {
	e := NewRuntimeEntity(src.ID(), src.Name(), notifier)
	if err := e.adopt(src); err != nil {
		return nil, err
	}
	return e, nil
}

// adopt replaces data with a copy of src's and resets the tick flags. No
// events are submitted.
func (e *RuntimeEntity) adopt(src Entity) error {
	s, err := storeFrom(src)
	if err != nil {
		return err
	}
	e.data = s
	e.clearTick()
	if src.HasModification() {
		// Untouched kinds already hold current == previous, so rotating
		// all of them matches rotating only the ones src modified.
		for _, acc := range s.accessors() {
			e.modified[acc.ID()] = struct{}{}
		}
		e.touched = true
	}
	return nil
}

func (e *RuntimeEntity) ID() ID       { return e.id }
func (e *RuntimeEntity) Name() string { return e.name }

func (e *RuntimeEntity) AddData(acc Accessor) (Data, error) {
	if e.destroyed {
		return nil, dataErr(e.id, acc, ErrDestroyed)
	}
	if !acc.Valid() {
		return nil, ErrInvalidAccessor
	}
	if e.data.has(acc) {
		return nil, dataErr(e.id, acc, ErrAlreadyAdded)
	}

	cur := acc.New()
	e.data.add(acc, cur, acc.New())
	delete(e.removed, acc.ID())
	e.added[acc.ID()] = struct{}{}
	e.touched = true
	e.submit(DataAdded{Entity: e.id, Kind: acc})
	return cur, nil
}

// AddCopy adds acc with copies of value as both current and previous
func (e *RuntimeEntity) AddCopy(acc Accessor, value Data) (Data, error) {
	if _, err := e.AddData(acc); err != nil {
		return nil, err
	}
	sl, _ := e.data.get(acc)
	sl.current = value.Clone()
	sl.previous = value.Clone()
	return sl.current, nil
}

func (e *RuntimeEntity) Modify(acc Accessor) (Data, error) {
	if e.destroyed {
		return nil, dataErr(e.id, acc, ErrDestroyed)
	}
	sl, err := lookup(e.id, e.data, acc)
	if err != nil {
		return nil, err
	}
	if _, seen := e.modified[acc.ID()]; !seen {
		e.modified[acc.ID()] = struct{}{}
		e.submit(DataModified{Entity: e.id, Kind: acc})
	}
	e.touched = true
	return sl.current, nil
}

func (e *RuntimeEntity) RemoveData(acc Accessor) error {
	if e.destroyed {
		return dataErr(e.id, acc, ErrDestroyed)
	}
	if _, err := lookup(e.id, e.data, acc); err != nil {
		return err
	}
	e.data.remove(acc)
	delete(e.added, acc.ID())
	delete(e.modified, acc.ID())
	e.removed[acc.ID()] = struct{}{}
	e.touched = true
	e.submit(DataRemoved{Entity: e.id, Kind: acc})
	return nil
}

func (e *RuntimeEntity) Current(acc Accessor) (Data, error) {
	sl, err := lookup(e.id, e.data, acc)
	if err != nil {
		return nil, err
	}
	return sl.current, nil
}

func (e *RuntimeEntity) Previous(acc Accessor) (Data, error) {
	sl, err := lookup(e.id, e.data, acc)
	if err != nil {
		return nil, err
	}
	return sl.previous, nil
}

func (e *RuntimeEntity) Contains(acc Accessor) bool { return acc.Valid() && e.data.has(acc) }

func (e *RuntimeEntity) WasAdded(acc Accessor) bool {
	_, ok := e.added[acc.ID()]
	return ok
}

func (e *RuntimeEntity) WasModified(acc Accessor) bool {
	_, ok := e.modified[acc.ID()]
	return ok
}

func (e *RuntimeEntity) WasRemoved(acc Accessor) bool {
	_, ok := e.removed[acc.ID()]
	return ok
}

func (e *RuntimeEntity) SelectCurrentData(filter func(Accessor, Data) bool) []Data {
	return e.data.selectCurrent(filter)
}

func (e *RuntimeEntity) Accessors() []Accessor { return e.data.accessors() }

// HasModification reports whether anything changed since the last Commit
func (e *RuntimeEntity) HasModification() bool { return e.touched }

func (e *RuntimeEntity) Notifier() *EventNotifier { return e.notifier }

// Destroy marks the entity dead. The engine removes it at the end of the tick.
func (e *RuntimeEntity) Destroy() error {
	if e.destroyed {
		return ErrDestroyed
	}
	e.destroyed = true
	return nil
}

func (e *RuntimeEntity) Destroyed() bool { return e.destroyed }

// Restore replaces all data with a deep copy of src's and takes its
// modified flag. Tick flags are cleared.
func (e *RuntimeEntity) Restore(src Entity) error {
	if src.ID() != e.id {
		return ErrIdentityMismatch
	}
	return e.adopt(src)
}

// Commit copies current into previous for every kind touched this tick and
// clears the tick flags. Only the engine calls this.
func (e *RuntimeEntity) Commit() {
	if !e.touched {
		return
	}
	for id := range e.added {
		e.commitKind(id)
	}
	for id := range e.modified {
		e.commitKind(id)
	}
	e.clearTick()
}

func (e *RuntimeEntity) commitKind(id int) {
	pos, ok := e.data.index[id]
	if !ok {
		return
	}
	sl := &e.data.slots[pos]
	sl.previous = sl.current.Clone()
}

func (e *RuntimeEntity) clearTick() {
	clear(e.added)
	clear(e.modified)
	clear(e.removed)
	e.touched = false
}

func (e *RuntimeEntity) submit(event any) {
	if e.notifier != nil {
		e.notifier.Submit(event)
	}
}

func (e *RuntimeEntity) String() string { return describe("runtime", e.id, e.name, e.data) }
