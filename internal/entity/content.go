package entity

// ContentEntity is a non-executing entity living in a snapshot or template.
// Data can be added and removed while authoring a level, but it has no tick,
// so Modify and Destroy fail and the Was* queries always report false.
type ContentEntity struct {
	id       ID
	name     string
	data     *store
	modified bool
}

func NewContentEntity(id ID, name string) *ContentEntity {
	return &ContentEntity{id: id, name: name, data: newStore()}
}

// ContentCopy deep-copies any entity into a new content entity
func ContentCopy(src Entity) (*ContentEntity, error) {
	s, err := storeFrom(src)
	if err != nil {
		return nil, err
	}
	return &ContentEntity{id: src.ID(), name: src.Name(), data: s, modified: src.HasModification()}, nil
}

func (e *ContentEntity) ID() ID       { return e.id }
func (e *ContentEntity) Name() string { return e.name }

func (e *ContentEntity) AddData(acc Accessor) (Data, error) {
	if !acc.Valid() {
		return nil, ErrInvalidAccessor
	}
	if e.data.has(acc) {
		return nil, dataErr(e.id, acc, ErrAlreadyAdded)
	}
	cur := acc.New()
	e.data.add(acc, cur, acc.New())
	return cur, nil
}

// SetData installs current and previous instances directly. Used by loaders.
func (e *ContentEntity) SetData(acc Accessor, current, previous Data) error {
	if !acc.Valid() {
		return ErrInvalidAccessor
	}
	if e.data.has(acc) {
		return dataErr(e.id, acc, ErrAlreadyAdded)
	}
	e.data.add(acc, current, previous)
	return nil
}

func (e *ContentEntity) Modify(acc Accessor) (Data, error) {
	return nil, dataErr(e.id, acc, ErrContentEntity)
}

func (e *ContentEntity) RemoveData(acc Accessor) error {
	if _, err := lookup(e.id, e.data, acc); err != nil {
		return err
	}
	e.data.remove(acc)
	return nil
}

func (e *ContentEntity) Current(acc Accessor) (Data, error) {
	sl, err := lookup(e.id, e.data, acc)
	if err != nil {
		return nil, err
	}
	return sl.current, nil
}

func (e *ContentEntity) Previous(acc Accessor) (Data, error) {
	sl, err := lookup(e.id, e.data, acc)
	if err != nil {
		return nil, err
	}
	return sl.previous, nil
}

func (e *ContentEntity) Contains(acc Accessor) bool { return acc.Valid() && e.data.has(acc) }

func (e *ContentEntity) WasAdded(Accessor) bool    { return false }
func (e *ContentEntity) WasModified(Accessor) bool { return false }
func (e *ContentEntity) WasRemoved(Accessor) bool  { return false }

func (e *ContentEntity) SelectCurrentData(filter func(Accessor, Data) bool) []Data {
	return e.data.selectCurrent(filter)
}

func (e *ContentEntity) Accessors() []Accessor    { return e.data.accessors() }
func (e *ContentEntity) HasModification() bool    { return e.modified }
func (e *ContentEntity) Notifier() *EventNotifier { return nil }

// MarkModified sets the modified flag carried by saved snapshots
func (e *ContentEntity) MarkModified() { e.modified = true }

func (e *ContentEntity) Destroy() error { return ErrContentEntity }

// Restore copies src's data and ORs its modified flag into ours.
func (e *ContentEntity) Restore(src Entity) error {
	if src.ID() != e.id {
		return ErrIdentityMismatch
	}
	s, err := storeFrom(src)
	if err != nil {
		return err
	}
	e.data = s
	e.modified = e.modified || src.HasModification()
	return nil
}

// Clone deep-copies the entity, keeping its id
func (e *ContentEntity) Clone() *ContentEntity {
	return &ContentEntity{id: e.id, name: e.name, data: e.data.clone(), modified: e.modified}
}

// WithID deep-copies the entity under a new id and name
func (e *ContentEntity) WithID(id ID, name string) *ContentEntity {
	c := e.Clone()
	c.id = id
	c.name = name
	return c
}

func (e *ContentEntity) String() string { return describe("content", e.id, e.name, e.data) }
