package level

import (
	"fmt"

	"github.com/Lynx32/forge/internal/entity"
)

// DuplicateTemplateError names the template id supplied by two merged groups
type DuplicateTemplateError struct {
	ID int64
}

func (e *DuplicateTemplateError) Error() string {
	return fmt.Sprintf("level: duplicate template id %d", e.ID)
}

// Template is a prototype entity. Instantiating it copies its default data
// into a new runtime entity.
type Template struct {
	defaults *entity.ContentEntity
}

func newTemplate(id int64, name string) *Template {
	return &Template{defaults: entity.NewContentEntity(entity.ID(id), name)}
}

func (t *Template) ID() int64    { return int64(t.defaults.ID()) }
func (t *Template) Name() string { return t.defaults.Name() }

// AddDefaultData adds a default instance of acc and returns it for editing
func (t *Template) AddDefaultData(acc entity.Accessor) (entity.Data, error) {
	return t.defaults.AddData(acc)
}

func (t *Template) RemoveDefaultData(acc entity.Accessor) error {
	return t.defaults.RemoveData(acc)
}

func (t *Template) Data(acc entity.Accessor) (entity.Data, error) {
	return t.defaults.Current(acc)
}

func (t *Template) Accessors() []entity.Accessor { return t.defaults.Accessors() }

func (t *Template) Clone() *Template {
	return &Template{defaults: t.defaults.Clone()}
}

// Instantiate creates a live entity with the given id carrying copies of
// the template's defaults. Every kind reports WasAdded for the current tick.
func (t *Template) Instantiate(id entity.ID, notifier *entity.EventNotifier) (*entity.RuntimeEntity, error) {
	e := entity.NewRuntimeEntity(id, t.Name(), notifier)
	for _, acc := range t.defaults.Accessors() {
		def, err := t.defaults.Current(acc)
		if err != nil {
			return nil, err
		}
		if _, err := e.AddCopy(acc, def); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Content returns a content entity with the given id carrying copies of the
// template's defaults
func (t *Template) Content(id entity.ID) *entity.ContentEntity {
	return t.defaults.WithID(id, t.Name())
}

// TemplateGroup owns a set of templates with unique ids
type TemplateGroup struct {
	Templates   []*Template
	TemplateIDs IDGenerator
}

// NewTemplateGroup returns an empty group whose first id is 0
func NewTemplateGroup() *TemplateGroup {
	return &TemplateGroup{}
}

// NewTemplateGroupFrom returns an empty group whose first id is startingID
func NewTemplateGroupFrom(startingID int64) *TemplateGroup {
	g := &TemplateGroup{}
	g.TemplateIDs.Consume(startingID - 1)
	return g
}

func (g *TemplateGroup) CreateTemplate(name string) *Template {
	t := newTemplate(g.TemplateIDs.Next(), name)
	g.Templates = append(g.Templates, t)
	return t
}

// Template returns the template with the given id, or nil
func (g *TemplateGroup) Template(id int64) *Template {
	for _, t := range g.Templates {
		if t.ID() == id {
			return t
		}
	}
	return nil
}

// MergeTemplateGroups unions the templates of groups into a new group. The
// first id supplied twice fails the merge with *DuplicateTemplateError and
// no partial result is returned. Inputs are not modified.
func MergeTemplateGroups(groups ...*TemplateGroup) (*TemplateGroup, error) {
	result := NewTemplateGroup()
	seen := make(map[int64]struct{})

	for _, g := range groups {
		for _, t := range g.Templates {
			id := t.ID()
			if _, dup := seen[id]; dup {
				return nil, &DuplicateTemplateError{ID: id}
			}
			seen[id] = struct{}{}

			result.Templates = append(result.Templates, t.Clone())
			result.TemplateIDs.Consume(id)
		}
		// Keep any reservation a group made beyond its highest template
		if next := g.TemplateIDs.Peek(); next > 0 {
			result.TemplateIDs.Consume(next - 1)
		}
	}
	return result, nil
}

// MergeSerializedTemplateGroups loads, merges and re-saves groups
func MergeSerializedTemplateGroups(groups [][]byte, reg *entity.Registry) ([]byte, error) {
	loaded := make([]*TemplateGroup, 0, len(groups))
	for _, data := range groups {
		g, err := LoadTemplateGroup(data, reg)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, g)
	}

	merged, err := MergeTemplateGroups(loaded...)
	if err != nil {
		return nil, err
	}
	return SaveTemplateGroup(merged)
}
