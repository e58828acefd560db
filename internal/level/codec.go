package level

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Lynx32/forge/internal/entity"
)

var (
	ErrUnknownKind  = errors.New("level: unknown data kind")
	ErrMissingValue = errors.New("level: data entry has no current value")
)

// DeserializationError wraps any load failure together with the payload
// that caused it.
type DeserializationError struct {
	Payload string
	Err     error
}

func (e *DeserializationError) Error() string {
	payload := e.Payload
	if len(payload) > 256 {
		payload = payload[:256] + "..."
	}
	return fmt.Sprintf("level: deserialization failed: %v (payload=%s)", e.Err, payload)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// DataDocument is one kind attached to an entity, in store order
type DataDocument struct {
	Kind     string          `json:"kind" jsonschema:"description=Registered kind name"`
	Current  json.RawMessage `json:"current"`
	Previous json.RawMessage `json:"previous,omitempty"`
}

// EntityDocument is the saved form of one entity
type EntityDocument struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name,omitempty"`
	Modified bool           `json:"modified,omitempty"`
	Data     []DataDocument `json:"data"`
}

// SnapshotDocument is the saved form of a Snapshot
type SnapshotDocument struct {
	Tick         int64            `json:"tick" jsonschema:"minimum=0"`
	NextEntityID int64            `json:"nextEntityId" jsonschema:"minimum=1"`
	Global       EntityDocument   `json:"global"`
	Entities     []EntityDocument `json:"entities"`
}

// TemplateDocument is the saved form of a Template; only current values are kept
type TemplateDocument struct {
	ID   int64          `json:"id"`
	Name string         `json:"name,omitempty"`
	Data []DataDocument `json:"data"`
}

// TemplateGroupDocument is the saved form of a TemplateGroup
type TemplateGroupDocument struct {
	NextTemplateID int64              `json:"nextTemplateId" jsonschema:"minimum=0"`
	Templates      []TemplateDocument `json:"templates"`
}

// --- Save ---

func SaveSnapshot(s *Snapshot) ([]byte, error) {
	doc := SnapshotDocument{Tick: s.Tick, NextEntityID: s.EntityIDs.Peek(), Entities: make([]EntityDocument, 0, len(s.Entities))}

	var err error
	if doc.Global, err = encodeEntity(s.Global, true); err != nil {
		return nil, err
	}
	for _, e := range s.Entities {
		ed, err := encodeEntity(e, true)
		if err != nil {
			return nil, err
		}
		doc.Entities = append(doc.Entities, ed)
	}
	return json.Marshal(doc)
}

func SaveTemplateGroup(g *TemplateGroup) ([]byte, error) {
	doc := TemplateGroupDocument{NextTemplateID: g.TemplateIDs.Peek(), Templates: make([]TemplateDocument, 0, len(g.Templates))}
	for _, t := range g.Templates {
		ed, err := encodeEntity(t.defaults, false)
		if err != nil {
			return nil, err
		}
		doc.Templates = append(doc.Templates, TemplateDocument{ID: ed.ID, Name: ed.Name, Data: ed.Data})
	}
	return json.Marshal(doc)
}

func encodeEntity(e entity.Entity, withPrevious bool) (EntityDocument, error) {
	doc := EntityDocument{ID: int64(e.ID()), Name: e.Name(), Modified: e.HasModification(), Data: []DataDocument{}}
	for _, acc := range e.Accessors() {
		cur, err := e.Current(acc)
		if err != nil {
			return doc, err
		}
		dd := DataDocument{Kind: acc.Name()}
		if dd.Current, err = json.Marshal(cur); err != nil {
			return doc, fmt.Errorf("encode %s on entity %d: %w", acc.Name(), e.ID(), err)
		}
		if withPrevious {
			prev, err := e.Previous(acc)
			if err != nil {
				return doc, err
			}
			if dd.Previous, err = json.Marshal(prev); err != nil {
				return doc, fmt.Errorf("encode %s on entity %d: %w", acc.Name(), e.ID(), err)
			}
		}
		doc.Data = append(doc.Data, dd)
	}
	return doc, nil
}

// --- Load ---

// LoadSnapshot restores a snapshot saved by SaveSnapshot. Kinds are
// resolved by name through reg.
func LoadSnapshot(data []byte, reg *entity.Registry) (*Snapshot, error) {
	s, err := decodeSnapshot(data, reg)
	if err != nil {
		return nil, &DeserializationError{Payload: string(data), Err: err}
	}
	return s, nil
}

func decodeSnapshot(data []byte, reg *entity.Registry) (*Snapshot, error) {
	var doc SnapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Global.ID != int64(GlobalEntityID) {
		return nil, fmt.Errorf("global entity must have id %d, got %d", GlobalEntityID, doc.Global.ID)
	}

	if doc.Tick < 0 {
		return nil, fmt.Errorf("negative tick %d", doc.Tick)
	}

	s := NewSnapshot()
	s.Tick = doc.Tick
	global, err := decodeEntity(doc.Global, reg)
	if err != nil {
		return nil, err
	}
	s.Global = global

	for _, ed := range doc.Entities {
		e, err := decodeEntity(ed, reg)
		if err != nil {
			return nil, err
		}
		if err := s.AddEntity(e); err != nil {
			return nil, err
		}
	}
	s.EntityIDs.Consume(doc.NextEntityID - 1)
	return s, nil
}

// LoadTemplateGroup restores a group saved by SaveTemplateGroup
func LoadTemplateGroup(data []byte, reg *entity.Registry) (*TemplateGroup, error) {
	g, err := decodeTemplateGroup(data, reg)
	if err != nil {
		return nil, &DeserializationError{Payload: string(data), Err: err}
	}
	return g, nil
}

func decodeTemplateGroup(data []byte, reg *entity.Registry) (*TemplateGroup, error) {
	var doc TemplateGroupDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	g := NewTemplateGroup()
	for _, td := range doc.Templates {
		if g.Template(td.ID) != nil {
			return nil, &DuplicateTemplateError{ID: td.ID}
		}
		defaults, err := decodeEntity(EntityDocument{ID: td.ID, Name: td.Name, Data: td.Data}, reg)
		if err != nil {
			return nil, err
		}
		g.Templates = append(g.Templates, &Template{defaults: defaults})
		g.TemplateIDs.Consume(td.ID)
	}
	g.TemplateIDs.Consume(doc.NextTemplateID - 1)
	return g, nil
}

func decodeEntity(doc EntityDocument, reg *entity.Registry) (*entity.ContentEntity, error) {
	e := entity.NewContentEntity(entity.ID(doc.ID), doc.Name)
	for _, dd := range doc.Data {
		acc, ok := reg.Lookup(dd.Kind)
		if !ok {
			return nil, fmt.Errorf("%w: %q on entity %d", ErrUnknownKind, dd.Kind, doc.ID)
		}
		if len(dd.Current) == 0 {
			return nil, fmt.Errorf("%w: %q on entity %d", ErrMissingValue, dd.Kind, doc.ID)
		}

		cur := acc.New()
		if err := json.Unmarshal(dd.Current, cur); err != nil {
			return nil, fmt.Errorf("decode %s on entity %d: %w", dd.Kind, doc.ID, err)
		}
		// Templates store a single value
		prev := cur.Clone()
		if len(dd.Previous) > 0 {
			prev = acc.New()
			if err := json.Unmarshal(dd.Previous, prev); err != nil {
				return nil, fmt.Errorf("decode previous %s on entity %d: %w", dd.Kind, doc.ID, err)
			}
		}
		if err := e.SetData(acc, cur, prev); err != nil {
			return nil, err
		}
	}
	if doc.Modified {
		e.MarkModified()
	}
	return e, nil
}
