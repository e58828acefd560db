package engine

import (
	"time"

	"github.com/Lynx32/forge/internal/entity"
)

// DataView is an immutable copy of one kind on one entity
type DataView struct {
	Kind     string      `json:"kind"`
	Current  entity.Data `json:"current"`
	Previous entity.Data `json:"previous"`
}

// EntityView is an immutable copy of one entity
type EntityView struct {
	ID   entity.ID  `json:"id"`
	Name string     `json:"name,omitempty"`
	Data []DataView `json:"data"`
}

// View is a complete, immutable state published by SynchronizeState.
// Readers may hold it indefinitely; the engine never mutates it.
type View struct {
	Sequence  uint64    `json:"sequence"`  // Monotonic publish counter
	Timestamp time.Time `json:"timestamp"` // When the tick finished
	Tick      int64     `json:"tick"`
	Hash      uint64    `json:"hash"`

	Global   EntityView   `json:"global"`
	Entities []EntityView `json:"entities"`
}

// EntityCount returns the number of non-global entities
func (v *View) EntityCount() int { return len(v.Entities) }

// Entity returns the view of id, or nil
func (v *View) Entity(id entity.ID) *EntityView {
	if v.Global.ID == id {
		return &v.Global
	}
	for i := range v.Entities {
		if v.Entities[i].ID == id {
			return &v.Entities[i]
		}
	}
	return nil
}

// DataOf returns the view of the named kind, or nil
func (ev *EntityView) DataOf(kind string) *DataView {
	for i := range ev.Data {
		if ev.Data[i].Kind == kind {
			return &ev.Data[i]
		}
	}
	return nil
}

func viewOf(e entity.Entity) EntityView {
	accs := e.Accessors()
	ev := EntityView{ID: e.ID(), Name: e.Name(), Data: make([]DataView, 0, len(accs))}
	for _, acc := range accs {
		cur, _ := e.Current(acc)
		prev, _ := e.Previous(acc)
		ev.Data = append(ev.Data, DataView{Kind: acc.Name(), Current: cur.Clone(), Previous: prev.Clone()})
	}
	return ev
}

// buildView copies the engine state. Caller holds dataMu.
func (e *Engine) buildView(hash uint64) *View {
	v := &View{
		Sequence:  e.viewSeq.Add(1),
		Timestamp: time.Now(),
		Tick:      e.tick,
		Hash:      hash,
		Global:    viewOf(e.global),
		Entities:  make([]EntityView, 0, len(e.entities)),
	}
	for _, ent := range e.entities {
		v.Entities = append(v.Entities, viewOf(ent))
	}
	return v
}
