package engine

import (
	"errors"
	"fmt"

	"github.com/Lynx32/forge/internal/entity"
	"github.com/Lynx32/forge/internal/level"
)

var (
	ErrNoSuchEntity   = errors.New("engine: no such entity")
	ErrNoSuchTemplate = errors.New("engine: no such template")
	ErrGlobalEntity   = errors.New("engine: the global entity cannot be destroyed")
)

// EntityCreated is submitted when an entity is created during a tick
type EntityCreated struct {
	Entity entity.ID
	Tick   int64
}

// EntityDestroyed is submitted when a destroyed entity is removed at the end of a tick
type EntityDestroyed struct {
	Entity entity.ID
	Tick   int64
}

// World is the mutable view handed to inputs and world systems during one
// tick. It is only valid until the tick completes.
type World struct {
	engine *Engine
	tick   int64
}

// Tick returns the number of the tick being computed
func (w *World) Tick() int64 { return w.tick }

func (w *World) Global() *entity.RuntimeEntity { return w.engine.global }

func (w *World) Entity(id entity.ID) (*entity.RuntimeEntity, error) {
	if id == level.GlobalEntityID {
		return w.engine.global, nil
	}
	e, ok := w.engine.byID[id]
	if !ok || e.Destroyed() {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchEntity, id)
	}
	return e, nil
}

// Entities returns the live entities in creation order
func (w *World) Entities() []*entity.RuntimeEntity {
	out := make([]*entity.RuntimeEntity, 0, len(w.engine.entities))
	for _, e := range w.engine.entities {
		if !e.Destroyed() {
			out = append(out, e)
		}
	}
	return out
}

// CreateEntity adds an empty entity with a fresh id
func (w *World) CreateEntity(name string) *entity.RuntimeEntity {
	id := entity.ID(w.engine.entityIDs.Next())
	e := entity.NewRuntimeEntity(id, name, w.engine.staging)
	w.engine.addEntity(e)
	w.engine.staging.Submit(EntityCreated{Entity: id, Tick: w.tick})
	return e
}

// Instantiate creates an entity from a template. Its data reports WasAdded
// for this tick.
func (w *World) Instantiate(templateID int64) (*entity.RuntimeEntity, error) {
	tpl := w.engine.templates.Template(templateID)
	if tpl == nil {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchTemplate, templateID)
	}
	id := entity.ID(w.engine.entityIDs.Next())
	e, err := tpl.Instantiate(id, w.engine.staging)
	if err != nil {
		return nil, err
	}
	w.engine.addEntity(e)
	w.engine.staging.Submit(EntityCreated{Entity: id, Tick: w.tick})
	return e, nil
}

// DestroyEntity marks an entity for removal at the end of the tick. Its data
// stays readable until then.
func (w *World) DestroyEntity(id entity.ID) error {
	if id == level.GlobalEntityID {
		return ErrGlobalEntity
	}
	e, ok := w.engine.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchEntity, id)
	}
	return e.Destroy()
}

// Notifier returns the channel events are buffered on until DispatchEvents
func (w *World) Notifier() *entity.EventNotifier { return w.engine.staging }
