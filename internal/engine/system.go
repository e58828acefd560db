package engine

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Lynx32/forge/internal/entity"
)

// System is simulation logic run once per tick, in registration order.
// Every system implements WorldSystem or EntitySystem.
type System interface {
	Name() string
}

// WorldSystem runs sequentially with full access to the tick context
type WorldSystem interface {
	System
	Execute(w *World) error
}

// EntitySystem runs once for every live entity that has all of Accessors.
// Calls for different entities run concurrently, so ExecuteEntity must only
// touch the entity it is given.
type EntitySystem interface {
	System
	Accessors() []entity.Accessor
	ExecuteEntity(e *entity.RuntimeEntity) error
}

func validateSystems(systems []System) error {
	seen := make(map[string]struct{}, len(systems))
	for _, s := range systems {
		switch s.(type) {
		case WorldSystem, EntitySystem:
		default:
			return fmt.Errorf("engine: system %q implements neither WorldSystem nor EntitySystem", s.Name())
		}
		if _, dup := seen[s.Name()]; dup {
			return fmt.Errorf("engine: duplicate system %q", s.Name())
		}
		seen[s.Name()] = struct{}{}
	}
	return nil
}

// runSystems executes every system against w. Entity systems fan out over a
// bounded worker pool and are joined before the next system starts.
func runSystems(w *World, systems []System, workers int) error {
	for _, s := range systems {
		var err error
		switch sys := s.(type) {
		case WorldSystem:
			err = sys.Execute(w)
		case EntitySystem:
			err = runEntitySystem(w, sys, workers)
		}
		if err != nil {
			return fmt.Errorf("system %s: %w", s.Name(), err)
		}
	}
	return nil
}

func runEntitySystem(w *World, sys EntitySystem, workers int) error {
	required := sys.Accessors()

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}

	for _, e := range w.engine.entities {
		if e.Destroyed() || !hasAll(e, required) {
			continue
		}
		e := e
		// errgroup does not recover, and a panic here would end the process
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("entity %d panicked: %v", e.ID(), r)
				}
			}()
			return sys.ExecuteEntity(e)
		})
	}
	return g.Wait()
}

func hasAll(e *entity.RuntimeEntity, accs []entity.Accessor) bool {
	for _, acc := range accs {
		if !e.Contains(acc) {
			return false
		}
	}
	return true
}
