// Package level holds engine-independent simulation state: snapshots of
// entities, reusable templates grouped under an id generator, and the JSON
// codec used to save and load both.
package level

import (
	"errors"
	"fmt"

	"github.com/Lynx32/forge/internal/entity"
)

// GlobalEntityID is reserved for the snapshot's singleton data entity
const GlobalEntityID entity.ID = 0

var ErrDuplicateEntity = errors.New("level: duplicate entity id")

// IDGenerator hands out increasing ids. The zero value starts at 0.
type IDGenerator struct {
	next int64
}

func (g *IDGenerator) Next() int64 {
	id := g.next
	g.next++
	return id
}

// Consume marks id as used so Next never returns it or anything below it.
func (g *IDGenerator) Consume(id int64) {
	if id >= g.next {
		g.next = id + 1
	}
}

// Peek returns the id the next call to Next will produce
func (g *IDGenerator) Peek() int64 { return g.next }

// Snapshot is a standalone copy of simulation state
type Snapshot struct {
	// Tick is the number of the last completed tick
	Tick int64

	// Global carries world-wide data shared by every system
	Global    *entity.ContentEntity
	Entities  []*entity.ContentEntity
	EntityIDs IDGenerator
}

func NewSnapshot() *Snapshot {
	s := &Snapshot{Global: entity.NewContentEntity(GlobalEntityID, "global")}
	s.EntityIDs.Consume(int64(GlobalEntityID))
	return s
}

// CreateEntity appends an empty entity with a fresh id
func (s *Snapshot) CreateEntity(name string) *entity.ContentEntity {
	e := entity.NewContentEntity(entity.ID(s.EntityIDs.Next()), name)
	s.Entities = append(s.Entities, e)
	return e
}

// AddEntity appends e, keeping its id
func (s *Snapshot) AddEntity(e *entity.ContentEntity) error {
	if e.ID() == GlobalEntityID || s.Entity(e.ID()) != nil {
		return fmt.Errorf("%w: %d", ErrDuplicateEntity, e.ID())
	}
	s.Entities = append(s.Entities, e)
	s.EntityIDs.Consume(int64(e.ID()))
	return nil
}

// Entity returns the entity with the given id, or nil
func (s *Snapshot) Entity(id entity.ID) *entity.ContentEntity {
	if id == GlobalEntityID {
		return s.Global
	}
	for _, e := range s.Entities {
		if e.ID() == id {
			return e
		}
	}
	return nil
}

// Clone deep-copies the snapshot
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Tick:      s.Tick,
		Global:    s.Global.Clone(),
		Entities:  make([]*entity.ContentEntity, len(s.Entities)),
		EntityIDs: s.EntityIDs,
	}
	for i, e := range s.Entities {
		c.Entities[i] = e.Clone()
	}
	return c
}
