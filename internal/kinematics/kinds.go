// Package kinematics provides a small set of data kinds, systems and inputs
// for moving points around a fixed-point plane.
package kinematics

import (
	"fmt"

	"github.com/Lynx32/forge/internal/entity"
	"github.com/Lynx32/forge/internal/fixed"
)

// Position of an entity in world units
type Position struct {
	X fixed.Real `json:"x"`
	Y fixed.Real `json:"y"`
}

func (p *Position) Clone() entity.Data { cp := *p; return &cp }

// Velocity in world units per tick
type Velocity struct {
	X fixed.Real `json:"x"`
	Y fixed.Real `json:"y"`
}

func (v *Velocity) Clone() entity.Data { cp := *v; return &cp }

// Clock lives on the global entity and counts simulated time
type Clock struct {
	Ticks   int64      `json:"ticks"`
	Elapsed fixed.Real `json:"elapsed"` // seconds
}

func (c *Clock) Clone() entity.Data { cp := *c; return &cp }

// Kinds holds the accessors returned by Register
type Kinds struct {
	Position entity.Accessor
	Velocity entity.Accessor
	Clock    entity.Accessor
}

// Register adds the kinematics kinds to reg in a fixed order
func Register(reg *entity.Registry) (*Kinds, error) {
	var k Kinds
	var err error
	if k.Position, err = reg.Register("position", func() entity.Data { return &Position{} }); err != nil {
		return nil, fmt.Errorf("kinematics: %w", err)
	}
	if k.Velocity, err = reg.Register("velocity", func() entity.Data { return &Velocity{} }); err != nil {
		return nil, fmt.Errorf("kinematics: %w", err)
	}
	if k.Clock, err = reg.Register("clock", func() entity.Data { return &Clock{} }); err != nil {
		return nil, fmt.Errorf("kinematics: %w", err)
	}
	return &k, nil
}
