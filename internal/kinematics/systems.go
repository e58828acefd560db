package kinematics

import (
	"github.com/Lynx32/forge/internal/engine"
	"github.com/Lynx32/forge/internal/entity"
	"github.com/Lynx32/forge/internal/fixed"
)

// MovementSystem adds velocity to position once per tick
type MovementSystem struct {
	kinds *Kinds
}

func NewMovementSystem(k *Kinds) *MovementSystem { return &MovementSystem{kinds: k} }

func (s *MovementSystem) Name() string { return "movement" }

func (s *MovementSystem) Accessors() []entity.Accessor {
	return []entity.Accessor{s.kinds.Position, s.kinds.Velocity}
}

func (s *MovementSystem) ExecuteEntity(e *entity.RuntimeEntity) error {
	vel, err := entity.As[*Velocity](e.Current(s.kinds.Velocity))
	if err != nil {
		return err
	}
	if vel.X.IsZero() && vel.Y.IsZero() {
		return nil
	}
	pos, err := entity.As[*Position](e.Modify(s.kinds.Position))
	if err != nil {
		return err
	}
	pos.X = pos.X.Add(vel.X)
	pos.Y = pos.Y.Add(vel.Y)
	return nil
}

// ClockSystem advances the global clock. It does nothing until a Clock has
// been added to the global entity.
type ClockSystem struct {
	kinds *Kinds
	step  fixed.Real
}

// NewClockSystem creates a clock advancing 1/tickRate seconds per tick
func NewClockSystem(k *Kinds, tickRate int) *ClockSystem {
	if tickRate <= 0 {
		tickRate = 1
	}
	return &ClockSystem{kinds: k, step: fixed.One.Div(fixed.FromInt(int64(tickRate)))}
}

func (s *ClockSystem) Name() string { return "clock" }

func (s *ClockSystem) Execute(w *engine.World) error {
	g := w.Global()
	if !g.Contains(s.kinds.Clock) {
		return nil
	}
	c, err := entity.As[*Clock](g.Modify(s.kinds.Clock))
	if err != nil {
		return err
	}
	c.Ticks++
	c.Elapsed = c.Elapsed.Add(s.step)
	return nil
}

// Systems returns the server's system list in run order. Engines that must
// agree on hashes have to be built with the same list.
func Systems(k *Kinds, tickRate int) []engine.System {
	return []engine.System{NewMovementSystem(k), NewClockSystem(k, tickRate)}
}
