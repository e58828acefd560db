package kinematics

import (
	"fmt"

	"github.com/Lynx32/forge/internal/engine"
	"github.com/Lynx32/forge/internal/entity"
	"github.com/Lynx32/forge/internal/fixed"
)

// Input kind names
const (
	KindSetPosition = "set_position"
	KindSetVelocity = "set_velocity"
	KindSetHeading  = "set_heading"
	KindSpawn       = "spawn"
	KindDestroy     = "destroy"
	KindStartClock  = "start_clock"
)

// RegisterInputs adds every kinematics input to codec
func RegisterInputs(codec *engine.InputCodec, k *Kinds) error {
	factories := map[string]func() engine.Input{
		KindSetPosition: func() engine.Input { return &SetPosition{kinds: k} },
		KindSetVelocity: func() engine.Input { return &SetVelocity{kinds: k} },
		KindSetHeading:  func() engine.Input { return &SetHeading{kinds: k} },
		KindSpawn:       func() engine.Input { return &Spawn{kinds: k} },
		KindDestroy:     func() engine.Input { return &Destroy{} },
		KindStartClock:  func() engine.Input { return &StartClock{kinds: k} },
	}
	for _, name := range []string{KindSetPosition, KindSetVelocity, KindSetHeading, KindSpawn, KindDestroy, KindStartClock} {
		if err := codec.Register(name, factories[name]); err != nil {
			return err
		}
	}
	return nil
}

// upsert returns the current value of acc for writing, adding it first if needed
func upsert(e *entity.RuntimeEntity, acc entity.Accessor) (entity.Data, error) {
	if e.Contains(acc) {
		return e.Modify(acc)
	}
	return e.AddData(acc)
}

// SetPosition moves an entity, adding a Position if it has none
type SetPosition struct {
	Entity entity.ID  `json:"entity"`
	X      fixed.Real `json:"x"`
	Y      fixed.Real `json:"y"`

	kinds *Kinds
}

func NewSetPosition(k *Kinds, id entity.ID, x, y fixed.Real) *SetPosition {
	return &SetPosition{Entity: id, X: x, Y: y, kinds: k}
}

func (in *SetPosition) Kind() string { return KindSetPosition }

func (in *SetPosition) Apply(w *engine.World) error {
	e, err := w.Entity(in.Entity)
	if err != nil {
		return err
	}
	pos, err := entity.As[*Position](upsert(e, in.kinds.Position))
	if err != nil {
		return err
	}
	pos.X, pos.Y = in.X, in.Y
	return nil
}

// SetVelocity sets an entity's velocity, adding one if it has none
type SetVelocity struct {
	Entity entity.ID  `json:"entity"`
	X      fixed.Real `json:"x"`
	Y      fixed.Real `json:"y"`

	kinds *Kinds
}

func NewSetVelocity(k *Kinds, id entity.ID, x, y fixed.Real) *SetVelocity {
	return &SetVelocity{Entity: id, X: x, Y: y, kinds: k}
}

func (in *SetVelocity) Kind() string { return KindSetVelocity }

func (in *SetVelocity) Apply(w *engine.World) error {
	e, err := w.Entity(in.Entity)
	if err != nil {
		return err
	}
	vel, err := entity.As[*Velocity](upsert(e, in.kinds.Velocity))
	if err != nil {
		return err
	}
	vel.X, vel.Y = in.X, in.Y
	return nil
}

// SetHeading sets velocity from an angle in radians and a speed
type SetHeading struct {
	Entity entity.ID  `json:"entity"`
	Angle  fixed.Real `json:"angle"`
	Speed  fixed.Real `json:"speed"`

	kinds *Kinds
}

func NewSetHeading(k *Kinds, id entity.ID, angle, speed fixed.Real) *SetHeading {
	return &SetHeading{Entity: id, Angle: angle, Speed: speed, kinds: k}
}

func (in *SetHeading) Kind() string { return KindSetHeading }

func (in *SetHeading) Apply(w *engine.World) error {
	e, err := w.Entity(in.Entity)
	if err != nil {
		return err
	}
	vel, err := entity.As[*Velocity](upsert(e, in.kinds.Velocity))
	if err != nil {
		return err
	}
	vel.X = fixed.Cos(in.Angle).Mul(in.Speed)
	vel.Y = fixed.Sin(in.Angle).Mul(in.Speed)
	return nil
}

// Spawn instantiates a template and places it
type Spawn struct {
	Template int64      `json:"template"`
	X        fixed.Real `json:"x"`
	Y        fixed.Real `json:"y"`

	kinds *Kinds
}

func NewSpawn(k *Kinds, template int64, x, y fixed.Real) *Spawn {
	return &Spawn{Template: template, X: x, Y: y, kinds: k}
}

func (in *Spawn) Kind() string { return KindSpawn }

func (in *Spawn) Apply(w *engine.World) error {
	e, err := w.Instantiate(in.Template)
	if err != nil {
		return err
	}
	pos, err := entity.As[*Position](upsert(e, in.kinds.Position))
	if err != nil {
		return fmt.Errorf("spawn template %d: %w", in.Template, err)
	}
	pos.X, pos.Y = in.X, in.Y
	return nil
}

// Destroy removes an entity at the end of the tick
type Destroy struct {
	Entity entity.ID `json:"entity"`
}

func (in *Destroy) Kind() string { return KindDestroy }

func (in *Destroy) Apply(w *engine.World) error { return w.DestroyEntity(in.Entity) }

// StartClock adds a Clock to the global entity
type StartClock struct {
	kinds *Kinds
}

func NewStartClock(k *Kinds) *StartClock { return &StartClock{kinds: k} }

func (in *StartClock) Kind() string { return KindStartClock }

func (in *StartClock) Apply(w *engine.World) error {
	if w.Global().Contains(in.kinds.Clock) {
		return nil
	}
	_, err := w.Global().AddData(in.kinds.Clock)
	return err
}
