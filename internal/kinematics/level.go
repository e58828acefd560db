package kinematics

import (
	"github.com/Lynx32/forge/internal/fixed"
	"github.com/Lynx32/forge/internal/level"
)

// BallTemplate is the id of the template in DefaultLevel
const BallTemplate int64 = 0

// DefaultMovers is the ring size the server uses for DefaultLevel
const DefaultMovers = 16

// DefaultLevel builds the level served when no level files are configured:
// a running clock, a ring of movers heading outward, and a "ball" template
// for spawning more.
func DefaultLevel(k *Kinds, movers int) (*level.Snapshot, *level.TemplateGroup, error) {
	snap := level.NewSnapshot()
	if _, err := snap.Global.AddData(k.Clock); err != nil {
		return nil, nil, err
	}

	for i := 0; i < movers; i++ {
		e := snap.CreateEntity("mover")
		if _, err := e.AddData(k.Position); err != nil {
			return nil, nil, err
		}
		d, err := e.AddData(k.Velocity)
		if err != nil {
			return nil, nil, err
		}
		angle := fixed.TwoPi.Mul(fixed.FromInt(int64(i))).Div(fixed.FromInt(int64(movers)))
		vel := d.(*Velocity)
		vel.X = fixed.Cos(angle)
		vel.Y = fixed.Sin(angle)
	}

	templates := level.NewTemplateGroup()
	ball := templates.CreateTemplate("ball")
	if _, err := ball.AddDefaultData(k.Position); err != nil {
		return nil, nil, err
	}
	d, err := ball.AddDefaultData(k.Velocity)
	if err != nil {
		return nil, nil, err
	}
	d.(*Velocity).Y = fixed.Half.Neg()

	return snap, templates, nil
}
