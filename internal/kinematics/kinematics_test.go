package kinematics

import (
	"errors"
	"testing"

	"github.com/Lynx32/forge/internal/engine"
	"github.com/Lynx32/forge/internal/entity"
	"github.com/Lynx32/forge/internal/fixed"
	"github.com/Lynx32/forge/internal/level"
)

func newKinds(t *testing.T) *Kinds {
	t.Helper()
	k, err := Register(entity.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func run(t *testing.T, e *engine.Engine, inputs ...engine.Input) error {
	t.Helper()
	tick, err := e.Update(inputs)
	if err != nil {
		t.Fatal(err)
	}
	werr := tick.Wait()
	if err := e.SynchronizeState(); err != nil {
		t.Fatal(err)
	}
	return werr
}

func position(t *testing.T, e *engine.Engine, id entity.ID) *Position {
	t.Helper()
	ev := e.View().Entity(id)
	if ev == nil {
		t.Fatalf("entity %d not in view", id)
	}
	dv := ev.DataOf("position")
	if dv == nil {
		t.Fatalf("entity %d has no position", id)
	}
	return dv.Current.(*Position)
}

func TestRegisterOrder(t *testing.T) {
	k := newKinds(t)
	for want, acc := range []entity.Accessor{k.Position, k.Velocity, k.Clock} {
		if acc.ID() != want {
			t.Errorf("%s: expected id %d, got %d", acc.Name(), want, acc.ID())
		}
	}

	reg := entity.NewRegistry()
	Register(reg)
	if _, err := Register(reg); !errors.Is(err, entity.ErrDuplicateKind) {
		t.Errorf("Expected ErrDuplicateKind on second register, got %v", err)
	}
}

func TestMovement(t *testing.T) {
	k := newKinds(t)

	tests := []struct {
		name   string
		vx, vy fixed.Real
		ticks  int
		wantX  fixed.Real
		wantY  fixed.Real
	}{
		{"still", fixed.Zero, fixed.Zero, 3, fixed.Zero, fixed.Zero},
		{"unit x", fixed.One, fixed.Zero, 4, fixed.FromInt(4), fixed.Zero},
		{"half y", fixed.Zero, fixed.Half, 3, fixed.Zero, fixed.FromRaw(3 * 2048)},
		{"negative", fixed.FromInt(-2), fixed.One, 2, fixed.FromInt(-4), fixed.FromInt(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := level.NewSnapshot()
			ent := snap.CreateEntity(tt.name)
			ent.AddData(k.Position)
			vel, _ := ent.AddData(k.Velocity)
			vel.(*Velocity).X, vel.(*Velocity).Y = tt.vx, tt.vy

			e, err := engine.NewEngine(snap, nil, engine.DefaultConfig(), NewMovementSystem(k))
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < tt.ticks; i++ {
				if err := run(t, e); err != nil {
					t.Fatal(err)
				}
			}
			pos := position(t, e, ent.ID())
			if pos.X != tt.wantX || pos.Y != tt.wantY {
				t.Errorf("Expected (%s, %s), got (%s, %s)", tt.wantX, tt.wantY, pos.X, pos.Y)
			}
		})
	}
}

func TestMovementSkipsEntitiesWithoutVelocity(t *testing.T) {
	k := newKinds(t)
	snap := level.NewSnapshot()
	ent := snap.CreateEntity("")
	ent.AddData(k.Position)

	var modified int
	e, _ := engine.NewEngine(snap, nil, engine.DefaultConfig(), NewMovementSystem(k))
	entity.Subscribe(e.EventNotifier(), func(entity.DataModified) { modified++ })

	run(t, e)
	e.DispatchEvents()
	if modified != 0 {
		t.Errorf("Expected no modifications, got %d", modified)
	}
}

func TestSetHeading(t *testing.T) {
	k := newKinds(t)
	snap := level.NewSnapshot()
	id := snap.CreateEntity("").ID()

	e, _ := engine.NewEngine(snap, nil, engine.DefaultConfig())
	if err := run(t, e, NewSetHeading(k, id, fixed.Zero, fixed.FromInt(2))); err != nil {
		t.Fatal(err)
	}

	vel := e.View().Entity(id).DataOf("velocity").Current.(*Velocity)
	if d := vel.X.Raw() - fixed.FromInt(2).Raw(); d < -16 || d > 16 {
		t.Errorf("Expected x near 2, got %s", vel.X)
	}
	if d := vel.Y.Raw(); d < -16 || d > 16 {
		t.Errorf("Expected y near 0, got %s", vel.Y)
	}

	if err := run(t, e, NewSetHeading(k, id, fixed.HalfPi, fixed.One)); err != nil {
		t.Fatal(err)
	}
	vel = e.View().Entity(id).DataOf("velocity").Current.(*Velocity)
	if d := vel.X.Raw(); d < -16 || d > 16 {
		t.Errorf("Expected x near 0, got raw %d", d)
	}
	if d := vel.Y.Raw() - fixed.One.Raw(); d < -16 || d > 16 {
		t.Errorf("Expected y near 1, got raw %d", vel.Y.Raw())
	}
}

func TestSpawnPlacesTemplate(t *testing.T) {
	k := newKinds(t)
	templates := level.NewTemplateGroup()
	tpl := templates.CreateTemplate("rock")
	pos, _ := tpl.AddDefaultData(k.Position)
	pos.(*Position).X = fixed.FromInt(100)

	e, _ := engine.NewEngine(nil, templates, engine.DefaultConfig())
	if err := run(t, e, NewSpawn(k, tpl.ID(), fixed.FromInt(3), fixed.FromInt(4))); err != nil {
		t.Fatal(err)
	}

	if n := e.View().EntityCount(); n != 1 {
		t.Fatalf("Expected 1 entity, got %d", n)
	}
	got := e.View().Entities[0]
	if got.Name != "rock" {
		t.Errorf("Expected name rock, got %q", got.Name)
	}
	p := got.DataOf("position").Current.(*Position)
	if p.X != fixed.FromInt(3) || p.Y != fixed.FromInt(4) {
		t.Errorf("Expected (3, 4), got (%s, %s)", p.X, p.Y)
	}

	// Template defaults are untouched
	def, _ := tpl.Data(k.Position)
	if def.(*Position).X != fixed.FromInt(100) {
		t.Error("spawn modified the template")
	}
}

func TestClock(t *testing.T) {
	k := newKinds(t)
	e, _ := engine.NewEngine(nil, nil, engine.DefaultConfig(), NewClockSystem(k, 8))

	run(t, e)
	if e.View().Global.DataOf("clock") != nil {
		t.Fatal("clock should not exist before start")
	}

	run(t, e, NewStartClock(k))
	run(t, e, NewStartClock(k)) // idempotent
	for i := 0; i < 6; i++ {
		run(t, e)
	}

	c := e.View().Global.DataOf("clock").Current.(*Clock)
	if c.Ticks != 8 || c.Elapsed != fixed.One {
		t.Errorf("Expected 8 ticks and 1s, got %d and %s", c.Ticks, c.Elapsed)
	}
}

func TestInputsRejectMissingEntity(t *testing.T) {
	k := newKinds(t)
	e, _ := engine.NewEngine(nil, nil, engine.DefaultConfig())

	tests := []engine.Input{
		NewSetPosition(k, 5, fixed.One, fixed.One),
		NewSetVelocity(k, 5, fixed.One, fixed.One),
		NewSetHeading(k, 5, fixed.One, fixed.One),
		&Destroy{Entity: 5},
	}
	for _, in := range tests {
		if err := run(t, e, in); !errors.Is(err, engine.ErrNoSuchEntity) {
			t.Errorf("%s: expected ErrNoSuchEntity, got %v", in.Kind(), err)
		}
	}
}

func TestDecodedInputsApply(t *testing.T) {
	k := newKinds(t)
	codec := engine.NewInputCodec()
	if err := RegisterInputs(codec, k); err != nil {
		t.Fatal(err)
	}

	snap := level.NewSnapshot()
	id := snap.CreateEntity("").ID()
	e, _ := engine.NewEngine(snap, nil, engine.DefaultConfig())

	inputs, err := codec.DecodeJSON([]byte(`[{"kind":"set_position","payload":{"entity":1,"x":1.5,"y":-2}}]`))
	if err != nil {
		t.Fatal(err)
	}
	if err := run(t, e, inputs...); err != nil {
		t.Fatal(err)
	}
	pos := position(t, e, id)
	if pos.X.Raw() != 6144 || pos.Y.Raw() != -8192 {
		t.Errorf("Expected raw (6144, -8192), got (%d, %d)", pos.X.Raw(), pos.Y.Raw())
	}
}

func TestDefaultLevelRuns(t *testing.T) {
	k := newKinds(t)
	snap, templates, err := DefaultLevel(k, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Entities) != 8 || templates.Template(BallTemplate) == nil {
		t.Fatalf("Expected 8 movers and a ball template, got %d entities", len(snap.Entities))
	}

	e, err := engine.NewEngine(snap, templates, engine.DefaultConfig(), NewMovementSystem(k), NewClockSystem(k, 30))
	if err != nil {
		t.Fatal(err)
	}
	if err := run(t, e, NewSpawn(k, BallTemplate, fixed.Zero, fixed.FromInt(10))); err != nil {
		t.Fatal(err)
	}

	v := e.View()
	if v.EntityCount() != 9 {
		t.Errorf("Expected 9 entities after spawn, got %d", v.EntityCount())
	}
	if c := v.Global.DataOf("clock").Current.(*Clock); c.Ticks != 1 {
		t.Errorf("Expected clock at 1, got %d", c.Ticks)
	}
	// Mover 0 heads along +x
	if p := position(t, e, 1); p.X.Raw() < 4000 || p.Y.Raw() != 0 {
		t.Errorf("Expected mover 0 near (1, 0), got raw (%d, %d)", p.X.Raw(), p.Y.Raw())
	}
}
