package engine_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/Lynx32/forge/internal/engine"
	"github.com/Lynx32/forge/internal/eventlog"
	"github.com/Lynx32/forge/internal/fixed"
	"github.com/Lynx32/forge/internal/kinematics"
	"github.com/Lynx32/forge/internal/level"
)

func newCodec(t *testing.T, k *kinematics.Kinds) *engine.InputCodec {
	t.Helper()
	codec := engine.NewInputCodec()
	if err := kinematics.RegisterInputs(codec, k); err != nil {
		t.Fatal(err)
	}
	return codec
}

func TestInputCodecRoundTrip(t *testing.T) {
	_, k := setup(t)
	codec := newCodec(t, k)

	in := []engine.Input{
		kinematics.NewSetHeading(k, 3, fixed.FromRaw(1234), fixed.FromRaw(-5678)),
		&kinematics.Destroy{Entity: 9},
		kinematics.NewStartClock(k),
	}
	data, err := codec.EncodeJSON(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := codec.DecodeJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("Expected %d inputs, got %d", len(in), len(out))
	}

	h, ok := out[0].(*kinematics.SetHeading)
	if !ok {
		t.Fatalf("Expected *SetHeading, got %T", out[0])
	}
	if h.Entity != 3 || h.Angle.Raw() != 1234 || h.Speed.Raw() != -5678 {
		t.Errorf("SetHeading decoded wrong: %+v", h)
	}
	if d := out[1].(*kinematics.Destroy); d.Entity != 9 {
		t.Errorf("Expected destroy 9, got %d", d.Entity)
	}
	if out[2].Kind() != kinematics.KindStartClock {
		t.Errorf("Expected %s, got %s", kinematics.KindStartClock, out[2].Kind())
	}
}

func TestInputCodecErrors(t *testing.T) {
	_, k := setup(t)
	codec := newCodec(t, k)

	tests := []struct {
		name string
		data string
		want error
	}{
		{"unknown kind", `[{"kind":"teleport"}]`, engine.ErrUnknownInput},
		{"not an array", `{"kind":"destroy"}`, nil},
		{"bad payload", `[{"kind":"destroy","payload":{"entity":"x"}}]`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.DecodeJSON([]byte(tt.data))
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if err := codec.Register(kinematics.KindDestroy, func() engine.Input { return &kinematics.Destroy{} }); !errors.Is(err, engine.ErrDuplicateInput) {
		t.Errorf("Expected ErrDuplicateInput, got %v", err)
	}
	if kinds := codec.Kinds(); len(kinds) != 6 || kinds[0] != kinematics.KindDestroy {
		t.Errorf("Expected 6 sorted kinds starting with destroy, got %v", kinds)
	}
}

func TestInputQueue(t *testing.T) {
	q := engine.NewInputQueue(2)
	if err := q.Push(&kinematics.Destroy{Entity: 1}); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(&kinematics.Destroy{Entity: 2}, &kinematics.Destroy{Entity: 3}); !errors.Is(err, engine.ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
	if q.Len() != 1 {
		t.Errorf("Expected rejected push to queue nothing, got %d", q.Len())
	}

	got := q.Drain()
	if len(got) != 1 || got[0].(*kinematics.Destroy).Entity != 1 {
		t.Errorf("Unexpected drain result %v", got)
	}
	if q.Len() != 0 {
		t.Error("Expected empty queue after drain")
	}
}

// recordRun steps a fresh engine through a fixed input script and returns
// the initial snapshot and the resulting journal.
func recordRun(t *testing.T) (*level.Snapshot, []eventlog.Entry) {
	t.Helper()
	_, k := setup(t)
	codec := newCodec(t, k)

	snap := level.NewSnapshot()
	a := snap.CreateEntity("a")
	a.AddData(k.Position)

	e, err := engine.NewEngine(snap, nil, engine.DefaultConfig(), kinematics.NewMovementSystem(k), kinematics.NewClockSystem(k, 30))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	journal := eventlog.NewJournal()
	journal.StartWriter(&buf)

	runner := engine.NewRunner(e, codec, engine.NewInputQueue(0), journal, 30)
	var reports []engine.TickReport
	runner.OnTick(func(r engine.TickReport) { reports = append(reports, r) })

	script := [][]engine.Input{
		{kinematics.NewStartClock(k), kinematics.NewSetVelocity(k, a.ID(), fixed.One, fixed.Half)},
		nil,
		{kinematics.NewSpawn(k, 1, fixed.Zero, fixed.Zero)}, // no such template; rejected but journaled
		{kinematics.NewSetHeading(k, a.ID(), fixed.HalfPi, fixed.FromInt(2))},
		nil,
	}
	for _, inputs := range script {
		if err := runner.Queue().Push(inputs...); err != nil {
			t.Fatal(err)
		}
		runner.Step()
	}
	journal.Stop()

	if len(reports) != len(script) {
		t.Fatalf("Expected %d reports, got %d", len(script), len(reports))
	}
	if reports[2].Err == nil {
		t.Error("Expected tick 3 to report the rejected spawn")
	}
	if reports[0].Inputs != 2 || reports[0].Tick != 1 || reports[0].Events == 0 {
		t.Errorf("Unexpected first report %+v", reports[0])
	}

	entries, err := eventlog.ReadEntries(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(script) {
		t.Fatalf("Expected %d journal entries, got %d", len(script), len(entries))
	}
	for i, entry := range entries {
		if entry.Hash != reports[i].Hash || entry.Tick != reports[i].Tick {
			t.Errorf("entry %d does not match report: %+v vs %+v", i, entry, reports[i])
		}
	}
	return snap, entries
}

func replayEngine(t *testing.T, snap *level.Snapshot) (*engine.Engine, *engine.InputCodec) {
	t.Helper()
	_, k := setup(t)
	e, err := engine.NewEngine(snap, nil, engine.DefaultConfig(), kinematics.NewMovementSystem(k), kinematics.NewClockSystem(k, 30))
	if err != nil {
		t.Fatal(err)
	}
	return e, newCodec(t, k)
}

func TestReplayReproducesJournal(t *testing.T) {
	snap, entries := recordRun(t)

	e, codec := replayEngine(t, snap)
	n, err := engine.Replay(e, codec, entries)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if n != len(entries) {
		t.Errorf("Expected %d replayed ticks, got %d", len(entries), n)
	}
	if e.View().Hash != entries[len(entries)-1].Hash {
		t.Error("final hash differs from journal")
	}

	// Already applied entries are skipped
	if n, err := engine.Replay(e, codec, entries); err != nil || n != 0 {
		t.Errorf("Expected a no-op second replay, got %d, %v", n, err)
	}
}

func TestReplayDetectsDivergence(t *testing.T) {
	snap, entries := recordRun(t)
	entries[2].Hash ^= 1

	e, codec := replayEngine(t, snap)
	n, err := engine.Replay(e, codec, entries)

	var div *engine.DivergenceError
	if !errors.As(err, &div) {
		t.Fatalf("Expected DivergenceError, got %v", err)
	}
	if div.Tick != 3 || n != 3 {
		t.Errorf("Expected divergence at tick 3 after 3 ticks, got tick %d after %d", div.Tick, n)
	}
}

func TestReplayRejectsGap(t *testing.T) {
	snap, entries := recordRun(t)

	e, codec := replayEngine(t, snap)
	if _, err := engine.Replay(e, codec, entries[1:]); err == nil {
		t.Error("Expected gap error")
	}
}

func TestRunnerLoop(t *testing.T) {
	_, k := setup(t)
	e, err := engine.NewEngine(nil, nil, engine.DefaultConfig(), kinematics.NewClockSystem(k, 100))
	if err != nil {
		t.Fatal(err)
	}
	runner := engine.NewRunner(e, newCodec(t, k), engine.NewInputQueue(0), nil, 100)

	ticked := make(chan int64, 100)
	runner.OnTick(func(r engine.TickReport) {
		select {
		case ticked <- r.Tick:
		default:
		}
	})
	runner.Queue().Push(kinematics.NewStartClock(k))
	runner.Start()
	runner.Start() // second start is a no-op

	deadline := time.After(5 * time.Second)
	for seen := 0; seen < 3; {
		select {
		case <-ticked:
			seen++
		case <-deadline:
			t.Fatal("runner did not tick")
		}
	}
	runner.Stop()
	runner.Stop()

	if e.State() != engine.StateIdle {
		t.Errorf("Expected idle after stop, got %s", e.State())
	}
	clock := e.View().Global.DataOf("clock")
	if clock == nil || clock.Current.(*kinematics.Clock).Ticks < 3 {
		t.Errorf("Expected the clock to have advanced, got %+v", clock)
	}
}
