package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lynx32/forge/internal/engine"
	"github.com/Lynx32/forge/internal/entity"
	"github.com/Lynx32/forge/internal/eventlog"
	"github.com/Lynx32/forge/internal/fixed"
	"github.com/Lynx32/forge/internal/kinematics"
	"github.com/Lynx32/forge/internal/level"
)

const movers = 4

// recordJournal runs the built-in level the way the server does and returns
// the journal path and the final published view
func recordJournal(t *testing.T) (string, *engine.View) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	reg := entity.NewRegistry()
	kinds, err := kinematics.Register(reg)
	if err != nil {
		t.Fatal(err)
	}
	codec := engine.NewInputCodec()
	if err := kinematics.RegisterInputs(codec, kinds); err != nil {
		t.Fatal(err)
	}

	snap, templates, err := kinematics.DefaultLevel(kinds, movers)
	if err != nil {
		t.Fatal(err)
	}
	first := snap.Entities[0].ID()
	eng, err := engine.NewEngine(snap, templates, engine.DefaultConfig(), kinematics.Systems(kinds, 30)...)
	if err != nil {
		t.Fatal(err)
	}

	journal := eventlog.NewJournal()
	if err := journal.Start(path); err != nil {
		t.Fatal(err)
	}
	runner := engine.NewRunner(eng, codec, engine.NewInputQueue(0), journal, 30)

	script := [][]engine.Input{
		{kinematics.NewStartClock(kinds)},
		{kinematics.NewSpawn(kinds, kinematics.BallTemplate, fixed.FromInt(2), fixed.Zero)},
		nil,
		{kinematics.NewSetVelocity(kinds, first, fixed.Half, fixed.One)},
		nil,
	}
	for _, inputs := range script {
		if err := runner.Queue().Push(inputs...); err != nil {
			t.Fatal(err)
		}
		runner.Step()
	}
	journal.Stop()
	return path, eng.View()
}

func TestReplayReproducesServerRun(t *testing.T) {
	path, want := recordJournal(t)

	eng, replayed, err := run(options{journal: path, movers: movers, tickRate: 30, workers: 2})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if replayed != 5 {
		t.Errorf("Expected 5 replayed ticks, got %d", replayed)
	}
	if got := eng.View(); got.Tick != want.Tick || got.Hash != want.Hash {
		t.Errorf("Expected tick %d hash %x, got tick %d hash %x", want.Tick, want.Hash, got.Tick, got.Hash)
	}
}

func TestReplayReportsDivergence(t *testing.T) {
	path, _ := recordJournal(t)

	// A different clock rate changes the global entity on the first tick
	_, _, err := run(options{journal: path, movers: movers, tickRate: 60, workers: 2})
	var div *engine.DivergenceError
	if !errors.As(err, &div) {
		t.Fatalf("Expected DivergenceError, got %v", err)
	}
	if div.Expected == div.Actual {
		t.Errorf("Expected differing hashes, got %x twice", div.Actual)
	}
}

func TestReplayMissingJournal(t *testing.T) {
	_, _, err := run(options{journal: filepath.Join(t.TempDir(), "none.jsonl"), movers: movers, tickRate: 30})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestLevelJSONMergesTemplateFiles(t *testing.T) {
	reg := entity.NewRegistry()
	kinds, err := kinematics.Register(reg)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	write := func(name string, g *level.TemplateGroup) string {
		data, err := level.SaveTemplateGroup(g)
		if err != nil {
			t.Fatal(err)
		}
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	a := level.NewTemplateGroup()
	a.CreateTemplate("a")
	b := level.NewTemplateGroupFrom(10)
	b.CreateTemplate("b")
	dup := level.NewTemplateGroup()
	dup.CreateTemplate("dup")
	pa, pb, pdup := write("a.json", a), write("b.json", b), write("dup.json", dup)

	snapJSON, templateJSON, err := levelJSON(options{templates: []string{pa, pb}, movers: movers}, kinds, reg)
	if err != nil {
		t.Fatal(err)
	}
	merged, err := level.LoadTemplateGroup(templateJSON, reg)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged.Templates) != 2 || merged.Template(10) == nil {
		t.Errorf("Expected templates 0 and 10, got %d templates", len(merged.Templates))
	}
	snap, err := level.LoadSnapshot(snapJSON, reg)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Entities) != movers {
		t.Errorf("Expected built-in level with %d movers, got %d", movers, len(snap.Entities))
	}

	_, _, err = levelJSON(options{templates: []string{pa, pdup}, movers: movers}, kinds, reg)
	var dupErr *level.DuplicateTemplateError
	if !errors.As(err, &dupErr) || dupErr.ID != 0 {
		t.Errorf("Expected duplicate template 0, got %v", err)
	}
}
