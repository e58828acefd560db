// Replay re-runs a server input journal from its starting level and checks
// every tick hash against the one the server recorded.
//
//	go run ./cmd/replay -journal journal.jsonl
//	go run ./cmd/replay -journal journal.jsonl -snapshot level.json -templates a.json,b.json
//
// Paths and tick rate default to the same FORGE_* settings the server reads.

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Lynx32/forge/internal/config"
	"github.com/Lynx32/forge/internal/engine"
	"github.com/Lynx32/forge/internal/entity"
	"github.com/Lynx32/forge/internal/eventlog"
	"github.com/Lynx32/forge/internal/kinematics"
	"github.com/Lynx32/forge/internal/level"
)

type options struct {
	journal   string
	snapshot  string
	templates []string
	movers    int
	tickRate  int
	workers   int
}

func main() {
	if err := godotenv.Load(".env"); err == nil {
		log.Println("✅ Loaded environment from .env")
	}
	cfg := config.Load()

	opts := options{}
	flag.StringVar(&opts.journal, "journal", cfg.Level.JournalPath, "input journal to replay")
	flag.StringVar(&opts.snapshot, "snapshot", cfg.Level.SnapshotPath, "starting snapshot (empty = built-in level)")
	templates := flag.String("templates", strings.Join(cfg.Level.TemplatePaths, ","), "comma separated template group files")
	flag.IntVar(&opts.movers, "movers", kinematics.DefaultMovers, "movers in the built-in level")
	flag.IntVar(&opts.tickRate, "tick-rate", cfg.Simulation.TickRate, "tick rate the server ran at")
	flag.IntVar(&opts.workers, "workers", cfg.Simulation.Workers, "entity system parallelism")
	flag.Parse()

	for _, p := range strings.Split(*templates, ",") {
		if p = strings.TrimSpace(p); p != "" {
			opts.templates = append(opts.templates, p)
		}
	}
	if opts.journal == "" {
		log.Fatal("❌ -journal or FORGE_JOURNAL is required")
	}

	start := time.Now()
	eng, replayed, err := run(opts)

	var div *engine.DivergenceError
	if errors.As(err, &div) {
		log.Printf("❌ Diverged at tick %d after %d ticks: journal %016x, replay %016x",
			div.Tick, replayed, div.Expected, div.Actual)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("❌ Replay: %v", err)
	}

	v := eng.View()
	log.Printf("✅ Replayed %d ticks in %v: tick %d, hash %016x", replayed, time.Since(start), v.Tick, v.Hash)
}

// run builds an engine the way the server does and replays the journal into it
func run(opts options) (*engine.Engine, int, error) {
	reg := entity.NewRegistry()
	kinds, err := kinematics.Register(reg)
	if err != nil {
		return nil, 0, err
	}
	codec := engine.NewInputCodec()
	if err := kinematics.RegisterInputs(codec, kinds); err != nil {
		return nil, 0, err
	}

	snapJSON, templateJSON, err := levelJSON(opts, kinds, reg)
	if err != nil {
		return nil, 0, err
	}
	eng, ok := engine.CreateEngine(snapJSON, templateJSON, reg,
		engine.Config{Workers: opts.workers}, kinematics.Systems(kinds, opts.tickRate)...)
	if !ok {
		return nil, 0, errors.New("level files do not build an engine")
	}

	entries, err := eventlog.ReadFile(opts.journal)
	if err != nil {
		return nil, 0, fmt.Errorf("read journal: %w", err)
	}
	log.Printf("📝 %d journal entries, engine at tick %d", len(entries), eng.View().Tick)

	replayed, err := engine.Replay(eng, codec, entries)
	return eng, replayed, err
}

// levelJSON returns the serialized starting level, falling back to the
// built-in level for whatever is not configured.
func levelJSON(opts options, kinds *kinematics.Kinds, reg *entity.Registry) ([]byte, []byte, error) {
	var snapJSON, templateJSON []byte
	var err error

	if opts.snapshot != "" {
		if snapJSON, err = os.ReadFile(opts.snapshot); err != nil {
			return nil, nil, err
		}
	}
	if len(opts.templates) > 0 {
		groups := make([][]byte, 0, len(opts.templates))
		for _, p := range opts.templates {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, nil, err
			}
			groups = append(groups, data)
		}
		if templateJSON, err = level.MergeSerializedTemplateGroups(groups, reg); err != nil {
			return nil, nil, err
		}
	}
	if snapJSON != nil && templateJSON != nil {
		return snapJSON, templateJSON, nil
	}

	snap, templates, err := kinematics.DefaultLevel(kinds, opts.movers)
	if err != nil {
		return nil, nil, err
	}
	if snapJSON == nil {
		if snapJSON, err = level.SaveSnapshot(snap); err != nil {
			return nil, nil, err
		}
	}
	if templateJSON == nil {
		if templateJSON, err = level.SaveTemplateGroup(templates); err != nil {
			return nil, nil, err
		}
	}
	return snapJSON, templateJSON, nil
}
