// Profiling:
// go build ./cmd/profile
// ./profile -mode cpu -ticks 2000 -entities 5000
// go tool pprof -http=":8000" ./profile cpu.pprof

package main

import (
	"flag"
	"log"
	"time"

	"github.com/pkg/profile"

	"github.com/Lynx32/forge/internal/engine"
	"github.com/Lynx32/forge/internal/entity"
	"github.com/Lynx32/forge/internal/fixed"
	"github.com/Lynx32/forge/internal/kinematics"
)

func main() {
	mode := flag.String("mode", "cpu", "profile mode: cpu, mem, allocs, mutex, block")
	ticks := flag.Int("ticks", 1000, "ticks to run")
	entities := flag.Int("entities", 2000, "movers in the level")
	workers := flag.Int("workers", 4, "entity system parallelism")
	spawnEvery := flag.Int("spawn-every", 10, "spawn a ball every N ticks (0 disables)")
	flag.Parse()

	var opt func(*profile.Profile)
	switch *mode {
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfile
	case "allocs":
		opt = profile.MemProfileAllocs
	case "mutex":
		opt = profile.MutexProfile
	case "block":
		opt = profile.BlockProfile
	default:
		log.Fatalf("unknown profile mode %q", *mode)
	}

	kinds, err := kinematics.Register(entity.NewRegistry())
	if err != nil {
		log.Fatal(err)
	}
	snap, templates, err := kinematics.DefaultLevel(kinds, *entities)
	if err != nil {
		log.Fatal(err)
	}
	eng, err := engine.NewEngine(snap, templates, engine.Config{Workers: *workers}, kinematics.Systems(kinds, 30)...)
	if err != nil {
		log.Fatal(err)
	}

	p := profile.Start(opt, profile.ProfilePath("."), profile.NoShutdownHook)
	start := time.Now()
	run(eng, kinds, *ticks, *spawnEvery)
	elapsed := time.Since(start)
	p.Stop()

	hash, err := eng.VerificationHash()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("%d ticks, %d entities in %v (%v/tick), hash %016x",
		*ticks, eng.View().EntityCount(), elapsed, elapsed/time.Duration(*ticks), hash)
}

func run(eng *engine.Engine, kinds *kinematics.Kinds, ticks, spawnEvery int) {
	for i := 1; i <= ticks; i++ {
		var inputs []engine.Input
		if spawnEvery > 0 && i%spawnEvery == 0 {
			inputs = append(inputs, kinematics.NewSpawn(kinds, kinematics.BallTemplate, fixed.FromInt(int64(i)), fixed.Zero))
		}
		tick, err := eng.Update(inputs)
		if err != nil {
			log.Fatal(err)
		}
		if err := tick.Wait(); err != nil {
			log.Printf("tick %d: %v", tick.Number(), err)
		}
		if err := eng.SynchronizeState(); err != nil {
			log.Fatal(err)
		}
		eng.DispatchEvents()
	}
}
