package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Lynx32/forge/internal/api"
	"github.com/Lynx32/forge/internal/config"
	"github.com/Lynx32/forge/internal/engine"
	"github.com/Lynx32/forge/internal/entity"
	"github.com/Lynx32/forge/internal/eventlog"
	"github.com/Lynx32/forge/internal/kinematics"
	"github.com/Lynx32/forge/internal/level"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  FORGE - DETERMINISTIC ENGINE")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	simCfg := appConfig.Simulation
	levelCfg := appConfig.Level
	serverCfg := appConfig.Server

	kinds, err := kinematics.Register(entity.DefaultRegistry)
	if err != nil {
		log.Fatalf("❌ Register kinds: %v", err)
	}

	snap, templates, err := loadLevel(levelCfg, kinds)
	if err != nil {
		log.Fatalf("❌ Load level: %v", err)
	}
	log.Printf("🗺️ Level: tick %d, %d entities, %d templates", snap.Tick, len(snap.Entities), len(templates.Templates))

	eng, err := engine.NewEngine(snap, templates, engine.Config{
		Workers:        simCfg.Workers,
		EventQueueSize: simCfg.EventQueueSize,
	}, kinematics.Systems(kinds, simCfg.TickRate)...)
	if err != nil {
		log.Fatalf("❌ Create engine: %v", err)
	}
	log.Printf("🎮 Config: %d TPS, %d workers, event queue %d", simCfg.TickRate, simCfg.Workers, simCfg.EventQueueSize)

	codec := engine.NewInputCodec()
	if err := kinematics.RegisterInputs(codec, kinds); err != nil {
		log.Fatalf("❌ Register inputs: %v", err)
	}

	// Input journal
	var journal *eventlog.Journal
	if levelCfg.JournalPath != "" {
		journal = eventlog.NewJournal()
		if err := journal.Start(levelCfg.JournalPath); err != nil {
			log.Printf("⚠️ Journal disabled: %v", err)
			journal = nil
		} else {
			log.Printf("📝 Journal: %s", levelCfg.JournalPath)
		}
	}

	queue := engine.NewInputQueue(simCfg.InputQueueSize)
	runner := engine.NewRunner(eng, codec, queue, journal, simCfg.TickRate)

	var lastEventsDropped, lastJournalWritten, lastJournalDropped uint64
	runner.OnTick(func(report engine.TickReport) {
		api.RecordTick(report)
		if d := eng.EventNotifier().Dropped(); d > lastEventsDropped {
			api.RecordEventsDropped(d - lastEventsDropped)
			lastEventsDropped = d
		}
		if journal != nil {
			written, dropped := journal.Written(), journal.Dropped()
			api.RecordJournal(written-lastJournalWritten, dropped-lastJournalDropped)
			lastJournalWritten, lastJournalDropped = written, dropped
		}
	})

	entity.Subscribe(eng.EventNotifier(), func(ev engine.EntityCreated) {
		log.Printf("✨ Entity %d created at tick %d", ev.Entity, ev.Tick)
	})
	entity.Subscribe(eng.EventNotifier(), func(ev engine.EntityDestroyed) {
		log.Printf("💥 Entity %d destroyed at tick %d", ev.Entity, ev.Tick)
	})

	// Start debug server
	if err := api.StartDebugServer(api.ObservabilityConfig{
		Enabled:       serverCfg.DebugEnabled,
		ListenAddr:    serverCfg.DebugAddr,
		BasicAuthUser: os.Getenv("DEBUG_USER"),
		BasicAuthPass: os.Getenv("DEBUG_PASS"),
	}); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	server := api.NewServer(api.RouterConfig{
		Engine:     eng,
		Queue:      queue,
		Codec:      codec,
		AdminToken: serverCfg.AdminToken,
		RateLimitConfig: &api.RateLimitConfig{
			InputsPerSecond: serverCfg.InputRate,
			Burst:           serverCfg.InputBurst,
			CleanupInterval: api.DefaultRateLimitConfig.CleanupInterval,
		},
	}, serverCfg.BroadcastEvery)
	if serverCfg.AdminToken == "" {
		log.Println("⚠️ FORGE_ADMIN_TOKEN not set - input and snapshot endpoints are open")
	}

	runner.Start()

	go func() {
		if err := server.Start(":" + strconv.Itoa(serverCfg.Port)); err != nil {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}

	runner.Stop()
	if journal != nil {
		journal.Stop()
	}

	if levelCfg.SavePath != "" {
		final, err := eng.TakeSnapshot()
		if err != nil {
			log.Printf("❌ Final snapshot failed: %v", err)
		} else if err := level.WriteSnapshotFile(levelCfg.SavePath, final); err != nil {
			log.Printf("❌ Save snapshot failed: %v", err)
		} else {
			log.Printf("💾 Saved tick %d to %s", final.Tick, levelCfg.SavePath)
		}
	}

	log.Println("👋 Goodbye!")
}

// loadLevel reads the configured level files, falling back to the built-in
// level for whatever is not configured.
func loadLevel(cfg config.LevelConfig, kinds *kinematics.Kinds) (*level.Snapshot, *level.TemplateGroup, error) {
	defSnap, defTemplates, err := kinematics.DefaultLevel(kinds, kinematics.DefaultMovers)
	if err != nil {
		return nil, nil, err
	}

	snap := defSnap
	if cfg.SnapshotPath != "" {
		if snap, err = level.ReadSnapshotFile(cfg.SnapshotPath, entity.DefaultRegistry); err != nil {
			return nil, nil, err
		}
	}

	templates := defTemplates
	if len(cfg.TemplatePaths) > 0 {
		if templates, err = level.ReadTemplateFiles(cfg.TemplatePaths, entity.DefaultRegistry); err != nil {
			return nil, nil, err
		}
	}
	return snap, templates, nil
}
