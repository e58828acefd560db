// Package config provides centralized configuration management.
// Defaults live here; every value can be overridden from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimulationConfig holds engine and runner settings.
type SimulationConfig struct {
	TickRate       int // Ticks per second
	Workers        int // Entity system parallelism
	EventQueueSize int // Event notifier ring size
	InputQueueSize int // Inputs buffered between ticks (0 = unbounded)
}

// DefaultSimulation returns the default simulation configuration.
func DefaultSimulation() SimulationConfig {
	return SimulationConfig{
		TickRate:       30,
		Workers:        4,
		EventQueueSize: 4096,
		InputQueueSize: 1024,
	}
}

// SimulationFromEnv returns simulation configuration with environment variable overrides.
func SimulationFromEnv() SimulationConfig {
	cfg := DefaultSimulation()

	if r := getEnvInt("FORGE_TICK_RATE", 0); r > 0 {
		cfg.TickRate = r
	}
	if w := getEnvInt("FORGE_WORKERS", 0); w > 0 {
		cfg.Workers = w
	}
	if q := getEnvInt("FORGE_EVENT_QUEUE", 0); q > 0 {
		cfg.EventQueueSize = q
	}
	if q := getEnvInt("FORGE_INPUT_QUEUE", -1); q >= 0 {
		cfg.InputQueueSize = q
	}

	return cfg
}

// =============================================================================
// LEVEL FILES
// =============================================================================

// LevelConfig names the files the server loads and writes.
// Empty paths mean "use the built-in level" and "no journal".
type LevelConfig struct {
	SnapshotPath  string // Saved snapshot JSON
	TemplatePaths []string
	JournalPath   string // Append-only input journal (JSONL)
	SavePath      string // Snapshot written on shutdown
}

// LevelFromEnv reads level paths from the environment.
// FORGE_TEMPLATES is a comma separated list of template group files.
func LevelFromEnv() LevelConfig {
	cfg := LevelConfig{
		SnapshotPath: os.Getenv("FORGE_SNAPSHOT"),
		JournalPath:  os.Getenv("FORGE_JOURNAL"),
		SavePath:     os.Getenv("FORGE_SAVE"),
	}
	for _, p := range strings.Split(os.Getenv("FORGE_TEMPLATES"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.TemplatePaths = append(cfg.TemplatePaths, p)
		}
	}
	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	AdminToken     string  // Bearer token for mutating endpoints (empty = open)
	InputRate      float64 // Inputs per second per IP
	InputBurst     int     // Largest input batch per request
	DebugAddr      string  // pprof + metrics listener
	DebugEnabled   bool
	BroadcastEvery time.Duration // Websocket tick feed interval
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		InputRate:      10,
		InputBurst:     20,
		DebugAddr:      "127.0.0.1:6060",
		DebugEnabled:   true,
		BroadcastEvery: 100 * time.Millisecond,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if tok := os.Getenv("FORGE_ADMIN_TOKEN"); tok != "" {
		cfg.AdminToken = tok
	}
	if r := getEnvFloat("FORGE_INPUT_RATE", 0); r > 0 {
		cfg.InputRate = r
	}
	if b := getEnvInt("FORGE_INPUT_BURST", 0); b > 0 {
		cfg.InputBurst = b
	}
	if addr := os.Getenv("FORGE_DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}
	if os.Getenv("FORGE_DEBUG") == "false" {
		cfg.DebugEnabled = false
	}
	if ms := getEnvInt("FORGE_BROADCAST_MS", 0); ms > 0 {
		cfg.BroadcastEvery = time.Duration(ms) * time.Millisecond
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Simulation SimulationConfig
	Level      LevelConfig
	Server     ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Simulation: SimulationFromEnv(),
		Level:      LevelFromEnv(),
		Server:     ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
