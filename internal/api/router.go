package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Lynx32/forge/internal/engine"
	"github.com/Lynx32/forge/internal/level"
)

// EngineInterface defines the engine methods used by the API.
// Keep this minimal so tests can stub it without running ticks.
type EngineInterface interface {
	// View returns the last published state; never blocks
	View() *engine.View
	// TakeSnapshot deep-copies the live state after any in-flight tick
	TakeSnapshot() (*level.Snapshot, error)
}

// InputSink receives decoded inputs for the next tick
type InputSink interface {
	Push(inputs ...engine.Input) error
	Len() int
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine: eng,
//	    Queue:  engine.NewInputQueue(0),
//	    Codec:  codec,
//	    RateLimitConfig: &api.RateLimitConfig{InputsPerSecond: 1000, Burst: 1000},
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation (required)
	Engine EngineInterface

	// Queue collects inputs posted to /api/input (required)
	Queue InputSink

	// Codec decodes input envelopes (required)
	Codec *engine.InputCodec

	// RateLimiter is an optional pre-configured limiter for input submission.
	// If nil, a new one is created from RateLimitConfig.
	RateLimiter *InputLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, localhost on any port is allowed.
	CORSOrigins []string

	// AdminToken guards mutating and expensive endpoints when set
	AdminToken string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	engine  EngineInterface
	queue   InputSink
	codec   *engine.InputCodec
	limiter *InputLimiter
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// NewRouter has no side effects beyond the rate limiter's cleanup goroutine;
// no listeners are opened. Safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewInputLimiter(rateLimitCfg)
	}

	h := &routerHandlers{
		engine:  cfg.Engine,
		queue:   cfg.Queue,
		codec:   cfg.Codec,
		limiter: rateLimiter,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/hash", h.handleGetHash)
		r.Get("/entity/{id}", h.handleGetEntity)
		r.Get("/schema", h.handleGetSchema)
		r.Get("/inputs", h.handleGetInputKinds)

		// Snapshots copy the whole world; inputs change it
		r.Group(func(r chi.Router) {
			r.Use(RequireToken(cfg.AdminToken))
			r.Get("/snapshot", h.handleGetSnapshot)
			r.Post("/input", h.handlePostInput)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
