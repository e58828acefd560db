package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with the websocket tick feed.
type Server struct {
	engine         EngineInterface
	router         *chi.Mux
	wsHub          *WebSocketHub
	rateLimiter    *InputLimiter
	broadcastEvery time.Duration
	httpServer     *http.Server
}

// NewServer creates an API server.
//
// Background workers do NOT start until Start() is called, so the server can
// be constructed in tests and exercised through Router().
func NewServer(cfg RouterConfig, broadcastEvery time.Duration) *Server {
	s := &Server{
		engine:         cfg.Engine,
		wsHub:          NewWebSocketHub(),
		broadcastEvery: broadcastEvery,
	}

	if cfg.RateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		cfg.RateLimiter = NewInputLimiter(rateLimitCfg)
	}
	s.rateLimiter = cfg.RateLimiter

	s.router = NewRouter(cfg)
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// StartBackground starts the websocket hub and broadcast loop without
// opening a listener. Start calls it.
func (s *Server) StartBackground() {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.engine, s.broadcastEvery)
}

// Start starts background workers and serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.StartBackground()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🌐 API server starting on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the websocket hub
func (s *Server) Hub() *WebSocketHub { return s.wsHub }

// Shutdown stops the listener, closes websocket clients and background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
