package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-IP input limiting. Tokens are inputs, not
// requests: a batch of ten inputs costs ten.
type RateLimitConfig struct {
	InputsPerSecond float64       // Sustained inputs per second per IP
	Burst           int           // Largest batch one client may submit at once
	CleanupInterval time.Duration // How often idle clients are forgotten
}

// DefaultRateLimitConfig applies to input submission
var DefaultRateLimitConfig = RateLimitConfig{
	InputsPerSecond: 10,
	Burst:           20,
	CleanupInterval: 5 * time.Minute,
}

type inputBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// InputLimiter meters inputs per client IP
type InputLimiter struct {
	mu       sync.Mutex
	clients  map[string]*inputBucket
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewInputLimiter creates a limiter and starts its cleanup goroutine
func NewInputLimiter(cfg RateLimitConfig) *InputLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	l := &InputLimiter{
		clients:  make(map[string]*inputBucket),
		config:   cfg,
		stopChan: make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Burst is the largest batch AllowN can ever accept
func (l *InputLimiter) Burst() int { return l.config.Burst }

// AllowN reports whether ip may submit n inputs now, and spends the tokens if so
func (l *InputLimiter) AllowN(ip string, n int) bool {
	now := time.Now()

	l.mu.Lock()
	b, ok := l.clients[ip]
	if !ok {
		b = &inputBucket{limiter: rate.NewLimiter(rate.Limit(l.config.InputsPerSecond), l.config.Burst)}
		l.clients[ip] = b
		inputLimiterClients.Set(float64(len(l.clients)))
	}
	b.lastSeen = now
	l.mu.Unlock()

	return b.limiter.AllowN(now, n)
}

// Stop stops the cleanup goroutine
func (l *InputLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
}

func (l *InputLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup(time.Now().Add(-2 * l.config.CleanupInterval))
		}
	}
}

// cleanup forgets clients idle since before cutoff
func (l *InputLimiter) cleanup(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.clients {
		if b.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
	inputLimiterClients.Set(float64(len(l.clients)))
}

// GetClientIP extracts the client IP from an HTTP request
// Handles X-Forwarded-For header for proxied requests
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For for proxied requests
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First entry is the client
		// CAUTION: This can be spoofed if not behind a trusted proxy
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// connLimiter caps concurrent websocket connections per IP
type connLimiter struct {
	mu       sync.Mutex
	counts   map[string]int
	maxPerIP int
}

func newConnLimiter(maxPerIP int) *connLimiter {
	return &connLimiter{counts: make(map[string]int), maxPerIP: maxPerIP}
}

func (c *connLimiter) acquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts[ip] >= c.maxPerIP {
		return false
	}
	c.counts[ip]++
	return true
}

func (c *connLimiter) release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.counts[ip]; n > 1 {
		c.counts[ip] = n - 1
	} else {
		delete(c.counts, ip)
	}
}

func (c *connLimiter) count(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[ip]
}

// AllowedOrigins lists exact origins accepted for websocket upgrades in
// addition to localhost on any port. Set it before serving.
var AllowedOrigins []string

// IsAllowedOrigin checks if an origin may open a websocket.
// Requests without an Origin header come from non-browser clients and are allowed.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1") {
		return true
	}
	for _, allowed := range AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
