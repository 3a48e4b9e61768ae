package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
)

// Rate limiter defaults.
const (
	DefaultClientTTL   = 10 * time.Minute
	MinCleanupInterval = 10 * time.Second
	MaxCleanupInterval = time.Minute

	// RateLimitedBody is the body of a 429 response.
	RateLimitedBody = "Too Many Requests"
)

// clientEntry holds a rate limiter and its last access time for TTL-based cleanup.
type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter is a token bucket limiter, either shared by all clients or
// kept per client IP.
type RateLimiter struct {
	limiter   *rate.Limiter
	perClient bool
	clients   map[string]*clientEntry
	mu        sync.Mutex
	rps       float64
	burst     int
	logger    observability.Logger
	metrics   *observability.Metrics
	extractor *ClientIPExtractor
	clientTTL time.Duration
	stopCh    chan struct{}
	stopped   bool
}

// RateLimiterOption is a functional option for configuring the rate limiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterLogger sets the logger for the rate limiter.
func WithRateLimiterLogger(logger observability.Logger) RateLimiterOption {
	return func(rl *RateLimiter) {
		if logger != nil {
			rl.logger = logger
		}
	}
}

// WithRateLimiterMetrics records rejections in metrics.
func WithRateLimiterMetrics(metrics *observability.Metrics) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.metrics = metrics
	}
}

// WithClientIPExtractor sets how the per-client key is derived.
func WithClientIPExtractor(e *ClientIPExtractor) RateLimiterOption {
	return func(rl *RateLimiter) {
		if e != nil {
			rl.extractor = e
		}
	}
}

// WithClientTTL sets how long an idle client entry is kept.
func WithClientTTL(ttl time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) {
		if ttl > 0 {
			rl.clientTTL = ttl
		}
	}
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(rps float64, burst int, perClient bool, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		perClient: perClient,
		clients:   make(map[string]*clientEntry),
		rps:       rps,
		burst:     burst,
		logger:    observability.NopLogger(),
		extractor: NewClientIPExtractor(nil),
		clientTTL: DefaultClientTTL,
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

// Allow checks if a request from clientIP is allowed.
func (rl *RateLimiter) Allow(clientIP string) bool {
	if rl.perClient {
		return rl.allowPerClient(clientIP, time.Now())
	}
	return rl.limiter.Allow()
}

// allowPerClient looks up or creates the client entry and refreshes its
// access time in one critical section.
func (rl *RateLimiter) allowPerClient(clientIP string, now time.Time) bool {
	rl.mu.Lock()
	entry, exists := rl.clients[clientIP]
	if !exists {
		entry = &clientEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
		}
		rl.clients[clientIP] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// Clients returns the number of tracked client entries.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// CleanupOldClients removes entries that were not used within maxAge.
func (rl *RateLimiter) CleanupOldClients(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	removed := 0
	for clientIP, entry := range rl.clients {
		if now.Sub(entry.lastAccess) > maxAge {
			delete(rl.clients, clientIP)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("cleaned up expired rate limiter entries",
			observability.Int("removed", removed),
			observability.Int("remaining", len(rl.clients)),
		)
	}
}

// StartAutoCleanup starts a goroutine that evicts idle client entries
// until Stop is called.
func (rl *RateLimiter) StartAutoCleanup() {
	rl.mu.Lock()
	if rl.stopped {
		rl.mu.Unlock()
		return
	}
	ttl := rl.clientTTL
	rl.mu.Unlock()

	interval := ttl / 2
	if interval > MaxCleanupInterval {
		interval = MaxCleanupInterval
	}
	if interval < MinCleanupInterval {
		interval = MinCleanupInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.CleanupOldClients(ttl)
			case <-rl.stopCh:
				return
			}
		}
	}()
}

// Stop stops the cleanup goroutine. It is idempotent.
func (rl *RateLimiter) Stop() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.stopped {
		rl.stopped = true
		close(rl.stopCh)
	}
}

// RateLimit returns a middleware that answers 429 when the limiter
// rejects a request.
func RateLimit(rl *RateLimiter) Middleware {
	return func(next http1.Handler) http1.Handler {
		if rl == nil {
			return next
		}
		return http1.HandlerFunc(func(ctx context.Context, req *http1.Request) (*http1.Response, error) {
			clientIP := rl.extractor.Extract(req)

			if !rl.Allow(clientIP) {
				rl.logger.Warn("rate limit exceeded",
					observability.String("request_id", req.ID),
					observability.String("client_ip", clientIP),
					observability.String("path", req.Path),
				)
				getMiddlewareMetrics().rateLimitRejected.Inc()
				if rl.metrics != nil {
					rl.metrics.RecordRateLimitHit(req.Method)
				}
				return http1.Text(429, RateLimitedBody).SetHeader(HeaderRetryAfter, "1"), nil
			}

			return next.Handle(ctx, req)
		})
	}
}
