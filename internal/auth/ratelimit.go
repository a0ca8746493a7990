package auth

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-key token buckets
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
	// IdleTimeout drops buckets unused for this long
	IdleTimeout time.Duration
}

// DefaultRateLimitConfig returns the server defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 10,
		Burst:             20,
		IdleTimeout:       10 * time.Minute,
	}
}

// RateLimiter keeps one rate.Limiter per key
type RateLimiter struct {
	config  RateLimitConfig
	buckets map[string]*bucket
	mu      sync.Mutex
	logger  *slog.Logger
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config RateLimitConfig, logger *slog.Logger) *RateLimiter {
	d := DefaultRateLimitConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = d.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = d.Burst
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = d.IdleTimeout
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		logger:  logger,
		now:     time.Now,
	}
}

// Allow consumes one token for key. customLimit overrides the default
// requests per second when the bucket is first created. On refusal it
// returns the seconds until a token is available, rounded up.
func (r *RateLimiter) Allow(key string, customLimit *int) (bool, int) {
	if !r.config.Enabled {
		return true, 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	b, ok := r.buckets[key]
	if !ok {
		limit := rate.Limit(r.config.RequestsPerSecond)
		burst := r.config.Burst
		if customLimit != nil && *customLimit > 0 {
			limit = rate.Limit(*customLimit)
			burst = max(burst, *customLimit)
		}
		b = &bucket{limiter: rate.NewLimiter(limit, burst)}
		r.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, 1
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, int(math.Ceil(delay.Seconds()))
}

// Reset forgets a key's bucket, e.g. after rotation or revocation
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buckets, key)
}

// StartCleanup drops idle buckets until ctx is done
func (r *RateLimiter) StartCleanup(ctx context.Context) {
	if !r.config.Enabled {
		return
	}
	go func() {
		ticker := time.NewTicker(r.config.IdleTimeout)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.cleanup()
			}
		}
	}()
}

func (r *RateLimiter) cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.config.IdleTimeout)
	removed := 0
	for key, b := range r.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(r.buckets, key)
			removed++
		}
	}
	if removed > 0 && r.logger != nil {
		r.logger.Debug("Rate limit cleanup",
			"removed_buckets", removed,
			"remaining", len(r.buckets),
		)
	}
	return removed
}

// Stats returns rate limiter statistics
func (r *RateLimiter) Stats() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]interface{}{
		"enabled":           r.config.Enabled,
		"requestsPerSecond": r.config.RequestsPerSecond,
		"burst":             r.config.Burst,
		"activeBuckets":     len(r.buckets),
	}
}
