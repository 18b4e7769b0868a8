package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter implements per-provider rate limiting so dispatch never burns a
// provider's quota faster than its tier allows.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A requestsPerSecond of zero means
// unlimited for providers without an explicit rate.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until the provider's rate limit clears or the context ends
func (l *Limiter) Wait(ctx context.Context, providerName string) error {
	return l.getLimiter(providerName).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(providerName string) bool {
	return l.getLimiter(providerName).Allow()
}

// getLimiter returns the rate limiter for a provider
func (l *Limiter) getLimiter(providerName string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[providerName]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[providerName]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[providerName] = limiter

	return limiter
}

// SetProviderRate sets a custom rate limit for a specific provider.
// A requestsPerSecond of zero means unlimited (local providers).
func (l *Limiter) SetProviderRate(providerName string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	l.limiters[providerName] = rate.NewLimiter(limit, burst)
}
