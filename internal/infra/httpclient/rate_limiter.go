package httpclient

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

var errMissingHost = errors.New("missing host")

// HostRateLimiter keeps one token bucket per host.
type HostRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	limit    rate.Limit
}

// NewHostRateLimiter allows requestsPerSecond per host with a burst of one.
// A non-positive rate disables limiting.
func NewHostRateLimiter(requestsPerSecond float64) *HostRateLimiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &HostRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
}

// Wait blocks until a request to host may proceed or ctx is done.
func (h *HostRateLimiter) Wait(ctx context.Context, host string) error {
	if host == "" {
		return errMissingHost
	}
	return h.getLimiterForHost(host).Wait(ctx)
}

func (h *HostRateLimiter) getLimiterForHost(host string) *rate.Limiter {
	h.mu.RLock()
	limiter, exists := h.limiters[host]
	h.mu.RUnlock()

	if exists {
		return limiter
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Double-check pattern
	if limiter, exists := h.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(h.limit, 1)
	h.limiters[host] = limiter
	return limiter
}
