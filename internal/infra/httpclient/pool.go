package httpclient

import (
	"net/http"
	"time"
)

// sharedTransport is reused across all pooled clients so the embedder,
// generator and search providers share idle connections.
var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
	DisableKeepAlives:   false,
}

// NewPooledClient creates an http.Client on the shared transport.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}

// NewRateLimitedClient creates a pooled client whose requests wait on a
// per-host limiter allowing requestsPerSecond.
func NewRateLimitedClient(timeout time.Duration, requestsPerSecond float64) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &rateLimitedTransport{
			base:    sharedTransport,
			limiter: NewHostRateLimiter(requestsPerSecond),
		},
	}
}

type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *HostRateLimiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context(), req.URL.Host); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}
