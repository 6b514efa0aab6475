/*
Package limiter provides token-bucket rate limiting keyed by client IP address.

Each key gets its own rate.Limiter. A background goroutine periodically drops limiters whose
bucket has refilled completely, so idle clients do not accumulate in memory.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lobby/internal/pkg/errs"
	"lobby/internal/pkg/logx"
	"lobby/internal/pkg/resp"
)

// cleanupInterval is how often idle limiters are swept.
const cleanupInterval = 3 * time.Minute

// IPRateLimiter hands out one token bucket per client IP address.
type IPRateLimiter struct {
	// mu protects limits.
	mu sync.RWMutex

	// limits maps a client key to its token bucket.
	limits map[string]*rate.Limiter

	// r is the refill rate in events per second.
	r rate.Limit

	// b is the bucket size.
	b int

	stop     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter creates a limiter with refill rate r and burst b and starts its sweeper.
// Call Stop to terminate the sweeper.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		stop:   make(chan struct{}),
	}

	go i.cleanUpVisitors()

	return i
}

// GetLimiter returns the bucket for key, creating it on first use (double-checked locking).
func (i *IPRateLimiter) GetLimiter(key string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[key]
	i.mu.RUnlock()

	if exists {
		return limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists = i.limits[key]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.limits[key] = limiter
	}

	return limiter
}

// Allow reports whether the client at key may proceed now.
func (i *IPRateLimiter) Allow(key string) bool {
	return i.GetLimiter(key).Allow()
}

// Len returns the number of tracked keys.
func (i *IPRateLimiter) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return len(i.limits)
}

// Stop terminates the background sweeper. It is safe to call more than once.
func (i *IPRateLimiter) Stop() {
	i.stopOnce.Do(func() { close(i.stop) })
}

// cleanUpVisitors periodically calls sweep until Stop is called.
func (i *IPRateLimiter) cleanUpVisitors() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, remaining := i.sweep(time.Now())
			logx.Logger().Debug().
				Int("removed", removed).
				Int("remaining", remaining).
				Msg("Rate limiter cleanup finished.")
		case <-i.stop:
			return
		}
	}
}

// sweep removes every limiter whose bucket is full at now.
func (i *IPRateLimiter) sweep(now time.Time) (removed, remaining int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for key, limiter := range i.limits {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(i.limits, key)
			removed++
		}
	}

	return removed, len(i.limits)
}

// ClientIP extracts the host part of r.RemoteAddr, which chi's RealIP middleware has
// already rewritten from proxy headers when present.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if ip == "" {
		ip = "unknown_ip"
	}

	return ip
}

// Middleware rejects requests over the limit with ErrRateLimitExceeded (HTTP 429).
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)

		if !i.Allow(ip) {
			logx.Warn("Request rejected: rate limit exceeded.", "remote_ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
