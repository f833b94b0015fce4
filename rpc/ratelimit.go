package rpc

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"stakeledger/observability"
)

const visitorTTL = 10 * time.Minute

// RateLimitConfig bounds requests per client. A non-positive rate disables
// limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client identifier.
type RateLimiter struct {
	cfg      RateLimitConfig
	mu       sync.Mutex
	visitors map[string]*visitor
	nowFn    func() time.Time
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:      cfg,
		visitors: make(map[string]*visitor),
		nowFn:    time.Now,
	}
}

// Allow reports whether the client behind r may proceed.
func (l *RateLimiter) Allow(r *http.Request) bool {
	if l == nil || l.cfg.RequestsPerSecond <= 0 {
		return true
	}
	id := clientID(r)
	now := l.nowFn()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(now)
	v, ok := l.visitors[id]
	if !ok {
		burst := l.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), burst)}
		l.visitors[id] = v
	}
	v.lastSeen = now
	if !v.limiter.AllowN(now, 1) {
		observability.ModuleMetrics().RecordThrottle("rpc", "rate_limit")
		return false
	}
	return true
}

func (l *RateLimiter) evict(now time.Time) {
	for id, v := range l.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(l.visitors, id)
		}
	}
}

func clientID(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if first := strings.TrimSpace(parts[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
