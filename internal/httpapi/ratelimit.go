package httpapi

import (
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 3 * time.Minute

// clientLimiter keeps one token bucket per client IP.
type clientLimiter struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	clients   map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = int(math.Ceil(rps))
		if burst < 1 {
			burst = 1
		}
	}
	return &clientLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*visitor),
		now:     time.Now,
	}
}

func (cl *clientLimiter) allow(key string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	now := cl.now()
	if now.Sub(cl.lastSweep) > limiterIdleTTL {
		for k, v := range cl.clients {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(cl.clients, k)
			}
		}
		cl.lastSweep = now
	}
	v := cl.clients[key]
	if v == nil {
		v = &visitor{lim: rate.NewLimiter(cl.rps, cl.burst)}
		cl.clients[key] = v
	}
	v.lastSeen = now
	return v.lim.AllowN(now, 1)
}

// middleware rejects over-limit requests with a 429 embedding envelope.
func (cl *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cl.allow(clientKey(r)) {
			IncrementBackpressure("rate_limit")
			writeEnvelope(w, http.StatusTooManyRequests, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the client IP; RealIP has already rewritten RemoteAddr when
// forwarding headers are present.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
