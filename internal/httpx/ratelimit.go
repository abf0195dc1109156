package httpx

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Idle clients are dropped from the limiter map so it stays bounded over the
// process lifetime. An evicted client simply starts with a fresh bucket.
const limiterIdleTTL = 5 * time.Minute

type rateLimiterClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements per-client-IP token-bucket rate limiting.
type RateLimiter struct {
	clients   map[string]*rateLimiterClient
	mu        sync.Mutex
	r         rate.Limit
	b         int
	idleTTL   time.Duration
	lastSweep time.Time
}

// NewRateLimiter creates a rate limiter allowing requestsPerSecond sustained
// requests with the given burst per client IP.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*rateLimiterClient),
		r:         rate.Limit(requestsPerSecond),
		b:         burst,
		idleTTL:   limiterIdleTTL,
		lastSweep: time.Now(),
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		rl.sweepLocked(now)
	}

	client, exists := rl.clients[ip]
	if !exists {
		client = &rateLimiterClient{limiter: rate.NewLimiter(rl.r, rl.b)}
		rl.clients[ip] = client
	}
	client.lastSeen = now
	return client.limiter
}

// sweepLocked drops clients not seen within the idle TTL. Caller holds rl.mu.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	for ip, client := range rl.clients {
		if now.Sub(client.lastSeen) >= rl.idleTTL {
			delete(rl.clients, ip)
		}
	}
	rl.lastSweep = now
}

// Limit returns a middleware that rejects requests exceeding the per-IP budget.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !rl.limiterFor(ip).Allow() {
			WriteError(w, http.StatusTooManyRequests, "rate_limited",
				"too many requests, please try again later", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
