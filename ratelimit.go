package main

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const staleClientAfter = 5 * time.Minute

// RateLimiter throttles requests per client address.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*rate.Limiter
	lastSeen  map[string]time.Time
	lastSweep time.Time
	rate      rate.Limit
	burst     int
}

// NewRateLimiter returns a limiter allowing requestsPerSecond per client with
// the given burst. A non-positive rate disables limiting (nil limiter).
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		clients:   make(map[string]*rate.Limiter),
		lastSeen:  make(map[string]time.Time),
		lastSweep: time.Now(),
		rate:      rate.Limit(requestsPerSecond),
		burst:     burst,
	}
}

// Allow reports whether a request from client may proceed.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > staleClientAfter {
		for c, seen := range rl.lastSeen {
			if now.Sub(seen) > staleClientAfter {
				delete(rl.clients, c)
				delete(rl.lastSeen, c)
			}
		}
		rl.lastSweep = now
	}

	limiter, ok := rl.clients[client]
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.clients[client] = limiter
	}
	rl.lastSeen[client] = now

	return limiter.Allow()
}

// Middleware rejects requests over the limit with 429. A nil limiter passes
// everything through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientAddr(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientAddr strips the port from RemoteAddr. chi's RealIP middleware has
// already applied X-Forwarded-For / X-Real-IP.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
