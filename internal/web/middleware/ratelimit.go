package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// errRateLimited maps to the RATE001 user message.
var errRateLimited = errors.New("rate limit exceeded")

// RateLimitConfig holds the per-client token bucket settings.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate (tokens added per second).
	RequestsPerSecond float64
	// Burst is the bucket size.
	Burst int
}

// Idle clients are forgotten after clientIdleTTL; the table is swept every
// cleanupInterval.
const (
	cleanupInterval = 5 * time.Minute
	clientIdleTTL   = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientTable holds one token bucket per client.
type clientTable struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func newClientTable(cfg RateLimitConfig) *clientTable {
	return &clientTable{cfg: cfg, clients: make(map[string]*clientLimiter)}
}

func (c *clientTable) get(ip string, now time.Time) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(c.cfg.RequestsPerSecond), c.cfg.Burst)}
		c.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// sweep drops clients not seen within ttl of now.
func (c *clientTable) sweep(now time.Time, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ip, cl := range c.clients {
		if now.Sub(cl.lastSeen) > ttl {
			delete(c.clients, ip)
		}
	}
}

func (c *clientTable) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// cleanup sweeps the table every interval until ctx is done.
func (c *clientTable) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.sweep(now, clientIdleTTL)
		}
	}
}

// RateLimiter returns middleware enforcing a per-client token bucket keyed by
// RemoteAddr. Mount it after TrustedRealIP so proxied clients are told apart.
// Rejected requests get 429 with a Retry-After header. Idle clients are
// swept in the background until ctx is done.
func RateLimiter(ctx context.Context, cfg RateLimitConfig) func(http.Handler) http.Handler {
	clients := newClientTable(cfg)
	go clients.cleanup(ctx, cleanupInterval)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := clients.get(clientIP(r), time.Now())

			reservation := limiter.Reserve()
			if !reservation.OK() {
				writeError(w, http.StatusTooManyRequests, errRateLimited)
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				w.Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
				writeError(w, http.StatusTooManyRequests, errRateLimited)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
