package main

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	rateLimitPruneInterval = time.Minute
	rateLimitIdleTimeout   = 3 * time.Minute
)

// clientLimiter holds one token bucket per client IP. A single instance is shared by every
// route wrapped in rateLimit.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*limitedClient
	limit   rate.Limit
	burst   int
}

type limitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		clients: make(map[string]*limitedClient),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

func (l *clientLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, found := l.clients[ip]
	if !found {
		c = &limitedClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

// prune forgets clients not seen since cutoff and returns how many were dropped.
func (l *clientLimiter) prune(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
			n++
		}
	}

	return n
}

func (l *clientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.clients)
}

// run prunes idle clients every interval until ctx is done.
func (l *clientLimiter) run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.prune(now.Add(-idle))
		}
	}
}

// rateLimiter returns the application's shared limiter, creating it on first use.
func (app *application) rateLimiter() *clientLimiter {
	app.limiterOnce.Do(func() {
		app.limiter = newClientLimiter(app.config.RateLimit.RPS, app.config.RateLimit.Burst)
	})

	return app.limiter
}
