package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter drops a client's bucket once it has been quiet this long.
const idleAfter = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// JobRateLimiter restricts how frequently a single client
// can submit print jobs via WebSocket.
type JobRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	maxPerMin int
	lastSweep time.Time
	now       func() time.Time
}

// NewJobRateLimiter creates a limiter allowing maxPerMinute jobs per client,
// refilled evenly over the minute.
func NewJobRateLimiter(maxPerMinute int) *JobRateLimiter {
	if maxPerMinute <= 0 {
		maxPerMinute = 1
	}
	return &JobRateLimiter{
		clients:   make(map[string]*clientBucket),
		maxPerMin: maxPerMinute,
		now:       time.Now,
	}
}

// Allow returns true if the client has not exceeded the rate limit.
func (rl *JobRateLimiter) Allow(clientAddr string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.clients[clientAddr]
	if !ok {
		every := rate.Every(time.Minute / time.Duration(rl.maxPerMin))
		b = &clientBucket{limiter: rate.NewLimiter(every, rl.maxPerMin)}
		rl.clients[clientAddr] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Tracked returns how many clients currently hold a bucket.
func (rl *JobRateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *JobRateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < time.Minute {
		return
	}
	rl.lastSweep = now
	for k, b := range rl.clients {
		if now.Sub(b.lastSeen) > idleAfter {
			delete(rl.clients, k)
		}
	}
}
