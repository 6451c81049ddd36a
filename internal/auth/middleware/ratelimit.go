package auth

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per client key (the remote IP).
// Keys are kept in a bounded LRU so a flood of addresses cannot grow memory without limit.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	every    rate.Limit
	burst    int
}

// NewLoginLimiter allows perMinute attempts per key with a burst of the same size.
// perMinute <= 0 disables limiting.
func NewLoginLimiter(perMinute, maxKeys int) *LoginLimiter {
	if maxKeys <= 0 {
		maxKeys = 10_000
	}
	c, _ := lru.New[string, *rate.Limiter](maxKeys)
	l := &LoginLimiter{limiters: c, burst: perMinute}
	if perMinute > 0 {
		l.every = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return l
}

func (l *LoginLimiter) Allow(key string) bool {
	if l == nil || l.burst <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters.Add(key, lim)
	}
	l.mu.Unlock()
	return lim.Allow()
}
