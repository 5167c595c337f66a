package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterBurst    = 3
	maxTrackedUsers = 1024
	limiterPruneAge = 10 * time.Minute
)

// userLimiter rate-limits state updates per user identity. Identities are
// unauthenticated, so the map is pruned to bound memory against churn.
type userLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUserLimiter(perSecond float64) *userLimiter {
	return &userLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(perSecond),
	}
}

// Allow reports whether user may publish another update now.
func (ul *userLimiter) Allow(user string) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	now := time.Now()

	entry, exists := ul.entries[user]
	if !exists {
		if len(ul.entries) >= maxTrackedUsers {
			ul.pruneLocked(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(ul.limit, limiterBurst)}
		ul.entries[user] = entry
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}

func (ul *userLimiter) pruneLocked(now time.Time) {
	for user, entry := range ul.entries {
		if now.Sub(entry.lastSeen) > limiterPruneAge {
			delete(ul.entries, user)
		}
	}
}
