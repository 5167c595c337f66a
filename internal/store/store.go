package store

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/musicfriend/roomstate/internal/domain"
	"github.com/musicfriend/roomstate/internal/metrics"
)

// DefaultInactiveThreshold is how long a user stays visible without a fresh
// update.
const DefaultInactiveThreshold = 30 * time.Second

// Store holds the latest state per user behind a read-write mutex. All access
// goes through Apply, Sweep, and Snapshot; the internal map is never handed
// out by reference.
type Store struct {
	mu        sync.RWMutex
	users     map[string]domain.UserState
	threshold time.Duration
	clock     clockwork.Clock
}

// New creates a store with the given inactivity threshold. A non-positive
// threshold falls back to the default.
func New(threshold time.Duration, clock clockwork.Clock) *Store {
	if threshold <= 0 {
		threshold = DefaultInactiveThreshold
	}
	return &Store{
		users:     make(map[string]domain.UserState),
		threshold: threshold,
		clock:     clock,
	}
}

// Apply upserts the state for update.User, stamping LastSeen with the current
// time. The whole record is replaced; last write wins. Returns the applied
// state, or domain.ErrInvalidUpdate when the user identity is missing.
func (s *Store) Apply(update domain.StateUpdate) (domain.UserState, error) {
	if update.User == "" {
		return domain.UserState{}, domain.ErrInvalidUpdate
	}

	state := domain.UserState{
		User:     update.User,
		Song:     update.Song,
		Platform: update.Platform,
		ArtURL:   update.ArtURL,
		LastSeen: s.clock.Now(),
	}
	if state.Platform == "" {
		state.Platform = domain.PlatformUnknown
	}

	s.mu.Lock()
	s.users[update.User] = state
	metrics.RoomActiveUsers.Set(float64(len(s.users)))
	s.mu.Unlock()

	return state, nil
}

// Sweep removes every entry whose age exceeds the inactivity threshold.
// Idempotent; safe to call at any frequency.
func (s *Store) Sweep() {
	s.mu.Lock()
	s.sweepLocked(s.clock.Now())
	s.mu.Unlock()
}

func (s *Store) sweepLocked(now time.Time) {
	for user, state := range s.users {
		if now.Sub(state.LastSeen) > s.threshold {
			delete(s.users, user)
			metrics.UsersExpiredTotal.Inc()
		}
	}
	metrics.RoomActiveUsers.Set(float64(len(s.users)))
}

// Snapshot sweeps expired entries and returns a point-in-time copy of the
// room. The returned map is owned by the caller.
func (s *Store) Snapshot() map[string]domain.UserState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.clock.Now())

	snapshot := make(map[string]domain.UserState, len(s.users))
	for user, state := range s.users {
		snapshot[user] = state
	}
	return snapshot
}

// Len reports the number of stored entries, including ones not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
