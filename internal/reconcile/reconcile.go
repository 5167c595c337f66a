// Package reconcile maps an unordered room snapshot onto a fixed grid of
// display slots without shuffling users between polls.
package reconcile

import (
	"sort"

	"github.com/musicfriend/roomstate/internal/domain"
)

// DefaultCapacity matches the 12-seat room grid viewers render by default.
const DefaultCapacity = 12

// Assignment is an ordered, fixed-capacity sequence of display slots. An
// empty string marks a vacant slot. Assignments are renderer-local and never
// shared between viewer instances.
type Assignment []string

// NewAssignment returns an all-vacant assignment with the given capacity.
func NewAssignment(capacity int) Assignment {
	return make(Assignment, capacity)
}

// SlotOf returns the slot index occupied by user, or false if unseated.
func (a Assignment) SlotOf(user string) (int, bool) {
	for i, occupant := range a {
		if occupant != "" && occupant == user {
			return i, true
		}
	}
	return 0, false
}

// Occupied reports the number of non-vacant slots.
func (a Assignment) Occupied() int {
	n := 0
	for _, occupant := range a {
		if occupant != "" {
			n++
		}
	}
	return n
}

// Reconcile computes the next assignment from the previous one and a fresh
// snapshot. Users keep their slot while present, departed users' slots are
// cleared, and newcomers fill the lowest vacant slots in lexicographic order
// so placement is reproducible. When the snapshot holds more users than prev
// has slots, prev is returned unchanged with domain.ErrCapacityExceeded.
func Reconcile(prev Assignment, snapshot map[string]domain.UserState) (Assignment, error) {
	if len(snapshot) > len(prev) {
		return prev, domain.ErrCapacityExceeded
	}

	next := make(Assignment, len(prev))
	seated := make(map[string]bool, len(snapshot))
	for i, occupant := range prev {
		if occupant == "" {
			continue
		}
		if _, present := snapshot[occupant]; present && !seated[occupant] {
			next[i] = occupant
			seated[occupant] = true
		}
	}

	arrivals := make([]string, 0, len(snapshot))
	for user := range snapshot {
		if !seated[user] {
			arrivals = append(arrivals, user)
		}
	}
	sort.Strings(arrivals)

	slot := 0
	for _, user := range arrivals {
		for next[slot] != "" {
			slot++
		}
		next[slot] = user
		slot++
	}

	return next, nil
}
