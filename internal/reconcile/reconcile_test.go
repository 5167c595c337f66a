package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicfriend/roomstate/internal/domain"
)

func snapshotOf(users ...string) map[string]domain.UserState {
	snap := make(map[string]domain.UserState, len(users))
	for _, user := range users {
		snap[user] = domain.UserState{User: user, Song: "X"}
	}
	return snap
}

func TestReconcile_SlotStability(t *testing.T) {
	prev := Assignment{"a", "b", "", ""}

	next, err := Reconcile(prev, snapshotOf("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, Assignment{"a", "b", "c", ""}, next)
}

func TestReconcile_DepartureClearsSlot(t *testing.T) {
	prev := Assignment{"a", "b"}

	next, err := Reconcile(prev, snapshotOf("a"))
	require.NoError(t, err)

	assert.Equal(t, Assignment{"a", ""}, next)
}

func TestReconcile_NewcomerTakesLowestFreeSlot(t *testing.T) {
	// Slot 0 freed by a departure; the newcomer takes it even though
	// higher slots are also free.
	prev := Assignment{"a", "b", "", ""}

	next, err := Reconcile(prev, snapshotOf("b", "c"))
	require.NoError(t, err)

	assert.Equal(t, Assignment{"c", "b", "", ""}, next)
}

func TestReconcile_ArrivalsPlacedLexicographically(t *testing.T) {
	prev := NewAssignment(4)

	next, err := Reconcile(prev, snapshotOf("carol", "alice", "bob"))
	require.NoError(t, err)

	assert.Equal(t, Assignment{"alice", "bob", "carol", ""}, next)
}

func TestReconcile_CapacityExceeded(t *testing.T) {
	prev := Assignment{"a", "b", "c", "d"}

	next, err := Reconcile(prev, snapshotOf("a", "b", "c", "d", "e"))
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Equal(t, prev, next, "assignment must be unchanged on overflow")
}

func TestReconcile_EmptySnapshotClearsAll(t *testing.T) {
	prev := Assignment{"a", "b", ""}

	next, err := Reconcile(prev, nil)
	require.NoError(t, err)

	assert.Equal(t, Assignment{"", "", ""}, next)
}

func TestReconcile_DoesNotMutatePrev(t *testing.T) {
	prev := Assignment{"a", "b", ""}

	_, err := Reconcile(prev, snapshotOf("b", "c"))
	require.NoError(t, err)

	assert.Equal(t, Assignment{"a", "b", ""}, prev)
}

func TestAssignment_SlotOf(t *testing.T) {
	a := Assignment{"", "b", ""}

	slot, ok := a.SlotOf("b")
	require.True(t, ok)
	assert.Equal(t, 1, slot)

	_, ok = a.SlotOf("missing")
	assert.False(t, ok)

	_, ok = a.SlotOf("")
	assert.False(t, ok, "vacant slots must not match the empty user")
}

func TestAssignment_Occupied(t *testing.T) {
	assert.Equal(t, 0, NewAssignment(3).Occupied())
	assert.Equal(t, 2, Assignment{"a", "", "b"}.Occupied())
}
