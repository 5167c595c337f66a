package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicfriend/roomstate/internal/domain"
)

func newTestStore() (*Store, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return New(30*time.Second, clock), clock
}

func TestStore_LastWriteWins(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.Apply(domain.StateUpdate{User: "a", Song: "X", Platform: "spotify"})
	require.NoError(t, err)
	_, err = s.Apply(domain.StateUpdate{User: "a", Song: "Y", Platform: "spotify"})
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Contains(t, snap, "a")
	assert.Equal(t, "Y", snap["a"].Song)
	assert.Len(t, snap, 1)
}

func TestStore_ApplyRequiresUser(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.Apply(domain.StateUpdate{Song: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidUpdate)
	assert.Empty(t, s.Snapshot())
}

func TestStore_ApplyDefaultsPlatform(t *testing.T) {
	s, _ := newTestStore()

	state, err := s.Apply(domain.StateUpdate{User: "a", Song: "X"})
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformUnknown, state.Platform)
}

func TestStore_ExpiryAfterThreshold(t *testing.T) {
	s, clock := newTestStore()

	_, err := s.Apply(domain.StateUpdate{User: "a", Song: "X"})
	require.NoError(t, err)

	// Exactly at the threshold the entry is still visible.
	clock.Advance(30 * time.Second)
	assert.Contains(t, s.Snapshot(), "a")

	clock.Advance(time.Second)
	assert.NotContains(t, s.Snapshot(), "a")
}

func TestStore_FreshUpdateResetsExpiry(t *testing.T) {
	s, clock := newTestStore()

	_, err := s.Apply(domain.StateUpdate{User: "a", Song: "X"})
	require.NoError(t, err)

	clock.Advance(25 * time.Second)
	_, err = s.Apply(domain.StateUpdate{User: "a", Song: "Y"})
	require.NoError(t, err)

	clock.Advance(25 * time.Second)
	snap := s.Snapshot()
	require.Contains(t, snap, "a")
	assert.Equal(t, "Y", snap["a"].Song)
}

func TestStore_SweepIsIdempotent(t *testing.T) {
	s, clock := newTestStore()

	_, err := s.Apply(domain.StateUpdate{User: "a", Song: "X"})
	require.NoError(t, err)
	_, err = s.Apply(domain.StateUpdate{User: "b", Song: "Y"})
	require.NoError(t, err)

	clock.Advance(31 * time.Second)
	s.Sweep()
	first := s.Snapshot()
	s.Sweep()
	second := s.Snapshot()

	assert.Equal(t, first, second)
	assert.Empty(t, second)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.Apply(domain.StateUpdate{User: "a", Song: "X"})
	require.NoError(t, err)

	snap := s.Snapshot()
	snap["intruder"] = domain.UserState{User: "intruder"}

	assert.NotContains(t, s.Snapshot(), "intruder")
}

func TestStore_ConcurrentApplies(t *testing.T) {
	s, _ := newTestStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			for n := 0; n < 100; n++ {
				_, err := s.Apply(domain.StateUpdate{User: user, Song: "X"})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.Snapshot(), 16)
}
