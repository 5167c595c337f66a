package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicfriend/roomstate/internal/domain"
)

// --- Test doubles ---

type stubDetector struct {
	detection Detection
	playing   bool
	err       error
}

func (d *stubDetector) Current(context.Context) (Detection, bool, error) {
	return d.detection, d.playing, d.err
}

type spyTransport struct {
	mu   sync.Mutex
	sent []domain.StateUpdate
	err  error
}

func (t *spyTransport) Send(_ context.Context, update domain.StateUpdate) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, update)
	return nil
}

func (t *spyTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

type stubResolver struct {
	artURL string
	err    error
}

func (r *stubResolver) Resolve(context.Context, string, string) (string, error) {
	return r.artURL, r.err
}

func newTestPublisher(transport Transport) *Publisher {
	return New("rex", "spotify", transport, nil, clockwork.NewFakeClock(), time.Second)
}

// --- Tests ---

func TestPoll_PublishesDetection(t *testing.T) {
	transport := &spyTransport{}
	p := newTestPublisher(transport)
	detector := &stubDetector{detection: Detection{Song: "Foo", Artist: "Bar"}, playing: true}

	p.Poll(context.Background(), detector)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, domain.StateUpdate{User: "rex", Song: "Foo - Bar", Platform: "spotify"}, transport.sent[0])
}

func TestPoll_DedupsUnchangedSong(t *testing.T) {
	transport := &spyTransport{}
	p := newTestPublisher(transport)
	detector := &stubDetector{detection: Detection{Song: "Foo", Artist: "Bar"}, playing: true}

	p.Poll(context.Background(), detector)
	p.Poll(context.Background(), detector)
	p.Poll(context.Background(), detector)

	assert.Len(t, transport.sent, 1)
}

func TestPoll_SongChangeTriggersResend(t *testing.T) {
	transport := &spyTransport{}
	p := newTestPublisher(transport)
	detector := &stubDetector{detection: Detection{Song: "Foo", Artist: "Bar"}, playing: true}

	p.Poll(context.Background(), detector)
	detector.detection = Detection{Song: "Baz", Artist: "Qux"}
	p.Poll(context.Background(), detector)

	require.Len(t, transport.sent, 2)
	assert.Equal(t, "Baz - Qux", transport.sent[1].Song)
}

func TestPoll_NothingPlayingPublishesEmptySong(t *testing.T) {
	transport := &spyTransport{}
	p := newTestPublisher(transport)

	p.Poll(context.Background(), &stubDetector{detection: Detection{Song: "Foo", Artist: "Bar"}, playing: true})
	p.Poll(context.Background(), &stubDetector{playing: false})

	require.Len(t, transport.sent, 2)
	assert.Empty(t, transport.sent[1].Song)

	// Staying silent does not spam empty updates.
	p.Poll(context.Background(), &stubDetector{playing: false})
	assert.Len(t, transport.sent, 2)
}

func TestPoll_FirstCycleAlwaysSends(t *testing.T) {
	// A publisher that starts while nothing is playing still announces its
	// (empty) state once.
	transport := &spyTransport{}
	p := newTestPublisher(transport)

	p.Poll(context.Background(), &stubDetector{playing: false})

	require.Len(t, transport.sent, 1)
	assert.Empty(t, transport.sent[0].Song)
}

func TestPoll_TransportFailureRetriesNextCycle(t *testing.T) {
	transport := &spyTransport{err: errors.New("connection refused")}
	p := newTestPublisher(transport)
	detector := &stubDetector{detection: Detection{Song: "Foo", Artist: "Bar"}, playing: true}

	p.Poll(context.Background(), detector)
	assert.Empty(t, transport.sent)

	// The transport recovers; the same song goes out on the next cycle
	// because the failed send never counted as sent.
	transport.err = nil
	p.Poll(context.Background(), detector)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, "Foo - Bar", transport.sent[0].Song)
}

func TestPoll_DetectorErrorSkipsCycle(t *testing.T) {
	transport := &spyTransport{}
	p := newTestPublisher(transport)

	p.Poll(context.Background(), &stubDetector{err: errors.New("window not found")})

	assert.Empty(t, transport.sent)
}

func TestPoll_ResolvesArtwork(t *testing.T) {
	transport := &spyTransport{}
	p := New("rex", "netease", transport, &stubResolver{artURL: "https://img.example/c.jpg"}, clockwork.NewFakeClock(), time.Second)
	detector := &stubDetector{detection: Detection{Song: "Foo", Artist: "Bar"}, playing: true}

	p.Poll(context.Background(), detector)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, "https://img.example/c.jpg", transport.sent[0].ArtURL)
}

func TestPoll_ArtworkFailureStillPublishes(t *testing.T) {
	transport := &spyTransport{}
	p := New("rex", "netease", transport, &stubResolver{err: errors.New("circuit open")}, clockwork.NewFakeClock(), time.Second)
	detector := &stubDetector{detection: Detection{Song: "Foo", Artist: "Bar"}, playing: true}

	p.Poll(context.Background(), detector)

	require.Len(t, transport.sent, 1)
	assert.Empty(t, transport.sent[0].ArtURL)
}

func TestRun_PublishesOnTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	transport := &spyTransport{}
	p := New("rex", "spotify", transport, nil, clock, time.Second)
	detector := &stubDetector{detection: Detection{Song: "Foo", Artist: "Bar"}, playing: true}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, detector) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	require.Eventually(t, func() bool {
		return transport.count() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
