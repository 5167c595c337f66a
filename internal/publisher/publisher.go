package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/musicfriend/roomstate/internal/artwork"
	"github.com/musicfriend/roomstate/internal/domain"
	"github.com/musicfriend/roomstate/internal/metrics"
)

const (
	// DefaultPollInterval matches the detector cadence of the desktop clients.
	DefaultPollInterval = 5 * time.Second

	sendTimeout = 7 * time.Second
)

// Publisher publishes one user's now-playing state over a transport.
type Publisher struct {
	user      string
	platform  string
	transport Transport
	resolver  artwork.Resolver
	clock     clockwork.Clock
	interval  time.Duration

	lastSent string
	sentOnce bool
}

// New creates a publisher for user on platform. resolver may be nil when no
// artwork enrichment is wanted.
func New(user, platform string, transport Transport, resolver artwork.Resolver, clock clockwork.Clock, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Publisher{
		user:      user,
		platform:  platform,
		transport: transport,
		resolver:  resolver,
		clock:     clock,
		interval:  interval,
	}
}

// Run polls the detector until ctx is cancelled, publishing on every song
// change.
func (p *Publisher) Run(ctx context.Context, detector Detector) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			p.Poll(ctx, detector)
		}
	}
}

// Poll runs one detection cycle: query the detector, publish if the song
// changed. Detector errors are logged and skipped; the next cycle retries.
func (p *Publisher) Poll(ctx context.Context, detector Detector) {
	detection, playing, err := detector.Current(ctx)
	if err != nil {
		slog.Warn("Detector failed, skipping cycle", "error", err)
		return
	}

	song := ""
	if playing {
		song = detection.Song
		if detection.Artist != "" {
			song = detection.Song + " - " + detection.Artist
		}
	}

	// Dedup on the song string since the last successful send. A failed
	// send leaves lastSent untouched, so the next cycle retries with fresh
	// data - there is no retry queue.
	if p.sentOnce && song == p.lastSent {
		metrics.PublisherSendsTotal.WithLabelValues("deduped").Inc()
		return
	}

	update := domain.StateUpdate{
		User:     p.user,
		Song:     song,
		Platform: p.platform,
	}
	if song != "" && p.resolver != nil {
		artURL, err := p.resolver.Resolve(ctx, detection.Song, detection.Artist)
		if err != nil {
			slog.Debug("Artwork lookup failed", "error", err)
		}
		update.ArtURL = artURL
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	err = p.transport.Send(sendCtx, update)
	cancel()
	if err != nil {
		metrics.PublisherSendsTotal.WithLabelValues("error").Inc()
		slog.Warn("Update dropped, will retry next cycle", "error", err, "song", song)
		return
	}

	metrics.PublisherSendsTotal.WithLabelValues("ok").Inc()
	p.lastSent = song
	p.sentOnce = true
	slog.Debug("Update sent", "user", p.user, "song", song)
}
