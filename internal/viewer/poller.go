// Package viewer implements the pull-side consumer: poll the snapshot,
// reconcile it into display slots, hand the result to a renderer.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/musicfriend/roomstate/internal/domain"
	"github.com/musicfriend/roomstate/internal/reconcile"
)

// DefaultPollInterval matches the desktop clients' fetch cadence.
const DefaultPollInterval = 5 * time.Second

const fetchTimeout = 5 * time.Second

// Renderer turns a display assignment into pixels. Implementations receive
// the full assignment on every poll; slots for unchanged users repeat.
type Renderer interface {
	Render(assignment reconcile.Assignment, states map[string]domain.UserState)
}

// userStateWire mirrors the /get_state response entry.
type userStateWire struct {
	Song     string  `json:"song"`
	Platform string  `json:"platform"`
	ArtURL   *string `json:"artUrl"`
	LastSeen int64   `json:"lastSeen"`
}

// Poller drives the poll-and-reconcile loop for one viewer.
type Poller struct {
	url        string
	client     *http.Client
	renderer   Renderer
	clock      clockwork.Clock
	interval   time.Duration
	assignment reconcile.Assignment
}

// NewPoller creates a poller against baseURL with the given seat capacity.
func NewPoller(baseURL string, capacity int, renderer Renderer, clock clockwork.Clock, interval time.Duration) *Poller {
	if capacity <= 0 {
		capacity = reconcile.DefaultCapacity
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		url:        strings.TrimSuffix(baseURL, "/") + "/get_state",
		client:     &http.Client{Timeout: fetchTimeout},
		renderer:   renderer,
		clock:      clock,
		interval:   interval,
		assignment: reconcile.NewAssignment(capacity),
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			p.Poll(ctx)
		}
	}
}

// Poll runs one fetch-reconcile-render cycle. Transport failures keep the
// last rendered state; the next cycle retries.
func (p *Poller) Poll(ctx context.Context) {
	snapshot, err := p.fetch(ctx)
	if err != nil {
		slog.Warn("Snapshot fetch failed, keeping last state", "error", err)
		return
	}

	next, err := reconcile.Reconcile(p.assignment, snapshot)
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			// Never drop a user silently: keep the previous assignment on
			// screen and say why.
			slog.Warn("Room exceeds seat capacity, keeping last assignment",
				"present", len(snapshot), "capacity", len(p.assignment))
			return
		}
		slog.Error("Reconcile failed", "error", err)
		return
	}

	p.assignment = next
	p.renderer.Render(next, snapshot)
}

func (p *Poller) fetch(ctx context.Context) (map[string]domain.UserState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot returned %d", resp.StatusCode)
	}

	var wire map[string]userStateWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	snapshot := make(map[string]domain.UserState, len(wire))
	for user, entry := range wire {
		state := domain.UserState{
			User:     user,
			Song:     entry.Song,
			Platform: entry.Platform,
			LastSeen: time.Unix(entry.LastSeen, 0),
		}
		if entry.ArtURL != nil {
			state.ArtURL = *entry.ArtURL
		}
		snapshot[user] = state
	}
	return snapshot, nil
}
