// Package relay shares accepted updates across server instances via Redis
// pub/sub.
//
// Each instance tags outgoing messages with its own ID and ignores its own
// messages on the subscribe side, so an update fans out to the subscribers of
// every instance exactly once.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/musicfriend/roomstate/internal/domain"
	"github.com/musicfriend/roomstate/internal/metrics"
)

// Channel is the Redis pub/sub channel carrying room state updates.
const Channel = "roomstate:updates"

type envelope struct {
	Origin string             `json:"origin"`
	Update domain.StateUpdate `json:"update"`
}

// Relay bridges the local store and hub to other instances.
type Relay struct {
	rdb        *redis.Client
	instanceID string
	apply      func(domain.StateUpdate)
}

// New creates a relay. apply is invoked for every update received from
// another instance; it should write to the local store and fan out to local
// subscribers, but must not publish back to the relay.
func New(rdb *redis.Client, apply func(domain.StateUpdate)) *Relay {
	return &Relay{
		rdb:        rdb,
		instanceID: uuid.NewString(),
		apply:      apply,
	}
}

// Publish broadcasts a locally accepted update to all other instances.
func (r *Relay) Publish(ctx context.Context, update domain.StateUpdate) error {
	data, err := json.Marshal(envelope{Origin: r.instanceID, Update: update})
	if err != nil {
		return fmt.Errorf("marshal relay envelope: %w", err)
	}
	if err := r.rdb.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("publish relay message: %w", err)
	}
	metrics.RelayMessagesPublished.Inc()
	return nil
}

// Start subscribes to the relay channel and applies remote updates until ctx
// is cancelled. Blocks; run it on its own goroutine.
func (r *Relay) Start(ctx context.Context) {
	pubsub := r.rdb.Subscribe(ctx, Channel)
	defer func() {
		_ = pubsub.Close()
	}()

	slog.Info("Relay subscribed", "channel", Channel, "instance_id", r.instanceID)

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handleMessage(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

// handleMessage applies a single relay payload unless it originated here or
// is malformed.
func (r *Relay) handleMessage(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		metrics.RelayMessagesSkipped.Inc()
		slog.Warn("Dropping malformed relay message", "error", err)
		return
	}
	if env.Origin == r.instanceID {
		metrics.RelayMessagesSkipped.Inc()
		return
	}

	r.apply(env.Update)
	metrics.RelayMessagesApplied.Inc()
	slog.Debug("Applied relayed update", "user", env.Update.User, "origin", env.Origin)
}
