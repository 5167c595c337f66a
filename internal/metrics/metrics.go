// Package metrics defines the Prometheus metrics for the room state service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store metrics
var (
	// RoomActiveUsers tracks the number of users currently visible in the room.
	RoomActiveUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "room_active_users",
			Help: "Number of users currently visible in the room state",
		},
	)

	// UpdatesAppliedTotal tracks accepted state updates by transport.
	UpdatesAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_updates_applied_total",
			Help: "Accepted state updates by transport",
		},
		[]string{"transport"},
	)

	// UpdatesRejectedTotal tracks rejected state updates by reason.
	UpdatesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_updates_rejected_total",
			Help: "Rejected state updates by reason",
		},
		[]string{"reason"},
	)

	// UsersExpiredTotal tracks users removed by the inactivity sweep.
	UsersExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "room_users_expired_total",
			Help: "Users removed from the room by the inactivity sweep",
		},
	)
)

// Broadcast hub metrics
var (
	// HubConnectedClients tracks currently connected push subscribers.
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Currently connected WebSocket subscribers",
		},
	)

	// HubBroadcastsTotal tracks fan-out rounds executed by the hub.
	HubBroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Broadcast fan-out rounds executed by the hub",
		},
	)

	// HubSlowClientsEvicted tracks subscribers dropped for full send buffers.
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Subscribers dropped because their send buffer was full",
		},
	)
)

// Relay metrics
var (
	// RelayMessagesPublished tracks updates published to the Redis relay channel.
	RelayMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_published_total",
			Help: "Updates published to the Redis relay channel",
		},
	)

	// RelayMessagesApplied tracks remote updates applied from the relay channel.
	RelayMessagesApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_applied_total",
			Help: "Remote updates applied from the Redis relay channel",
		},
	)

	// RelayMessagesSkipped tracks relay messages dropped as self-originated or malformed.
	RelayMessagesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_skipped_total",
			Help: "Relay messages dropped as self-originated or malformed",
		},
	)
)

// Publisher metrics
var (
	// PublisherSendsTotal tracks publish attempts by outcome.
	PublisherSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publisher_sends_total",
			Help: "Publish attempts by outcome (ok, error, deduped)",
		},
		[]string{"outcome"},
	)

	// ArtworkLookupsTotal tracks cover art lookups by outcome.
	ArtworkLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artwork_lookups_total",
			Help: "Cover art lookups by outcome (ok, miss, error)",
		},
		[]string{"outcome"},
	)
)
