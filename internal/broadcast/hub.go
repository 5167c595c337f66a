package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/musicfriend/roomstate/internal/domain"
	"github.com/musicfriend/roomstate/internal/metrics"
)

// EventSongUpdate is the only payload-carrying event on the push transport.
const EventSongUpdate = "song_update"

// Envelope is the wire frame exchanged on the push transport.
type Envelope struct {
	Event string             `json:"event"`
	Data  domain.StateUpdate `json:"data"`
}

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	conn  *websocket.Conn
	errCh chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	conn *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	data []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	replyCh chan int
}

func (cmdClientCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Hub ---

// Hub owns the set of connected push subscribers. All mutation happens on the
// run goroutine; the exported methods only send commands.
type Hub struct {
	cmdCh      chan hubCmd
	clients    map[*websocket.Conn]*clientWriter
	clock      clockwork.Clock
	maxClients int
	done       chan struct{}
}

// NewHub creates a hub and starts its command loop. maxClients caps the
// subscriber set; further registrations are rejected.
func NewHub(clock clockwork.Clock, maxClients int) *Hub {
	h := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		clients:    make(map[*websocket.Conn]*clientWriter),
		clock:      clock,
		maxClients: maxClients,
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.conn)
		case cmdBroadcast:
			h.handleBroadcast(c.data)
		case cmdClientCount:
			c.replyCh <- len(h.clients)
		case cmdStop:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting subscriber: max clients reached", "max_clients", h.maxClients)
		c.conn.Close()
		c.errCh <- fmt.Errorf("max clients (%d) reached", h.maxClients)
		return
	}

	h.clients[c.conn] = newClientWriter(c.conn, h.clock)
	metrics.HubConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("Subscriber registered", "total_clients", len(h.clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, exists := h.clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, conn)
	metrics.HubConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("Subscriber unregistered", "remaining_clients", len(h.clients))
}

func (h *Hub) handleBroadcast(data []byte) {
	// Fan out to every subscriber, the originator included. There is no
	// replay: a disconnected subscriber catches up via the pull snapshot.
	var slow []*websocket.Conn
	for conn, cw := range h.clients {
		select {
		case cw.sendCh <- data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow subscriber")
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(conn)
	}

	metrics.HubBroadcastsTotal.Inc()
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "clients", len(h.clients))
	for conn, cw := range h.clients {
		cw.stopGraceful("server shutting down")
		delete(h.clients, conn)
	}
	metrics.HubConnectedClients.Set(0)
}

// --- Public API ---

// Register adds a subscriber connection. Blocks until the hub accepts or
// rejects it. Returns an error after the hub has stopped.
func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	select {
	case h.cmdCh <- cmdRegister{conn: conn, errCh: errCh}:
	case <-h.done:
		return fmt.Errorf("hub stopped")
	}
	select {
	case err := <-errCh:
		return err
	case <-h.done:
		return fmt.Errorf("hub stopped")
	}
}

// Unregister removes a subscriber connection and stops its writer.
func (h *Hub) Unregister(conn *websocket.Conn) {
	select {
	case h.cmdCh <- cmdUnregister{conn: conn}:
	case <-h.done:
	}
}

// Broadcast fans an accepted update out to every connected subscriber as a
// song_update envelope.
func (h *Hub) Broadcast(update domain.StateUpdate) {
	data, err := json.Marshal(Envelope{Event: EventSongUpdate, Data: update})
	if err != nil {
		slog.Error("Failed to marshal broadcast envelope", "error", err)
		return
	}
	select {
	case h.cmdCh <- cmdBroadcast{data: data}:
	case <-h.done:
	}
}

// ClientCount returns the number of connected subscribers, or zero after the
// hub has stopped.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	select {
	case h.cmdCh <- cmdClientCount{replyCh: replyCh}:
	case <-h.done:
		return 0
	}
	select {
	case count := <-replyCh:
		return count
	case <-h.done:
		return 0
	}
}

// Stop closes all subscriber connections and terminates the command loop.
// Blocks until the run goroutine has exited; safe to call more than once.
func (h *Hub) Stop() {
	select {
	case h.cmdCh <- cmdStop{}:
	case <-h.done:
		return
	}
	<-h.done
}
