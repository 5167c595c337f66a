package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/musicfriend/roomstate/internal/broadcast"
	"github.com/musicfriend/roomstate/internal/domain"
	"github.com/musicfriend/roomstate/internal/metrics"
)

// --- Wire types ---

type updateRequest struct {
	User     string  `json:"user"`
	Song     string  `json:"song"`
	Platform string  `json:"platform"`
	ArtURL   *string `json:"artUrl"`
}

func (r updateRequest) toDomain() domain.StateUpdate {
	update := domain.StateUpdate{
		User:     r.User,
		Song:     r.Song,
		Platform: r.Platform,
	}
	if r.ArtURL != nil {
		update.ArtURL = *r.ArtURL
	}
	return update
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type userStateResponse struct {
	Song     string  `json:"song"`
	Platform string  `json:"platform"`
	ArtURL   *string `json:"artUrl"`
	LastSeen int64   `json:"lastSeen"`
}

func toUserStateResponse(state domain.UserState) userStateResponse {
	resp := userStateResponse{
		Song:     state.Song,
		Platform: state.Platform,
		LastSeen: state.LastSeen.Unix(),
	}
	if state.ArtURL != "" {
		resp.ArtURL = &state.ArtURL
	}
	return resp
}

// --- Pull transport ---

func (s *Server) handleUpdateState(c echo.Context) error {
	var req updateRequest
	if err := c.Bind(&req); err != nil || req.User == "" {
		metrics.UpdatesRejectedTotal.WithLabelValues("invalid").Inc()
		return c.JSON(http.StatusBadRequest, statusResponse{Status: "error", Message: "Invalid data"})
	}

	if !s.limiter.Allow(req.User) {
		metrics.UpdatesRejectedTotal.WithLabelValues("rate_limited").Inc()
		return c.JSON(http.StatusTooManyRequests, statusResponse{Status: "error", Message: "Too many updates"})
	}

	ctx := c.Request().Context()
	if err := s.acceptUpdate(ctx, req.toDomain(), "http"); err != nil {
		metrics.UpdatesRejectedTotal.WithLabelValues("invalid").Inc()
		return c.JSON(http.StatusBadRequest, statusResponse{Status: "error", Message: "Invalid data"})
	}

	slog.DebugContext(ctx, "State update accepted",
		"user", req.User, "platform", req.Platform, "song", req.Song)
	return c.JSON(http.StatusOK, statusResponse{Status: "success"})
}

func (s *Server) handleGetState(c echo.Context) error {
	snapshot := s.store.Snapshot()

	response := make(map[string]userStateResponse, len(snapshot))
	for user, state := range snapshot {
		response[user] = toUserStateResponse(state)
	}
	return c.JSON(http.StatusOK, response)
}

// acceptUpdate applies an update to the store, then fans it out to push
// subscribers and the cross-instance relay. Relay failures are logged and
// dropped; the local state is already authoritative.
func (s *Server) acceptUpdate(ctx context.Context, update domain.StateUpdate, transport string) error {
	if _, err := s.store.Apply(update); err != nil {
		return err
	}
	metrics.UpdatesAppliedTotal.WithLabelValues(transport).Inc()

	if s.hub != nil {
		s.hub.Broadcast(update)
	}
	if s.relay != nil {
		if err := s.relay.Publish(ctx, update); err != nil {
			slog.ErrorContext(ctx, "Relay publish failed", "error", err)
		}
	}
	return nil
}

// --- Push transport ---

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return nil
	}

	if err := s.hub.Register(conn); err != nil {
		// Connection already closed by the hub on rejection.
		slog.Warn("WebSocket registration rejected", "error", err)
		return nil
	}

	ctx := c.Request().Context()

	// Read pump: publishers send song_update envelopes on the same
	// connection they subscribe on. Blocks until disconnect.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.handlePushMessage(ctx, data)
	}

	s.hub.Unregister(conn)
	return nil
}

// handlePushMessage normalizes an inbound push frame into a store update.
// Malformed frames are logged and dropped; the connection stays open.
func (s *Server) handlePushMessage(ctx context.Context, data []byte) {
	var env broadcast.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		metrics.UpdatesRejectedTotal.WithLabelValues("malformed").Inc()
		slog.WarnContext(ctx, "Dropping malformed push frame", "error", err)
		return
	}
	if env.Event != broadcast.EventSongUpdate {
		return
	}

	if err := s.acceptUpdate(ctx, env.Data, "ws"); err != nil {
		if errors.Is(err, domain.ErrInvalidUpdate) {
			metrics.UpdatesRejectedTotal.WithLabelValues("invalid").Inc()
		}
		slog.WarnContext(ctx, "Dropping invalid push update", "error", err)
	}
}

// --- Health ---

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ready := map[string]any{
		"status":       "ok",
		"active_users": s.store.Len(),
	}
	if s.hub != nil {
		ready["connected_clients"] = s.hub.ClientCount()
	}
	return c.JSON(http.StatusOK, ready)
}
