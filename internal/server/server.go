package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/musicfriend/roomstate/internal/broadcast"
	"github.com/musicfriend/roomstate/internal/config"
	"github.com/musicfriend/roomstate/internal/correlation"
	"github.com/musicfriend/roomstate/internal/domain"
	"github.com/musicfriend/roomstate/internal/store"
)

// UpdateRelay forwards locally accepted updates to other server instances.
// Implemented by relay.Relay; nil when no relay is configured.
type UpdateRelay interface {
	Publish(ctx context.Context, update domain.StateUpdate) error
}

type Server struct {
	echo     *echo.Echo
	config   *config.Config
	store    *store.Store
	hub      *broadcast.Hub
	relay    UpdateRelay
	limiter  *userLimiter
	upgrader websocket.Upgrader
}

// NewServer wires the transports around the store. hub may be nil when the
// push transport is disabled; relay may be nil when running single-instance.
func NewServer(cfg *config.Config, st *store.Store, hub *broadcast.Hub, relay UpdateRelay) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestIDMiddleware())

	srv := &Server{
		echo:    e,
		config:  cfg,
		store:   st,
		hub:     hub,
		relay:   relay,
		limiter: newUserLimiter(cfg.UpdateRateLimit),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	srv.registerRoutes()
	return srv
}

// requestIDMiddleware stamps each request with a correlation ID so slog lines
// from one request can be tied together.
func requestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = correlation.NewID()
			}
			ctx := correlation.WithID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port,
		"pull", s.config.EnablePull, "push", s.config.EnablePush)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
