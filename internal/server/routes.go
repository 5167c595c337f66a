package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Pull transport
	if s.config.EnablePull {
		s.echo.POST("/update_state", s.handleUpdateState)
		s.echo.GET("/get_state", s.handleGetState)
	}

	// Push transport
	if s.config.EnablePush {
		s.echo.GET("/ws", s.handleWebSocket)
	}
}
