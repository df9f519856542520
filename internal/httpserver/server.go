// Package httpserver is the presentation layer: a local HTTP/WebSocket
// surface that reads the session snapshot and forwards sign-out requests. It
// never mutates the snapshot directly.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shreyansh232/plandrift/internal/domain"
	"github.com/shreyansh232/plandrift/internal/platform/config"
)

// sessionController is the slice of the controller the presentation layer
// consumes: read the snapshot, watch changes, request sign-out.
type sessionController interface {
	Snapshot() domain.Snapshot
	SignOut(ctx context.Context)
	Watch() (<-chan domain.Snapshot, func())
}

type Server struct {
	echo       *echo.Echo
	config     *config.Config
	controller sessionController
	hub        *Hub

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, controller sessionController, hub *Hub, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		controller:   controller,
		hub:          hub,
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
