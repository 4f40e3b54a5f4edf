// Package server wires the echo instance, its middleware and the API routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"kigogo-backend/internal/config"
	"kigogo-backend/internal/handler"
)

// Server wraps the echo instance with application dependencies.
type Server struct {
	echo *echo.Echo
	cfg  *config.Config

	accountHandler  *handler.AccountHandler
	withdrawHandler *handler.WithdrawHandler
	healthHandler   *handler.HealthHandler
}

// Dependencies holds everything the HTTP handlers need.
type Dependencies struct {
	Config            *config.Config
	AccountService    handler.AccountService
	WithdrawalService handler.WithdrawalService
	DB                handler.Pinger
}

// New creates a new Server with middleware and routes registered.
func New(deps *Dependencies) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.AccountService == nil || deps.WithdrawalService == nil || deps.DB == nil {
		return nil, fmt.Errorf("account service, withdrawal service and database are required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:            e,
		cfg:             deps.Config,
		accountHandler:  handler.NewAccountHandler(deps.AccountService),
		withdrawHandler: handler.NewWithdrawHandler(deps.WithdrawalService),
		healthHandler:   handler.NewHealthHandler(deps.DB),
	}

	s.registerMiddleware()
	s.registerRoutes()

	return s, nil
}

// registerMiddleware registers all middleware.
func (s *Server) registerMiddleware() {
	s.echo.Use(RecoveryMiddleware())
	s.echo.Use(RequestIDMiddleware())
	s.echo.Use(LoggingMiddleware())
	s.echo.Use(CORSMiddleware(s.cfg.Server.CORSOrigins))

	if s.cfg.RateLimit.RPS > 0 {
		s.echo.Use(RateLimitMiddleware(&s.cfg.RateLimit))
	}
}

// registerRoutes registers the API routes.
func (s *Server) registerRoutes() {
	s.echo.GET("/", s.accountHandler.Home)
	s.echo.GET("/all-users", s.accountHandler.AllUsers)
	s.echo.POST("/register", s.accountHandler.Register)
	s.echo.POST("/login", s.accountHandler.Login)
	s.echo.POST("/withdraw", s.withdrawHandler.Withdraw)
	s.echo.GET("/health", s.healthHandler.Health)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured port and blocks until the server stops.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	addr := s.cfg.Server.Address()
	log.Info().Str("addr", addr).Msg("HTTP server listening")

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	log.Info().Msg("HTTP server stopped")
	return nil
}
