package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/amparo-saude/amparo-core/internal/care"
	"github.com/amparo-saude/amparo-core/internal/device"
	"github.com/amparo-saude/amparo-core/internal/event"
	"github.com/amparo-saude/amparo-core/internal/infrastructure/config"
	"github.com/amparo-saude/amparo-core/internal/infrastructure/logging"
	"github.com/amparo-saude/amparo-core/internal/pairing"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	Security    config.SecurityConfig
	Pairing     config.PairingConfig
	Logger      *logging.Logger
	Registry    *device.Registry
	Resolver    device.CredentialResolver
	Coordinator *pairing.Coordinator
	Pipeline    *event.Pipeline
	Events      event.Repository
	Links       care.Repository
	Version     string
}

// Server is the HTTP API server for Amparo Core.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	secCfg      config.SecurityConfig
	pairCfg     config.PairingConfig
	logger      *logging.Logger
	registry    *device.Registry
	resolver    device.CredentialResolver
	coordinator *pairing.Coordinator
	pipeline    *event.Pipeline
	events      event.Repository
	links       care.Repository
	version     string
	server      *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("credential resolver is required")
	}
	if deps.Coordinator == nil {
		return nil, fmt.Errorf("pairing coordinator is required")
	}
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("ingestion pipeline is required")
	}

	return &Server{
		cfg:         deps.Config,
		secCfg:      deps.Security,
		pairCfg:     deps.Pairing,
		logger:      deps.Logger,
		registry:    deps.Registry,
		resolver:    deps.Resolver,
		coordinator: deps.Coordinator,
		pipeline:    deps.Pipeline,
		events:      deps.Events,
		links:       deps.Links,
		version:     deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds
// for in-flight requests to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
