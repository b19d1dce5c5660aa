// Package api provides the local HTTP and WebSocket server for the
// inventory scan client.
//
// It exposes the active session's working set, manual state toggles,
// prompt answers, and the save operation to the operator UI, plus a
// WebSocket endpoint that streams row updates and accepts scans.
//
// The server binds to loopback: it serves the operator's own browser on
// the scanning device, not the network.
//
// The lifecycle follows the infrastructure pattern:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dlcdb/inventory-core/internal/infrastructure/config"
	"github.com/dlcdb/inventory-core/internal/infrastructure/logging"
	"github.com/dlcdb/inventory-core/internal/journal"
	"github.com/dlcdb/inventory-core/internal/reconcile"
	"github.com/dlcdb/inventory-core/internal/room"
	"github.com/dlcdb/inventory-core/internal/session"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SessionController is the slice of the session the API needs.
type SessionController interface {
	ID() string
	Room() room.Room
	Rows(ctx context.Context) ([]reconcile.Row, error)
	Payload(ctx context.Context) ([]byte, error)
	Toggle(ctx context.Context, deviceID string) (reconcile.Row, error)
	AddDevice(ctx context.Context, deviceID string) (reconcile.Row, error)
	Save(ctx context.Context) error
	EnqueueScan(raw string) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Session     SessionController
	Prompts     *session.Broker
	Journal     journal.Repository
	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the local HTTP API server.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	session     SessionController
	prompts     *session.Broker
	journal     journal.Repository
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Session == nil {
		return nil, fmt.Errorf("session is required")
	}

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		logger:  deps.Logger,
		session: deps.Session,
		prompts: deps.Prompts,
		journal: deps.Journal,
		version: deps.Version,
	}

	// Use an externally-provided hub if available (needed when the
	// session also requires the hub for broadcasting).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}
	s.hub.SetScanSink(s.session)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
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

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
