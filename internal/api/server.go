package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/backoffice-core/internal/auth"
	"github.com/nerrad567/backoffice-core/internal/authstats"
	"github.com/nerrad567/backoffice-core/internal/infrastructure/config"
	"github.com/nerrad567/backoffice-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is satisfied by the SQLite and Postgres handles and by the
// MQTT and InfluxDB clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Directory *auth.Directory
	Sessions  *auth.SessionManager
	Stats     *authstats.Reporter // optional; a sink-less reporter is created if nil
	Database  HealthChecker       // optional; /api/health reports ok without it
	Version   string

	// Telemetry holds the enabled stats sinks by name. A failing sink
	// degrades /api/health without failing it.
	Telemetry map[string]HealthChecker
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes and middleware.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	directory *auth.Directory
	sessions  *auth.SessionManager
	stats     *authstats.Reporter
	database  HealthChecker
	telemetry map[string]HealthChecker
	version   string
	server    *http.Server
	listener  net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}

	stats := deps.Stats
	if stats == nil {
		stats = authstats.New("", deps.Sessions.Count, deps.Logger.Logger)
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		directory: deps.Directory,
		sessions:  deps.Sessions,
		stats:     stats,
		database:  deps.Database,
		telemetry: deps.Telemetry,
		version:   deps.Version,
	}, nil
}

// Start binds the listener and serves HTTP in a background goroutine.
//
// Binding happens synchronously so a port already in use is reported
// here. The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.GetReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.GetWriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.GetIdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", ln.Addr().String(),
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
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

// HealthCheck verifies the API server is running and responsive.
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
