package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mercator-hq/quota-gate/pkg/config"
	"github.com/mercator-hq/quota-gate/pkg/limits/enforcement"
	"github.com/mercator-hq/quota-gate/pkg/limits/plans"
	"github.com/mercator-hq/quota-gate/pkg/limits/storage"
	"github.com/mercator-hq/quota-gate/pkg/proxy/handlers"
	"github.com/mercator-hq/quota-gate/pkg/proxy/middleware"
	"github.com/mercator-hq/quota-gate/pkg/telemetry/health"
	"github.com/mercator-hq/quota-gate/pkg/telemetry/metrics"
)

// DurableStore is the durable-store surface the server wires into its
// handlers: the admin CRUD operations plus the two hot-path reads and the
// readiness probe. Both the SQLite and the in-memory backends satisfy it.
type DurableStore interface {
	handlers.AdminStore
	GetClientByAPIKey(ctx context.Context, apiKey string) (*plans.Client, error)
	ListActiveRules(ctx context.Context) ([]*plans.RateLimitRule, error)
	Ping(ctx context.Context) error
}

// Dependencies carries the constructed collaborators into NewServer.
type Dependencies struct {
	Durable    DurableStore
	Counters   storage.CounterStore
	Resolver   middleware.PlanSource
	Evaluator  middleware.LimitEvaluator
	Thresholds *enforcement.Provider

	// Collector may be nil when metrics are disabled.
	Collector *metrics.Collector
}

// Server is the gateway's HTTP server.
type Server struct {
	config       *config.Config
	deps         Dependencies
	httpServer   *http.Server
	checker      *health.Checker
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new gateway server.
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("counter_store", deps.Counters.Ping)
	checker.RegisterCheck("durable_store", deps.Durable.Ping)

	return &Server{
		config:       cfg,
		deps:         deps,
		checker:      checker,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	if s.config.Server.TLS.Enabled {
		tlsConfig, err := s.configureTLS()
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting gateway server",
			"address", s.config.Server.ListenAddress,
			"tls_enabled", s.config.Server.TLS.Enabled,
		)

		var err error
		if s.config.Server.TLS.Enabled {
			err = s.httpServer.ListenAndServeTLS(
				s.config.Server.TLS.CertFile,
				s.config.Server.TLS.KeyFile,
			)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("gateway server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Protected notify endpoints. The admission filter wraps the whole
	// mux and scopes itself to /api/notify/, mirroring how the limits sit
	// in front of delivery rather than inside it.
	mux.Handle("/api/notify/sms", handlers.NewSMSHandler())
	mux.Handle("/api/notify/email", handlers.NewEmailHandler())

	// Admin CRUD surface.
	keyPrefix := s.config.Counters.Redis.KeyPrefix
	admin := handlers.NewAdminHandler(s.deps.Durable, s.deps.Counters, keyPrefix)
	admin.Register(mux)

	// Health probes.
	if s.config.Telemetry.Health.Enabled {
		mux.Handle(s.config.Telemetry.Health.LivenessPath, s.checker.LivenessHandler())
		mux.Handle(s.config.Telemetry.Health.ReadinessPath, s.checker.ReadinessHandler())
	}

	// Prometheus metrics.
	if s.config.Telemetry.Metrics.Enabled && s.deps.Collector != nil {
		mux.Handle(s.config.Telemetry.Metrics.Path, s.deps.Collector.Handler())
	}

	admission := middleware.NewAdmissionFilter(middleware.AdmissionConfig{
		Clients:      s.deps.Durable,
		Plans:        s.deps.Resolver,
		Rules:        s.deps.Durable,
		Evaluator:    s.deps.Evaluator,
		Thresholds:   s.deps.Thresholds,
		HeaderName:   s.config.Authentication.HeaderName,
		SoftDelayCap: s.config.Throttle.SoftDelayCap,
		Collector:    s.deps.Collector,
	})

	var handler http.Handler = mux

	handler = admission.Middleware(handler)

	handler = middleware.TimeoutMiddleware(s.config.Server.RequestTimeout)(handler)

	corsConfig := s.convertCORSConfig()
	handler = middleware.CORSMiddleware(corsConfig)(handler)

	handler = middleware.LoggingMiddleware(handler)

	handler = middleware.RequestIDMiddleware(handler)

	// Recovery middleware (outermost)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// configureTLS configures TLS settings.
func (s *Server) configureTLS() (*tls.Config, error) {
	tlsCfg := s.config.Server.TLS

	if tlsCfg.CertFile == "" {
		return nil, fmt.Errorf("TLS cert file not specified")
	}
	if tlsCfg.KeyFile == "" {
		return nil, fmt.Errorf("TLS key file not specified")
	}
	if _, err := os.Stat(tlsCfg.CertFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("TLS cert file not found: %s", tlsCfg.CertFile)
	}
	if _, err := os.Stat(tlsCfg.KeyFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("TLS key file not found: %s", tlsCfg.KeyFile)
	}

	minVersion := uint16(tls.VersionTLS13)
	if tlsCfg.MinVersion == "1.2" {
		minVersion = tls.VersionTLS12
	}

	return &tls.Config{
		MinVersion: minVersion,
	}, nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, used by tests to drive the
// full chain without a listening socket.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// convertCORSConfig converts config.CORSConfig to middleware.CORSConfig.
func (s *Server) convertCORSConfig() *middleware.CORSConfig {
	cors := s.config.Server.CORS
	return &middleware.CORSConfig{
		Enabled:          cors.Enabled,
		AllowedOrigins:   cors.AllowedOrigins,
		AllowedMethods:   cors.AllowedMethods,
		AllowedHeaders:   cors.AllowedHeaders,
		ExposedHeaders:   cors.ExposedHeaders,
		MaxAge:           cors.MaxAge,
		AllowCredentials: cors.AllowCredentials,
	}
}
