package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/linkforge/linkforge/internal/auth"
	"github.com/linkforge/linkforge/internal/config"
	"github.com/linkforge/linkforge/internal/httpx"
	"github.com/linkforge/linkforge/internal/identity"
	"github.com/linkforge/linkforge/internal/metrics"
	"github.com/linkforge/linkforge/internal/shortener"
)

// Pinger reports backing-store health for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server with all dependencies.
type Server struct {
	config    *config.Config
	logger    *slog.Logger
	links     *shortener.Handler
	accounts  *identity.Handler
	principal auth.PrincipalResolver
	db        Pinger
	metrics   *metrics.Metrics
	server    *http.Server
}

// New creates a new Server instance.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	links *shortener.Handler,
	accounts *identity.Handler,
	principal auth.PrincipalResolver,
	db Pinger,
	m *metrics.Metrics,
) *Server {
	return &Server{
		config:    cfg,
		logger:    logger,
		links:     links,
		accounts:  accounts,
		principal: principal,
		db:        db,
		metrics:   m,
	}
}

// Handler returns the fully wired HTTP handler (routes plus middleware).
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	handler := s.Handler()
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:      handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			if closeErr := s.server.Close(); closeErr != nil {
				return fmt.Errorf("failed to close server: %w", closeErr)
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		s.logger.Info("server stopped gracefully")
		return nil
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	requireAuth := auth.Require(s.principal, s.logger)
	optionalAuth := auth.Optional(s.principal, s.logger)
	authLimiter := httpx.NewRateLimiter(
		s.config.Auth.LoginRatePerS,
		s.config.Auth.LoginRateBurst,
	)

	mux.HandleFunc("GET /x/health", s.healthCheckHandler)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Shortener surface. Creation is open to anonymous callers; a valid
	// bearer token attaches ownership.
	mux.Handle("POST /shorten", optionalAuth(http.HandlerFunc(s.links.Create)))
	mux.HandleFunc("GET /{code}", s.links.Redirect)
	mux.HandleFunc("GET /info/{code}", s.links.Info)
	mux.Handle("GET /my-urls", requireAuth(http.HandlerFunc(s.links.ListOwned)))
	mux.Handle("PUT /my-urls/{id}", requireAuth(http.HandlerFunc(s.links.UpdateOwned)))
	mux.Handle("DELETE /my-urls/{id}", requireAuth(http.HandlerFunc(s.links.DeleteOwned)))

	// Identity surface. Credential endpoints are rate limited per IP.
	mux.Handle("POST /auth/register", authLimiter.Limit(http.HandlerFunc(s.accounts.Register)))
	mux.Handle("POST /auth/login", authLimiter.Limit(http.HandlerFunc(s.accounts.Login)))
	mux.Handle("GET /auth/me", requireAuth(http.HandlerFunc(s.accounts.Me)))

	return mux
}

// applyMiddleware wraps the handler with middleware in the correct order.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return httpx.Chain(
		httpx.Recovery(s.logger),  // Outermost: catch panics
		httpx.RequestID,           // Add request ID
		httpx.Logger(s.logger),    // Log requests
		s.metrics.Middleware(),    // Request counters and latency
		httpx.CORS(nil),           // CORS headers (allow all in dev)
	)(handler)
}

// healthCheckHandler handles health check requests.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "health check failed", "error", err.Error())
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "unreachable",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "ok",
	})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
