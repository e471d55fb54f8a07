// Package server serves the viewer's HTML pages and JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/Sternrassler/chroma-viewer/pkg/logging"
	"github.com/Sternrassler/chroma-viewer/pkg/metrics"
	"github.com/Sternrassler/chroma-viewer/pkg/viewer"
	"github.com/rs/zerolog"
)

// Config holds the server configuration.
type Config struct {
	// Addr is the host:port to listen on.
	Addr string

	// ShutdownTimeout bounds graceful shutdown once Run's context is done.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the configuration used by the CLI defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:8000",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the HTTP front end over a viewer connection.
type Server struct {
	config    Config
	conn      *viewer.Conn
	templates *template.Template
	handler   http.Handler
	logger    zerolog.Logger
}

// New creates a server reading from conn.
func New(cfg Config, conn *viewer.Conn) (*Server, error) {
	if conn == nil {
		return nil, errors.New("viewer connection is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		config:    cfg,
		conn:      conn,
		templates: tmpl,
		logger:    logging.NewLogger("server"),
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /collection/{name}", s.handleCollectionView)

	mux.HandleFunc("GET /api/collections", s.handleListCollections)
	mux.HandleFunc("GET /api/collection/{name}/documents", s.handleDocuments)
	mux.HandleFunc("POST /api/connect", s.handleConnect)
	mux.HandleFunc("POST /api/disconnect", s.handleDisconnect)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(staticFS())))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	return withRequestID(withObservability(s.logger, withRecovery(s.logger, mux)))
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting Chroma viewer")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
