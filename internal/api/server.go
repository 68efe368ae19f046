// SPDX-License-Identifier: MIT

// Package api exposes the converter over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/json2xmltv/internal/api/middleware"
	"github.com/ManuGH/json2xmltv/internal/health"
	"github.com/ManuGH/json2xmltv/internal/log"
	"github.com/ManuGH/json2xmltv/internal/translate"
)

const (
	DefaultMaxUploadBytes = 16 << 20

	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 120 * time.Second
)

// Translator renders XMLTV documents. *translate.Service satisfies it.
type Translator interface {
	Translate(ctx context.Context, rawURL string) (translate.Result, error)
	ConvertBytes(ctx context.Context, data []byte, source translate.Source) (translate.Result, error)
}

// Config holds the HTTP surface settings.
type Config struct {
	Listen         string
	MaxUploadBytes int64
	// WriteTimeout bounds a whole response, including the upstream fetch.
	WriteTimeout   time.Duration
	RateLimit      middleware.RateLimitConfig
	TracingService string // empty disables tracing
}

// Server serves the conversion endpoints plus health and metrics.
type Server struct {
	cfg        Config
	translator Translator
	health     *health.Manager

	mu      sync.Mutex
	srv     *http.Server
	closed  bool
	started atomic.Bool
}

// New creates a server. hm may be nil, in which case probes always report healthy.
func New(cfg Config, tr Translator, hm *health.Manager) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if hm == nil {
		hm = health.NewManager("")
	}
	return &Server{cfg: cfg, translator: tr, health: hm}
}

// Handler returns the configured HTTP handler with all routes and middleware applied.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after a graceful Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if !s.started.CompareAndSwap(false, true) {
		_ = ln.Close()
		return fmt.Errorf("server already started")
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       idleTimeout,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.srv = srv
	s.mu.Unlock()

	logger := log.WithComponent("api")
	logger.Info().
		Str(log.FieldEvent, "server.listening").
		Str(log.FieldListenAddr, ln.Addr().String()).
		Msg("http server listening")

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// Shutdown performs a graceful shutdown, waiting for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("shutdown context is nil")
	}

	s.mu.Lock()
	srv := s.srv
	s.closed = true
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	logger := log.WithComponent("api")
	logger.Info().Str(log.FieldEvent, "server.shutdown").Msg("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
