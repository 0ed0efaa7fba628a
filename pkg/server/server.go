// Package server implements the MCP Streamable HTTP transport: origin
// validation, transport negotiation, session tracking, the JSON-RPC
// dispatcher, and SSE event channels.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/TexasFortress-AI/rustymail-mcp/pkg/config"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/logging"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/observability"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/tools"
)

// Server owns the HTTP listeners and background workers for one MCP server
// instance.
type Server struct {
	cfg      *config.Config
	logger   logging.Logger
	sessions *SessionStore
	hub      *SSEHub
	handler  http.Handler
	metrics  *observability.Metrics
	tracer   *observability.Tracer
}

// New assembles a server from configuration. registry supplies the tools
// surfaced through tools/list and tools/call; tracer may be nil.
func New(cfg *config.Config, registry tools.Registry, logger logging.Logger, tracer *observability.Tracer) *Server {
	if logger == nil {
		logger = logging.Nop()
	}

	sessions := NewSessionStore(cfg.Session.TTL, cfg.Session.SweepInterval, logger)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(func() float64 {
			return float64(sessions.Len())
		})
	}

	hub := NewSSEHub(cfg.SSE.HeartbeatInterval, cfg.SSE.EventBuffer, logger, metrics)
	handlers := NewCoreHandlers(sessions, registry, logger, metrics)
	dispatcher := NewDispatcher(handlers.Table(), sessions, logger, metrics, tracer)
	guard := NewOriginGuard(cfg.Server.AllowedOrigins)
	endpoint := NewMCPHandler(guard, dispatcher, hub, logger, tracer, cfg.Server.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	// Same endpoint, two paths. Clients written against either prefix must
	// see identical behavior.
	r.Handle("/mcp", endpoint)
	r.Handle("/mcp/v1", endpoint)

	return &Server{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		hub:      hub,
		handler:  r,
		metrics:  metrics,
		tracer:   tracer,
	}
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Sessions exposes the session store, mainly for tests.
func (s *Server) Sessions() *SessionStore { return s.sessions }

// Run serves until ctx is canceled, then drains gracefully. It blocks.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		s.logger.Info("mcp server listening", logging.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		s.sessions.Run(ctx)
		return nil
	})

	var metricsServer *http.Server
	if s.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
		metricsServer = &http.Server{
			Addr:              s.cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			s.logger.Info("metrics listening", logging.String("addr", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", logging.ErrorField(err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Warn("metrics shutdown", logging.ErrorField(err))
			}
		}
		if s.tracer != nil {
			if err := s.tracer.Shutdown(shutdownCtx); err != nil {
				s.logger.Warn("tracer shutdown", logging.ErrorField(err))
			}
		}
		return nil
	})

	return g.Wait()
}
