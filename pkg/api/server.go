package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cuemby/guildsync/pkg/log"
	"github.com/cuemby/guildsync/pkg/metrics"
	"github.com/cuemby/guildsync/pkg/reconciler"
	"github.com/cuemby/guildsync/pkg/storage"
	"github.com/cuemby/guildsync/pkg/types"
)

// Server is the admin HTTP surface of the daemon
type Server struct {
	coordinators map[types.Family]reconciler.Coordinator
	families     []types.Family
	store        storage.Store
	health       *metrics.HealthChecker
	router       chi.Router
	http         *http.Server
	logger       zerolog.Logger
}

// Option configures the server
type Option func(*Server)

// WithStore serves pass history from store
func WithStore(store storage.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithHealthChecker serves health from h instead of the shared checker
func WithHealthChecker(h *metrics.HealthChecker) Option {
	return func(s *Server) {
		s.health = h
	}
}

// NewServer creates the admin server for the given coordinators
func NewServer(coordinators []reconciler.Coordinator, opts ...Option) *Server {
	s := &Server{
		coordinators: make(map[types.Family]reconciler.Coordinator, len(coordinators)),
		logger:       log.WithComponent("api"),
	}
	for _, c := range coordinators {
		s.coordinators[c.Family()] = c
		s.families = append(s.families, c.Family())
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	if s.health != nil {
		r.Get("/health", s.health.HealthHandler())
		r.Get("/ready", s.health.ReadyHandler())
	} else {
		r.Get("/health", metrics.HealthHandler())
		r.Get("/ready", metrics.ReadyHandler())
	}
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sync", s.syncAll)
		r.Post("/sync/{family}", s.syncFamily)
		r.Get("/plan/{family}", s.plan)
		r.Get("/passes", s.listPasses)
		r.Get("/passes/{id}", s.getPass)
	})
	return r
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("Admin API listening")
	metrics.UpdateComponent(metrics.ComponentAPI, true, "")

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	metrics.UpdateComponent(metrics.ComponentAPI, false, err.Error())
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	metrics.UpdateComponent(metrics.ComponentAPI, false, "shutting down")
	return s.http.Shutdown(ctx)
}
