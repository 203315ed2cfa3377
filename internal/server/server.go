// Package server provides the HTTP API for efsearch. It is a thin shell:
// request/response mapping around the search service, no ranking logic.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/greenbase/efsearch/internal/config"
	"github.com/greenbase/efsearch/internal/search"
)

// Server is the HTTP server for the efsearch API.
type Server struct {
	service   *search.Service
	config    *config.ServerConfig
	searchCfg *config.SearchConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. A nil logger is
// replaced with a no-op.
func NewServer(service *search.Service, cfg *config.ServerConfig, searchCfg *config.SearchConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		service:   service,
		config:    cfg,
		searchCfg: searchCfg,
		logger:    logger,
	}
}

// Routes builds the HTTP handler. Exposed for tests.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/reload", s.handleReload)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
