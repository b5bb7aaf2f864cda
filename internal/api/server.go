// Package api serves the read and maintenance HTTP API over the track catalog.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/himanishpuri/RadioDNA/pkg/logger"
	"github.com/himanishpuri/RadioDNA/pkg/models"
)

// Catalog is the part of the track catalog the API exposes.
type Catalog interface {
	GetTrack(ctx context.Context, id uuid.UUID) (models.Track, error)
	GetMatches(ctx context.Context, id uuid.UUID) ([]models.MatchRecord, error)
	DeleteTrack(ctx context.Context, id uuid.UUID) error
	ListTracks(ctx context.Context, limit int) ([]models.Track, error)
	CountTracks(ctx context.Context) (int64, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Addr           string
	DBPath         string
	AllowedOrigins []string
}

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	catalog Catalog
	config  ServerConfig
	log     Logger
	router  chi.Router
	server  *http.Server
}

func NewServer(catalog Catalog, cfg ServerConfig, log Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	s := &Server{
		catalog: catalog,
		config:  cfg,
		log:     log,
		router:  chi.NewRouter(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(corsOptions(s.config.AllowedOrigins)))

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/tracks", func(r chi.Router) {
		r.Get("/", s.handleListTracks)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTrack)
			r.Delete("/", s.handleDeleteTrack)
			r.Get("/audio", s.handleGetAudio)
			r.Get("/matches", s.handleGetMatches)
		})
	})
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("RadioDNA API listening on %s (db %s)", s.config.Addr, s.config.DBPath)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Infof("Shutting down API server")
	return s.server.Shutdown(shutdownCtx)
}

// corsOptions allows the read and delete routes from the configured origins.
// An empty list or a lone "*" allows any origin.
func corsOptions(origins []string) cors.Options {
	if len(origins) == 1 && origins[0] == "*" {
		origins = nil
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:         3600,
	}
}

// loggingMiddleware logs each request with its status and latency
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Debugf("%s %s from %s -> %d (%s)", r.Method, r.URL.Path, r.RemoteAddr, ww.Status(), time.Since(start))
	})
}
