// Package admin exposes the operator-facing HTTP surface SPEC_FULL.md
// §6 adds: health, Prometheus exposition, and the diagnostic dump and
// manual checkpoint endpoints that make spec.md §6's dump format and
// §4.5's checkpoint reachable without shelling into the host.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/clusterfs/plockd/internal/logger"
	"github.com/clusterfs/plockd/pkg/checkpoint"
	"github.com/clusterfs/plockd/pkg/rangelock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the admin HTTP surface, routed with go-chi/chi like the
// teacher's HTTP entrypoints.
type Server struct {
	engine *rangelock.Engine
	store  *checkpoint.Store
	router chi.Router
}

// New builds a Server wired to engine and store.
func New(engine *rangelock.Engine, store *checkpoint.Store) *Server {
	s := &Server{engine: engine, store: store}
	s.router = s.routes()
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/dump/{group}", s.handleDump)
	r.Post("/checkpoint/{group}", s.handleCheckpoint)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	out := s.engine.Group(group).Dump()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(out))
}

func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := s.store.Store(ctx, s.engine.Group(group)); err != nil {
		logger.Error("manual checkpoint failed", logger.Group(group), logger.Err(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("admin request",
			logger.Operation(r.Method),
			logger.Path(r.URL.Path),
			logger.DurationMs(logger.Duration(start)),
		)
	})
}
