package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/atharv3903/tourgraph/internal/algo"
	"github.com/atharv3903/tourgraph/internal/cache"
	"github.com/atharv3903/tourgraph/internal/db"
	"github.com/atharv3903/tourgraph/internal/model"
	"github.com/atharv3903/tourgraph/internal/tour"
)

type Options struct {
	CORSOrigins   []string
	GraphCacheCap int
}

type Server struct {
	Router   chi.Router
	Store    db.Store
	Graphs   *cache.GraphCache
	GCtx     algo.GraphCtx
	RC       *cache.RouteCache
	Sessions *tour.Sessions
	logger   *zap.Logger
}

func New(store db.Store, logger *zap.Logger, opts Options) *Server {
	s := &Server{
		Router: chi.NewRouter(),
		Store:  store,
		Graphs: cache.NewGraphCacheWithCap(opts.GraphCacheCap),
		RC:     cache.NewRouteCache(),
		logger: logger,
	}

	s.GCtx = algo.GraphCtx{
		Source: s.Store,
		Graphs: s.Graphs,
	}
	s.Sessions = tour.NewSessions(s.Store, s.GCtx, logger.Named("sessions"))

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.Router.Use(middleware.RequestID)
	s.Router.Use(requestLogger(logger))
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.Router

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/datasets/{dataset}", s.handleDataset)
		r.Get("/datasets/{dataset}/tours", s.handleTours)
		r.Get("/datasets/{dataset}/route", s.handleRoute)
		r.Get("/datasets/{dataset}/nearest", s.handleNearest)
		r.Post("/edges/update", s.handleUpdate)

		r.Post("/tours/{tourID}/sessions", s.handleStartSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Post("/sessions/{id}/position", s.handlePosition)
		r.Delete("/sessions/{id}", s.handleExitSession)
		r.Get("/sessions/{id}/ws", s.handleSessionStream)
	})

	// hard reset of both caches:
	// curl http://127.0.0.1:8080/debug/clear_cache
	r.Get("/debug/clear_cache", func(w http.ResponseWriter, _ *http.Request) {
		s.Graphs.Clear()
		s.RC.Clear()
		s.logger.Info("caches cleared")
		w.Write([]byte("cleared"))
	})

	r.Get("/debug/cache_stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"graphs":      s.Graphs.Stats(),
			"routes":      s.RC.Len(),
			"route_epoch": s.RC.Epoch(),
			"sessions":    s.Sessions.Len(),
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "error",
			"database":  "disconnected",
			"timestamp": time.Now().UTC(),
			"error":     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"database":  "connected",
		"timestamp": time.Now().UTC(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// fail maps lookup misses to 404 and everything else to 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}
