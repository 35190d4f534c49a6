// Package api provides the HTTP API server and handlers for the ReelKeeper application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/reelkeeperapp/reelkeeper-server/internal/reconcile"
	"github.com/reelkeeperapp/reelkeeper-server/internal/search"
	"github.com/reelkeeperapp/reelkeeper-server/internal/sse"
	"github.com/reelkeeperapp/reelkeeper-server/internal/store"
	"github.com/reelkeeperapp/reelkeeper-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *store.Store
	reconcile  *reconcile.Service
	search     *search.Index
	sseHandler *sse.Handler
	router     *chi.Mux
	api        huma.API
	validator  *validation.Validator
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	st *store.Store,
	reconcileService *reconcile.Service,
	searchIndex *search.Index,
	sseHandler *sse.Handler,
	logger *slog.Logger,
) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig("ReelKeeper API", "1.0.0")
	humaAPI := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:      st,
		reconcile:  reconcileService,
		search:     searchIndex,
		sseHandler: sseHandler,
		router:     router,
		api:        humaAPI,
		validator:  validation.New(),
		logger:     logger,
	}

	s.registerHealthRoutes()
	s.registerReconcileRoutes()
	s.registerSearchRoutes()

	// Event stream stays on plain chi: huma cannot model a long-lived SSE
	// response.
	if sseHandler != nil {
		router.Get("/api/v1/events", sseHandler.ServeHTTP)
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
