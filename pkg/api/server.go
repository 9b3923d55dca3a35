// Package api exposes the view tracking service over HTTP: explicit view
// recording, per-property analytics, trending rankings, and the owner
// portfolio overview.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/homegrid/viewtrack/pkg/analytics"
	"github.com/homegrid/viewtrack/pkg/middleware"
	"github.com/homegrid/viewtrack/pkg/observability"
	"github.com/homegrid/viewtrack/pkg/property"
	"github.com/homegrid/viewtrack/pkg/views"
)

// Server wires the HTTP routes to the domain services
type Server struct {
	router *mux.Router

	recorder   *views.Recorder
	analytics  *analytics.Service
	ranker     *analytics.Ranker
	aggregator *analytics.Aggregator
	properties property.Lookup

	logger  *observability.Logger
	metrics *observability.Metrics
}

// Config carries the server's collaborators
type Config struct {
	Recorder   *views.Recorder
	Analytics  *analytics.Service
	Ranker     *analytics.Ranker
	Aggregator *analytics.Aggregator
	Properties property.Lookup
	Logger     *observability.Logger
	Metrics    *observability.Metrics
}

// NewServer creates the API server and registers its routes
func NewServer(cfg Config) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		recorder:   cfg.Recorder,
		analytics:  cfg.Analytics,
		ranker:     cfg.Ranker,
		aggregator: cfg.Aggregator,
		properties: cfg.Properties,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recover(s.logger))
	s.router.Use(middleware.GatewayAuth)
	s.router.Use(middleware.Observe(s.logger, s.metrics))

	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	// View recording
	v1.HandleFunc("/properties/{id}/views", s.recordView).Methods("POST")

	// Per-property analytics, owner or admin only
	analyticsRoute := v1.PathPrefix("/properties/{id}/analytics").Subrouter()
	analyticsRoute.Use(middleware.RequireActor)
	analyticsRoute.HandleFunc("", s.propertyAnalytics).Methods("GET")

	// Portfolio overview for the authenticated owner
	overview := v1.PathPrefix("/analytics/overview").Subrouter()
	overview.Use(middleware.RequireActor)
	overview.HandleFunc("", s.analyticsOverview).Methods("GET")

	// Trending rankings, public
	v1.HandleFunc("/trending", s.trending).Methods("GET")

	// Listing detail read with passive view tracking attached
	detail := v1.PathPrefix("/properties").Subrouter()
	detail.Use(middleware.PassiveTracking(s.recorder))
	detail.HandleFunc("/{id}", s.getProperty).Methods("GET")
}

// Router returns the configured handler
func (s *Server) Router() http.Handler {
	return s.router
}
