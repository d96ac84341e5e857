// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

// Package api wires the HTTP surface: identification, trace inspection, the
// machine catalog, user favorites and history, app statistics, and media
// uploads. All endpoints answer with the APIResponse envelope.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/machinemate/machinemate/internal/auth"
	"github.com/machinemate/machinemate/internal/config"
	"github.com/machinemate/machinemate/internal/database"
	"github.com/machinemate/machinemate/internal/inference"
	"github.com/machinemate/machinemate/internal/middleware"
	"github.com/machinemate/machinemate/internal/storage"
)

// Server carries handler dependencies.
type Server struct {
	cfg       *config.Config
	db        *database.DB
	inference *inference.Service
	storage   *storage.Client
	verifier  *auth.Verifier
	startTime time.Time
}

// Version is stamped at build time via -ldflags.
var Version = "dev"

// NewServer builds the handler set.
func NewServer(cfg *config.Config, db *database.DB, svc *inference.Service, store *storage.Client, verifier *auth.Verifier) *Server {
	return &Server{
		cfg:       cfg,
		db:        db,
		inference: svc,
		storage:   store,
		verifier:  verifier,
		startTime: time.Now(),
	}
}

// Router assembles the chi route tree with shared middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Prometheus)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.API.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if s.cfg.API.RateLimitRequests > 0 {
		r.Use(httprate.LimitByIP(s.cfg.API.RateLimitRequests, s.cfg.API.RateLimitWindow))
	}

	requireAuth := auth.RequireAuth(s.verifier, true)
	optionalAuth := auth.RequireAuth(s.verifier, s.cfg.Auth.Required)

	// Health and observability.
	r.Get("/health", s.handleHealth)
	r.Get("/health/live", s.handleLive)
	r.Get("/health/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	// Identification pipeline.
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Post("/identify", s.handleIdentify)
	})
	r.Get("/traces/{traceID}", s.handleGetTrace)

	r.Route("/api/v1", func(r chi.Router) {
		// Public catalog and stats.
		r.Get("/machines", s.handleListMachines)
		r.Get("/machines/categories/list", s.handleListCategories)
		r.Get("/machines/difficulties/list", s.handleListDifficulties)
		r.Get("/machines/{machineID}", s.handleGetMachine)
		r.Get("/metrics/stats", s.handleStats)
		r.Get("/metrics/categories", s.handleCategoryStats)

		// User-scoped resources.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/favorites", s.handleListFavorites)
			r.Post("/favorites", s.handleCreateFavorite)
			r.Get("/favorites/{machineID}", s.handleGetFavorite)
			r.Patch("/favorites/{machineID}", s.handleUpdateFavorite)
			r.Delete("/favorites/{machineID}", s.handleDeleteFavorite)
			r.Delete("/favorites", s.handleClearFavorites)

			r.Get("/history", s.handleListHistory)
			r.Post("/history", s.handleCreateHistory)
			r.Delete("/history/{entryID}", s.handleDeleteHistoryEntry)
			r.Delete("/history", s.handleClearHistory)

			r.Post("/media/upload", s.handleMediaUpload)
		})
	})

	return r
}
