// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package api

import (
	"net/http"
	"time"

	"github.com/machinemate/machinemate/internal/models"
)

// handleHealth reports full service health including dependency status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.db.Ping(r.Context()) == nil

	status := "ok"
	if !dbOK {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:            status,
		Version:           Version,
		Environment:       s.cfg.Server.Environment,
		DatabaseConnected: dbOK,
		VLMConfigured:     s.cfg.VLM.BaseURL != "",
		MockingEnabled:    s.cfg.VLM.MockFallbackEnabled,
		Uptime:            time.Since(s.startTime).Seconds(),
	})
}

// handleLive answers as long as the process serves requests.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReady gates on the database; load balancers pull the instance when
// this fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Service not ready", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
