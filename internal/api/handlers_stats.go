// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package api

import (
	"net/http"

	"github.com/machinemate/machinemate/internal/logging"
)

// handleStats serves aggregate app statistics for the dashboard.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("failed to compute stats")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute stats", nil)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.CategoryStats(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("failed to compute category stats")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute category stats", nil)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
