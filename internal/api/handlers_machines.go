// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/machinemate/machinemate/internal/database"
	"github.com/machinemate/machinemate/internal/logging"
	"github.com/machinemate/machinemate/internal/models"
)

// handleListMachines returns the catalog with optional category, difficulty,
// search and tag filters.
func (s *Server) handleListMachines(w http.ResponseWriter, r *http.Request) {
	page, pageSize := s.pagination(r)
	filter := models.MachineFilter{
		Category:   r.URL.Query().Get("category"),
		Difficulty: r.URL.Query().Get("difficulty"),
		Search:     r.URL.Query().Get("search"),
		Tags:       queryTags(r),
		IsActive:   true,
		Page:       page,
		PageSize:   pageSize,
	}

	list, err := s.db.ListMachines(r.Context(), filter)
	if err != nil {
		logging.Error().Err(err).Msg("failed to list machines")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list machines", nil)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetMachine(w http.ResponseWriter, r *http.Request) {
	machineID := chi.URLParam(r, "machineID")

	machine, err := s.db.GetMachine(r.Context(), machineID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "MACHINE_NOT_FOUND", "Machine not found", nil)
		return
	}
	if err != nil {
		logging.Error().Err(err).Str("machine_id", machineID).Msg("failed to get machine")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to get machine", nil)
		return
	}
	respondJSON(w, http.StatusOK, machine)
}

// queryTags collects tag filters from repeated and comma-separated "tags"
// query parameters.
func queryTags(r *http.Request) []string {
	var tags []string
	for _, raw := range r.URL.Query()["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.db.Categories(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("failed to list categories")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list categories", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

func (s *Server) handleListDifficulties(w http.ResponseWriter, r *http.Request) {
	difficulties, err := s.db.Difficulties(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("failed to list difficulties")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list difficulties", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"difficulties": difficulties})
}
