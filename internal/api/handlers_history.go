// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/machinemate/machinemate/internal/database"
	"github.com/machinemate/machinemate/internal/logging"
	"github.com/machinemate/machinemate/internal/models"
	"github.com/machinemate/machinemate/internal/validation"
)

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	page, pageSize := s.pagination(r)
	machineID := r.URL.Query().Get("machine_id")
	list, err := s.db.ListHistory(r.Context(), user.ID, machineID, page, pageSize)
	if err != nil {
		logging.Error().Err(err).Msg("failed to list history")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list history", nil)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.HistoryCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	entry, err := s.db.CreateHistory(r.Context(), user.ID, req)
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "MACHINE_NOT_FOUND", "Machine not found", nil)
	case err != nil:
		logging.Error().Err(err).Msg("failed to create history entry")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to record history", nil)
	default:
		respondJSON(w, http.StatusCreated, entry)
	}
}

func (s *Server) handleDeleteHistoryEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	entryID := chi.URLParam(r, "entryID")

	err := s.db.DeleteHistoryEntry(r.Context(), user.ID, entryID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "HISTORY_NOT_FOUND", "History entry not found", nil)
	case err != nil:
		logging.Error().Err(err).Msg("failed to delete history entry")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete history entry", nil)
	default:
		respondJSON(w, http.StatusOK, map[string]string{"deleted": entryID})
	}
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	removed, err := s.db.ClearHistory(r.Context(), user.ID)
	if err != nil {
		logging.Error().Err(err).Msg("failed to clear history")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to clear history", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": removed})
}
