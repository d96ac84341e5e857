// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/machinemate/machinemate/internal/auth"
	"github.com/machinemate/machinemate/internal/database"
	"github.com/machinemate/machinemate/internal/logging"
	"github.com/machinemate/machinemate/internal/models"
	"github.com/machinemate/machinemate/internal/validation"
)

// currentUser returns the request principal or answers 401. The auth
// middleware normally guarantees a principal on these routes.
func currentUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return nil, false
	}
	return user, true
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := s.db.ListFavorites(r.Context(), user.ID)
	if err != nil {
		logging.Error().Err(err).Msg("failed to list favorites")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list favorites", nil)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.FavoriteCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	fav, err := s.db.CreateFavorite(r.Context(), user.ID, req)
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "MACHINE_NOT_FOUND", "Machine not found", nil)
	case errors.Is(err, database.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "FAVORITE_EXISTS", "Machine is already a favorite", nil)
	case err != nil:
		logging.Error().Err(err).Msg("failed to create favorite")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create favorite", nil)
	default:
		respondJSON(w, http.StatusCreated, fav)
	}
}

func (s *Server) handleGetFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	machineID := chi.URLParam(r, "machineID")

	fav, err := s.db.GetFavorite(r.Context(), user.ID, machineID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "FAVORITE_NOT_FOUND", "Favorite not found", nil)
	case err != nil:
		logging.Error().Err(err).Msg("failed to get favorite")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to get favorite", nil)
	default:
		respondJSON(w, http.StatusOK, fav)
	}
}

func (s *Server) handleUpdateFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	machineID := chi.URLParam(r, "machineID")

	var req models.FavoriteUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	fav, err := s.db.UpdateFavorite(r.Context(), user.ID, machineID, req)
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "FAVORITE_NOT_FOUND", "Favorite not found", nil)
	case err != nil:
		logging.Error().Err(err).Msg("failed to update favorite")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update favorite", nil)
	default:
		respondJSON(w, http.StatusOK, fav)
	}
}

func (s *Server) handleDeleteFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	machineID := chi.URLParam(r, "machineID")

	err := s.db.DeleteFavorite(r.Context(), user.ID, machineID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "FAVORITE_NOT_FOUND", "Favorite not found", nil)
	case err != nil:
		logging.Error().Err(err).Msg("failed to delete favorite")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete favorite", nil)
	default:
		respondJSON(w, http.StatusOK, map[string]string{"deleted": machineID})
	}
}

func (s *Server) handleClearFavorites(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	removed, err := s.db.ClearFavorites(r.Context(), user.ID)
	if err != nil {
		logging.Error().Err(err).Msg("failed to clear favorites")
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to clear favorites", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": removed})
}
