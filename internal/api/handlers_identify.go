// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/machinemate/machinemate/internal/inference"
	"github.com/machinemate/machinemate/internal/logging"
	"github.com/machinemate/machinemate/internal/vlm"
)

// handleIdentify accepts a multipart image upload and runs the identification
// pipeline. The part must be named "image" and carry an image/* content type.
func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.API.MaxUploadBytes)

	if err := r.ParseMultipartForm(s.cfg.API.MaxUploadBytes); err != nil {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			"Expected multipart/form-data with an image part", nil)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "MISSING_IMAGE",
			"Image part is required", nil)
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			"Unsupported media type", nil)
		return
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "UNREADABLE_IMAGE",
			"Failed to read image payload", nil)
		return
	}
	if len(payload) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "EMPTY_IMAGE",
			"Empty image payload", nil)
		return
	}

	result, err := s.inference.Identify(r.Context(), payload)
	if err != nil {
		var unavailable *vlm.UnavailableError
		switch {
		case errors.As(err, &unavailable):
			respondError(w, http.StatusServiceUnavailable, "INFERENCE_UNAVAILABLE",
				unavailable.Error(), map[string]interface{}{"trace_id": unavailable.TraceID})
		case errors.Is(err, inference.ErrNoPathway):
			respondError(w, http.StatusServiceUnavailable, "INFERENCE_UNAVAILABLE",
				err.Error(), nil)
		default:
			logging.Error().Err(err).Msg("identification failed")
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Identification failed", nil)
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleGetTrace exposes the stored trace for one identification attempt.
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "traceID")

	details, ok := s.inference.TraceDetails(traceID)
	if !ok {
		respondError(w, http.StatusNotFound, "TRACE_NOT_FOUND", "Trace not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, details)
}
