// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/machinemate/machinemate/internal/logging"
	"github.com/machinemate/machinemate/internal/storage"
)

// handleMediaUpload proxies an image upload into the user-uploads bucket.
// Objects are keyed by user id so one user cannot overwrite another's files.
func (s *Server) handleMediaUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.API.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.API.MaxUploadBytes); err != nil {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			"Expected multipart/form-data with a file part", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "MISSING_FILE", "File part is required", nil)
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			"Only image uploads are accepted", nil)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "EMPTY_FILE", "Empty file payload", nil)
		return
	}

	ext := path.Ext(header.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	objectPath := fmt.Sprintf("%s/%d-%s%s", user.ID, time.Now().Unix(), uuid.NewString()[:8], ext)

	result, err := s.storage.Upload(r.Context(), objectPath, data, contentType)
	if errors.Is(err, storage.ErrDisabled) {
		respondError(w, http.StatusServiceUnavailable, "STORAGE_DISABLED", "Media storage is not configured", nil)
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("media upload failed")
		respondError(w, http.StatusBadGateway, "STORAGE_ERROR", "Media upload failed", nil)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}
