// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

// Package storage proxies media uploads to Supabase Storage. The mobile app
// never holds the service key; it uploads through the backend, which writes
// into the configured bucket and returns the public URL.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/machinemate/machinemate/internal/config"
	"github.com/machinemate/machinemate/internal/logging"
	"github.com/machinemate/machinemate/internal/models"
)

// ErrDisabled is returned when no storage backend is configured.
var ErrDisabled = errors.New("storage is not configured")

// Client talks to the Supabase Storage HTTP API with the service key.
type Client struct {
	cfg        config.StorageConfig
	httpClient *http.Client
}

// NewClient builds a storage client from configuration.
func NewClient(cfg config.StorageConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether uploads can be served.
func (c *Client) Enabled() bool {
	return c.cfg.BaseURL != "" && c.cfg.ServiceKey != ""
}

// Upload writes an object into the user-uploads bucket and returns its
// location. objectPath must already be scoped to the owning user.
func (c *Client) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (*models.MediaUploadResponse, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	bucket := c.cfg.BucketUserUploads
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), bucket, objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.ServiceKey)
	req.Header.Set("Content-Type", contentType)
	// Allow re-uploads of the same path without a 409 from storage.
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage upload failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logging.Error().Int("status", resp.StatusCode).Str("path", objectPath).
			Str("body", string(body)).Msg("storage upload rejected")
		return nil, fmt.Errorf("storage upload rejected with status %d", resp.StatusCode)
	}

	logging.Info().Str("bucket", bucket).Str("path", objectPath).Int("size", len(data)).
		Msg("media uploaded")

	return &models.MediaUploadResponse{
		URL:         uploadURL,
		PublicURL:   c.PublicURL(objectPath),
		Bucket:      bucket,
		Path:        objectPath,
		Size:        len(data),
		ContentType: contentType,
	}, nil
}

// PublicURL returns the public download URL of an object in the uploads
// bucket.
func (c *Client) PublicURL(objectPath string) string {
	base := c.cfg.PublicBaseURL
	if base == "" {
		base = c.cfg.BaseURL
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		strings.TrimRight(base, "/"), c.cfg.BucketUserUploads, objectPath)
}
