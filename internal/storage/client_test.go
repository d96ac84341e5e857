// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/machinemate/machinemate/internal/config"
)

func TestUploadDisabled(t *testing.T) {
	c := NewClient(config.StorageConfig{})
	if c.Enabled() {
		t.Error("client without base URL should be disabled")
	}
	if _, err := c.Upload(context.Background(), "u/1.jpg", []byte("x"), "image/jpeg"); !errors.Is(err, ErrDisabled) {
		t.Errorf("error = %v, want ErrDisabled", err)
	}
}

func TestUpload(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(config.StorageConfig{
		BaseURL:           srv.URL,
		ServiceKey:        "service-key",
		BucketUserUploads: "user-uploads",
	})

	resp, err := c.Upload(context.Background(), "user-1/photo.jpg", []byte("jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if gotPath != "/storage/v1/object/user-uploads/user-1/photo.jpg" {
		t.Errorf("upload path = %q", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotContentType != "image/jpeg" || string(gotBody) != "jpeg-bytes" {
		t.Errorf("content type/body = %q/%q", gotContentType, gotBody)
	}
	if resp.Bucket != "user-uploads" || resp.Size != 9 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.PublicURL != srv.URL+"/storage/v1/object/public/user-uploads/user-1/photo.jpg" {
		t.Errorf("public URL = %q", resp.PublicURL)
	}
}

func TestUploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(config.StorageConfig{
		BaseURL:           srv.URL,
		ServiceKey:        "service-key",
		BucketUserUploads: "user-uploads",
	})

	if _, err := c.Upload(context.Background(), "u/1.jpg", []byte("x"), "image/jpeg"); err == nil {
		t.Error("expected error for rejected upload")
	}
}

func TestPublicURLPrefersPublicBase(t *testing.T) {
	c := NewClient(config.StorageConfig{
		BaseURL:           "https://project.supabase.co",
		PublicBaseURL:     "https://cdn.example.com",
		ServiceKey:        "k",
		BucketUserUploads: "user-uploads",
	})
	want := "https://cdn.example.com/storage/v1/object/public/user-uploads/u/1.jpg"
	if got := c.PublicURL("u/1.jpg"); got != want {
		t.Errorf("PublicURL = %q, want %q", got, want)
	}
}
