// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package vlm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/machinemate/machinemate/internal/config"
	"github.com/machinemate/machinemate/internal/trace"
)

func testVLMConfig(baseURL string) config.VLMConfig {
	return config.VLMConfig{
		BaseURL:        baseURL,
		Model:          "qwen-vl-chat",
		RequestTimeout: 5 * time.Second,
	}
}

func newTestClient(baseURL string, store *trace.Store) *Client {
	return NewClient(testVLMConfig(baseURL), "identify the machine", "enhanced_baseline", testCatalog, store)
}

func TestBuildEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"https://api.example.com", "https://api.example.com/v1/chat/completions"},
		{"https://api.example.com/", "https://api.example.com/v1/chat/completions"},
		{"https://api.example.com/v1", "https://api.example.com/v1/chat/completions"},
		{"https://api.example.com/v1/chat/completions", "https://api.example.com/v1/chat/completions"},
		{"https://api.example.com/v1/chat/completions/", "https://api.example.com/v1/chat/completions"},
	}
	for _, tt := range tests {
		if got := buildEndpoint(tt.in); got != tt.want {
			t.Errorf("buildEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClassifyDisabled(t *testing.T) {
	client := newTestClient("", trace.NewStore(10))

	_, err := client.Classify(context.Background(), []byte("jpeg"))
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("disabled client error = %v, want ErrNoResult", err)
	}
}

func TestClassifySuccess(t *testing.T) {
	var gotPath string
	var gotPayload map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "{\"machine\": \"Lat Pulldown\", \"confidence\": 0.92}"}}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, trace.NewStore(10))

	resp, err := client.Classify(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if resp.Machine != "Lat Pulldown" || resp.Confidence != 0.92 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.TraceID == "" {
		t.Error("response should carry a trace id")
	}
	if resp.PromptVariant != "enhanced_baseline" {
		t.Errorf("prompt variant = %q", resp.PromptVariant)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("request path = %q, want /v1/chat/completions", gotPath)
	}
	if gotPayload["model"] != "qwen-vl-chat" {
		t.Errorf("payload model = %v", gotPayload["model"])
	}
	if gotPayload["max_tokens"] != float64(256) {
		t.Errorf("payload max_tokens = %v, want 256", gotPayload["max_tokens"])
	}
	messages, ok := gotPayload["messages"].([]interface{})
	if !ok || len(messages) != 2 {
		t.Fatalf("payload should carry system and user messages, got %v", gotPayload["messages"])
	}
}

func TestClassifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, trace.NewStore(10))
	_, err := client.Classify(context.Background(), []byte("jpeg"))
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("5xx error = %v, want ErrNoResult", err)
	}
}

func TestClassifyClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, trace.NewStore(10))
	_, err := client.Classify(context.Background(), []byte("jpeg"))
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("4xx error = %v, want ErrNoResult", err)
	}
}

func TestClassifyUnparsableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "not json at all"}}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, trace.NewStore(10))
	_, err := client.Classify(context.Background(), []byte("jpeg"))
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("unparsable answer error = %v, want ErrNoResult", err)
	}
}

func TestClassifyTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	store := trace.NewStore(10)
	client := newTestClient(srv.URL, store)

	_, err := client.Classify(context.Background(), []byte("jpeg"))

	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("transport failure error = %v, want *UnavailableError", err)
	}
	if unavailable.TraceID == "" {
		t.Error("unavailable error should carry a trace id")
	}

	// The failed attempt is recorded with its error before returning.
	entry, ok := store.Get(unavailable.TraceID)
	if !ok {
		t.Fatal("expected a failure trace entry")
	}
	if entry.Error == "" {
		t.Error("failure trace entry should carry the error message")
	}
	if entry.Mocked {
		t.Error("failure trace entry should not be marked mocked")
	}
}

func TestClassifyAuthorizationHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "{\"machine\": \"Lat Pulldown\", \"confidence\": 0.9}"}}]}`))
	}))
	defer srv.Close()

	cfg := testVLMConfig(srv.URL)
	cfg.APIKey = "secret-key"
	client := NewClient(cfg, "prompt", "enhanced_baseline", testCatalog, trace.NewStore(10))

	if _, err := client.Classify(context.Background(), []byte("jpeg")); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization = %q, want Bearer secret-key", gotAuth)
	}
}
