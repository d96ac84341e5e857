// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

// Package vlm calls the upstream vision language model and turns its free-text
// answer into a canonical catalog machine.
//
// The client speaks the OpenAI chat completions protocol with the image
// attached as a base64 JPEG data URL. Calls are single-attempt, rate limited,
// and wrapped in a circuit breaker. A transport failure surfaces as a typed
// *UnavailableError carrying the trace id; an answer the pipeline cannot use
// (5xx, 4xx, empty or unparsable body) surfaces as ErrNoResult.
package vlm

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/machinemate/machinemate/internal/config"
	"github.com/machinemate/machinemate/internal/logging"
	"github.com/machinemate/machinemate/internal/metrics"
	"github.com/machinemate/machinemate/internal/trace"
)

// ErrNoResult signals that the model produced nothing usable. It covers
// upstream 4xx/5xx responses, empty bodies, and unparsable answers; callers
// decide whether to fall back.
var ErrNoResult = errors.New("vision model produced no usable result")

// UnavailableError is the typed failure for transport-level problems reaching
// the model (connection refused, timeout, breaker open). It carries the trace
// id of the failed attempt so API consumers can correlate.
type UnavailableError struct {
	TraceID string
	Detail  string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("visual model request failed (trace %s): %s", e.TraceID, e.Detail)
}

// Response is a successful classification with canonicalization detail.
type Response struct {
	Machine       string
	Confidence    float64
	RawText       string
	TraceID       string
	RawMachine    string
	MatchScore    float64
	MatchScoreSet bool
	Unmapped      bool
	PromptVariant string
}

// httpResult carries the upstream status and body through the breaker.
// Only transport errors count as breaker failures; HTTP error statuses are
// handled by the caller without tripping the circuit.
type httpResult struct {
	status int
	body   []byte
}

// Client calls the configured vision model endpoint.
type Client struct {
	cfg      config.VLMConfig
	endpoint string
	prompt   string
	variant  string
	canon    *Canonicalizer
	store    *trace.Store

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[httpResult]
	limiter    *rate.Limiter
}

// NewClient builds a client bound to one prompt and catalog. An empty base
// URL disables live calls; Classify then always returns ErrNoResult.
func NewClient(cfg config.VLMConfig, promptText, variantName string, machineOptions []string, store *trace.Store) *Client {
	c := &Client{
		cfg:      cfg,
		endpoint: buildEndpoint(cfg.BaseURL),
		prompt:   promptText,
		variant:  variantName,
		canon:    NewCanonicalizer(machineOptions),
		store:    store,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}

	if cfg.RateLimitPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1)
	}

	cbName := "vlm-api"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)
	c.breaker = gobreaker.NewCircuitBreaker[httpResult](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("vision model circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})

	return c
}

// Enabled reports whether a live endpoint is configured.
func (c *Client) Enabled() bool {
	return c.endpoint != ""
}

// Prompt returns the prompt sent with every request.
func (c *Client) Prompt() string {
	return c.prompt
}

// PromptVariant returns the wire name of the active prompt variant.
func (c *Client) PromptVariant() string {
	return c.variant
}

// Classify sends one image to the model. Single attempt, no retry.
//
// Returns ErrNoResult when the endpoint is disabled or the model answer is
// unusable, and *UnavailableError when the request could not complete. A
// failure TraceEntry is recorded before an *UnavailableError is returned.
func (c *Client) Classify(ctx context.Context, imageBytes []byte) (*Response, error) {
	if !c.Enabled() {
		logging.Info().Msg("vision model disabled, no base URL configured")
		return nil, ErrNoResult
	}

	traceID := uuid.NewString()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.recordFailure(traceID, "rate limit wait aborted: "+err.Error())
			return nil, &UnavailableError{TraceID: traceID, Detail: err.Error()}
		}
	}

	payload, err := c.buildPayload(imageBytes)
	if err != nil {
		c.recordFailure(traceID, "payload encoding failed: "+err.Error())
		return nil, &UnavailableError{TraceID: traceID, Detail: err.Error()}
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (httpResult, error) {
		return c.post(ctx, payload)
	})
	metrics.VLMRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "transport_error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "breaker_open"
		}
		metrics.VLMRequestsTotal.WithLabelValues(outcome).Inc()
		logging.Error().Err(err).Str("trace_id", traceID).Msg("vision model request failed")
		c.recordFailure(traceID, err.Error())
		return nil, &UnavailableError{TraceID: traceID, Detail: err.Error()}
	}

	if result.status >= 500 {
		metrics.VLMRequestsTotal.WithLabelValues("server_error").Inc()
		logging.Warn().Int("status", result.status).Str("trace_id", traceID).
			Str("body", truncate(string(result.body), 512)).Msg("vision model server error")
		return nil, ErrNoResult
	}
	if result.status >= 400 {
		metrics.VLMRequestsTotal.WithLabelValues("client_error").Inc()
		logging.Error().Int("status", result.status).Str("trace_id", traceID).
			Str("body", truncate(string(result.body), 512)).Msg("vision model client error")
		return nil, ErrNoResult
	}

	metrics.VLMRequestsTotal.WithLabelValues("ok").Inc()

	messageText := extractMessageText(result.body)
	if messageText == "" {
		logging.Warn().Str("trace_id", traceID).Msg("vision model returned empty message")
		return nil, ErrNoResult
	}

	outcome, ok := parseMachineJSON(c.canon, messageText, traceID)
	if !ok {
		return nil, ErrNoResult
	}

	return &Response{
		Machine:       outcome.Machine,
		Confidence:    outcome.Confidence,
		RawText:       messageText,
		TraceID:       traceID,
		RawMachine:    outcome.RawMachine,
		MatchScore:    outcome.MatchScore,
		MatchScoreSet: outcome.MatchScoreSet,
		Unmapped:      outcome.Unmapped,
		PromptVariant: c.variant,
	}, nil
}

func (c *Client) post(ctx context.Context, payload []byte) (httpResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return httpResult{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return httpResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return httpResult{}, err
	}
	return httpResult{status: resp.StatusCode, body: body}, nil
}

// buildPayload assembles the OpenAI chat completions request body. The prompt
// rides as the system message; the user message carries the image as a base64
// JPEG data URL.
func (c *Client) buildPayload(imageBytes []byte) ([]byte, error) {
	encoded := base64.StdEncoding.EncodeToString(imageBytes)
	model := c.cfg.Model
	if model == "" {
		model = "qwen-vl-chat"
	}

	payload := map[string]interface{}{
		"model": model,
		"messages": []map[string]interface{}{
			{
				"role": "system",
				"content": []map[string]interface{}{
					{"type": "text", "text": c.prompt},
				},
			},
			{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": "Here is the photo. Respond exactly as instructed in the system prompt."},
					{"type": "image_url", "image_url": map[string]string{
						"url": "data:image/jpeg;base64," + encoded,
					}},
				},
			},
		},
		"max_tokens":  256,
		"temperature": 0,
	}
	return json.Marshal(payload)
}

func (c *Client) recordFailure(traceID, errMsg string) {
	c.store.Record(trace.Entry{
		TraceID:       traceID,
		Mocked:        false,
		Error:         errMsg,
		Model:         c.cfg.Model,
		Prompt:        c.prompt,
		PromptVariant: c.variant,
	})
}

// buildEndpoint derives the chat completions URL from a configured base URL.
// Full endpoints pass through; bases ending in /v1 gain /chat/completions;
// bare hosts gain /v1/chat/completions.
func buildEndpoint(baseURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return ""
	}
	if strings.HasSuffix(trimmed, "/chat/completions") {
		return trimmed
	}
	if strings.HasSuffix(trimmed, "/v1") {
		return trimmed + "/chat/completions"
	}
	return trimmed + "/v1/chat/completions"
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
