// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

// Package inference orchestrates one identification attempt: a single call to
// the vision model, an optional deterministic fallback, and trace recording.
// Every terminal path records exactly one trace entry.
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/machinemate/machinemate/internal/logging"
	"github.com/machinemate/machinemate/internal/metrics"
	"github.com/machinemate/machinemate/internal/models"
	"github.com/machinemate/machinemate/internal/trace"
	"github.com/machinemate/machinemate/internal/vlm"
)

// ErrNoPathway signals that the model produced nothing usable and the mock
// fallback is disabled.
var ErrNoPathway = errors.New("no inference pathway available")

// Classifier is the upstream model dependency. *vlm.Client satisfies it.
type Classifier interface {
	Classify(ctx context.Context, imageBytes []byte) (*vlm.Response, error)
	Prompt() string
	PromptVariant() string
}

// Service runs the identify pipeline.
type Service struct {
	classifier   Classifier
	store        *trace.Store
	model        string
	mockFallback bool
}

// NewService wires the orchestrator. The trace store is an explicit
// dependency owned by the process bootstrap, shared with the inspection API.
func NewService(classifier Classifier, store *trace.Store, model string, mockFallback bool) *Service {
	return &Service{
		classifier:   classifier,
		store:        store,
		model:        model,
		mockFallback: mockFallback,
	}
}

// Identify classifies one image. Exactly one upstream attempt is made.
//
// Outcomes:
//   - model answered: the canonicalized result, trace recorded.
//   - transport failure: fallback result when enabled, else the
//     *vlm.UnavailableError propagates (the failed attempt is already traced).
//   - no usable answer: fallback result when enabled, else ErrNoPathway.
func (s *Service) Identify(ctx context.Context, imageBytes []byte) (*models.IdentifyResponse, error) {
	response, err := s.classifier.Classify(ctx, imageBytes)

	if err != nil {
		var unavailable *vlm.UnavailableError
		if errors.As(err, &unavailable) {
			logging.Warn().Str("trace_id", unavailable.TraceID).Str("detail", unavailable.Detail).
				Msg("vision model unavailable")
			if s.mockFallback {
				return s.mockResponse(), nil
			}
			metrics.IdentifyRequestsTotal.WithLabelValues("unavailable", s.classifier.PromptVariant()).Inc()
			return nil, unavailable
		}
		if errors.Is(err, vlm.ErrNoResult) {
			if s.mockFallback {
				return s.mockResponse(), nil
			}
			return nil, s.recordNoPathway()
		}
		return nil, fmt.Errorf("classify: %w", err)
	}

	return s.liveResponse(response), nil
}

// liveResponse records and returns a successful model result.
func (s *Service) liveResponse(response *vlm.Response) *models.IdentifyResponse {
	logging.Info().Str("trace_id", response.TraceID).Str("machine", response.Machine).
		Float64("confidence", response.Confidence).Bool("unmapped", response.Unmapped).
		Msg("vision model identification")

	s.record(trace.Entry{
		TraceID:       response.TraceID,
		Machine:       response.Machine,
		Confidence:    response.Confidence,
		RawText:       response.RawText,
		RawMachine:    response.RawMachine,
		MatchScore:    response.MatchScore,
		MatchScoreSet: response.MatchScoreSet,
		Unmapped:      response.Unmapped,
		Model:         s.model,
		Prompt:        s.classifier.Prompt(),
		PromptVariant: response.PromptVariant,
	})

	outcome := "identified"
	if response.Unmapped {
		outcome = "unmapped"
	}
	metrics.IdentifyRequestsTotal.WithLabelValues(outcome, response.PromptVariant).Inc()
	metrics.IdentifyConfidence.Observe(response.Confidence)

	return &models.IdentifyResponse{
		Machine:    response.Machine,
		Confidence: response.Confidence,
		TraceID:    response.TraceID,
		Mocked:     false,
		Unmapped:   response.Unmapped,
	}
}

// mockResponse synthesizes the deterministic fallback result. It deliberately
// answers Unknown with zero confidence so clients can distinguish a fallback
// from a real identification.
func (s *Service) mockResponse() *models.IdentifyResponse {
	traceID := uuid.NewString()
	logging.Info().Str("trace_id", traceID).Msg("mock fallback identification")

	s.record(trace.Entry{
		TraceID:       traceID,
		Machine:       "Unknown",
		Confidence:    0.0,
		Mocked:        true,
		RawMachine:    "Unknown",
		Unmapped:      true,
		Model:         s.model,
		Prompt:        s.classifier.Prompt(),
		PromptVariant: s.classifier.PromptVariant(),
	})

	metrics.IdentifyRequestsTotal.WithLabelValues("mocked", s.classifier.PromptVariant()).Inc()

	return &models.IdentifyResponse{
		Machine:    "Unknown",
		Confidence: 0.0,
		TraceID:    traceID,
		Mocked:     true,
		Unmapped:   true,
	}
}

// recordNoPathway traces the dead end before surfacing ErrNoPathway.
func (s *Service) recordNoPathway() error {
	traceID := uuid.NewString()
	s.record(trace.Entry{
		TraceID:       traceID,
		Error:         ErrNoPathway.Error(),
		Model:         s.model,
		Prompt:        s.classifier.Prompt(),
		PromptVariant: s.classifier.PromptVariant(),
	})
	metrics.IdentifyRequestsTotal.WithLabelValues("no_result", s.classifier.PromptVariant()).Inc()
	return fmt.Errorf("%w (trace %s)", ErrNoPathway, traceID)
}

func (s *Service) record(entry trace.Entry) {
	s.store.Record(entry)
	metrics.TraceStoreEntries.Set(float64(s.store.Len()))
}

// TraceDetails returns the stored trace for an id, shaped for the API.
func (s *Service) TraceDetails(traceID string) (*models.TraceDetails, bool) {
	entry, ok := s.store.Get(traceID)
	if !ok {
		return nil, false
	}

	details := &models.TraceDetails{
		TraceID:       entry.TraceID,
		Machine:       entry.Machine,
		Mocked:        entry.Mocked,
		RawText:       entry.RawText,
		RawMachine:    entry.RawMachine,
		Unmapped:      entry.Unmapped,
		Model:         entry.Model,
		Prompt:        entry.Prompt,
		PromptVariant: entry.PromptVariant,
		Error:         entry.Error,
		CreatedAt:     entry.CreatedAt,
	}
	if entry.Machine != "" {
		confidence := entry.Confidence
		details.Confidence = &confidence
	}
	if entry.MatchScoreSet {
		score := entry.MatchScore
		details.MatchScore = &score
	}
	return details, true
}
