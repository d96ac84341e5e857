// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package inference

import (
	"context"
	"errors"
	"testing"

	"github.com/machinemate/machinemate/internal/trace"
	"github.com/machinemate/machinemate/internal/vlm"
)

// fakeClassifier returns a canned response or error.
type fakeClassifier struct {
	response *vlm.Response
	err      error
}

func (f *fakeClassifier) Classify(ctx context.Context, imageBytes []byte) (*vlm.Response, error) {
	return f.response, f.err
}

func (f *fakeClassifier) Prompt() string        { return "test prompt" }
func (f *fakeClassifier) PromptVariant() string { return "enhanced_baseline" }

func TestIdentifyLiveResult(t *testing.T) {
	store := trace.NewStore(10)
	classifier := &fakeClassifier{
		response: &vlm.Response{
			Machine:       "Lat Pulldown",
			Confidence:    0.92,
			RawText:       `{"machine": "Lat Pulldown", "confidence": 0.92}`,
			TraceID:       "trace-1",
			RawMachine:    "Lat Pulldown",
			MatchScore:    1.0,
			MatchScoreSet: true,
			PromptVariant: "enhanced_baseline",
		},
	}
	svc := NewService(classifier, store, "qwen-vl-chat", true)

	resp, err := svc.Identify(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if resp.Machine != "Lat Pulldown" || resp.Confidence != 0.92 || resp.Mocked {
		t.Errorf("unexpected response: %+v", resp)
	}

	entry, ok := store.Get("trace-1")
	if !ok {
		t.Fatal("live result should be trace-recorded")
	}
	if entry.Machine != "Lat Pulldown" || entry.Model != "qwen-vl-chat" || entry.Prompt != "test prompt" {
		t.Errorf("unexpected trace entry: %+v", entry)
	}
	if store.Len() != 1 {
		t.Errorf("exactly one trace entry expected, got %d", store.Len())
	}
}

func TestIdentifyUnavailableWithFallback(t *testing.T) {
	store := trace.NewStore(10)
	classifier := &fakeClassifier{err: &vlm.UnavailableError{TraceID: "failed-trace", Detail: "connection refused"}}
	svc := NewService(classifier, store, "qwen-vl-chat", true)

	resp, err := svc.Identify(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("fallback should swallow the error, got %v", err)
	}
	// The fallback is deterministic: Unknown, zero confidence, flagged.
	if resp.Machine != "Unknown" || resp.Confidence != 0.0 {
		t.Errorf("fallback result = %q/%v, want Unknown/0.0", resp.Machine, resp.Confidence)
	}
	if !resp.Mocked || !resp.Unmapped {
		t.Errorf("fallback flags = mocked:%v unmapped:%v, want both true", resp.Mocked, resp.Unmapped)
	}
	if resp.TraceID == "" || resp.TraceID == "failed-trace" {
		t.Errorf("fallback should mint its own trace id, got %q", resp.TraceID)
	}

	entry, ok := store.Get(resp.TraceID)
	if !ok {
		t.Fatal("fallback result should be trace-recorded")
	}
	if !entry.Mocked || entry.Machine != "Unknown" {
		t.Errorf("unexpected fallback trace entry: %+v", entry)
	}
}

func TestIdentifyUnavailableWithoutFallback(t *testing.T) {
	store := trace.NewStore(10)
	classifier := &fakeClassifier{err: &vlm.UnavailableError{TraceID: "failed-trace", Detail: "timeout"}}
	svc := NewService(classifier, store, "qwen-vl-chat", false)

	_, err := svc.Identify(context.Background(), []byte("jpeg"))

	var unavailable *vlm.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want *vlm.UnavailableError", err)
	}
	if unavailable.TraceID != "failed-trace" {
		t.Errorf("trace id = %q, want failed-trace", unavailable.TraceID)
	}
}

func TestIdentifyNoResultWithFallback(t *testing.T) {
	store := trace.NewStore(10)
	classifier := &fakeClassifier{err: vlm.ErrNoResult}
	svc := NewService(classifier, store, "qwen-vl-chat", true)

	resp, err := svc.Identify(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("fallback should produce a result, got %v", err)
	}
	if resp.Machine != "Unknown" || !resp.Mocked {
		t.Errorf("unexpected fallback: %+v", resp)
	}
}

func TestIdentifyNoResultWithoutFallback(t *testing.T) {
	store := trace.NewStore(10)
	classifier := &fakeClassifier{err: vlm.ErrNoResult}
	svc := NewService(classifier, store, "qwen-vl-chat", false)

	_, err := svc.Identify(context.Background(), []byte("jpeg"))
	if !errors.Is(err, ErrNoPathway) {
		t.Fatalf("error = %v, want ErrNoPathway", err)
	}
	// The dead end is still traced.
	if store.Len() != 1 {
		t.Errorf("expected one trace entry for the dead end, got %d", store.Len())
	}
}

func TestTraceDetails(t *testing.T) {
	store := trace.NewStore(10)
	svc := NewService(&fakeClassifier{}, store, "qwen-vl-chat", false)

	store.Record(trace.Entry{
		TraceID:       "t1",
		Machine:       "Treadmill",
		Confidence:    0.8,
		MatchScore:    0.95,
		MatchScoreSet: true,
		PromptVariant: "few_shot",
	})
	store.Record(trace.Entry{TraceID: "t2", Error: "boom"})

	details, ok := svc.TraceDetails("t1")
	if !ok {
		t.Fatal("expected trace details for t1")
	}
	if details.Confidence == nil || *details.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", details.Confidence)
	}
	if details.MatchScore == nil || *details.MatchScore != 0.95 {
		t.Errorf("match score = %v, want 0.95", details.MatchScore)
	}

	failure, ok := svc.TraceDetails("t2")
	if !ok {
		t.Fatal("expected trace details for t2")
	}
	if failure.Confidence != nil {
		t.Error("failure entries should omit confidence")
	}
	if failure.Error != "boom" {
		t.Errorf("error = %q, want boom", failure.Error)
	}

	if _, ok := svc.TraceDetails("missing"); ok {
		t.Error("missing trace id should report not found")
	}
}
