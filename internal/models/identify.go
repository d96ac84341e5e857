// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package models

import (
	"time"
)

// IdentifyResponse is the result of one machine identification request.
// The HTTP layer maps these fields directly into the response body and never
// re-derives confidence or flags.
type IdentifyResponse struct {
	// Machine is the predicted label: a canonical catalog entry, the raw
	// unmapped model text, or the literal "Unknown" fallback label.
	Machine string `json:"machine"`

	// Confidence in [0, 1], adjusted by canonicalization policy.
	Confidence float64 `json:"confidence"`

	// TraceID correlates this result with a stored trace entry.
	TraceID string `json:"trace_id"`

	// Mocked is true when no live model call contributed to this result.
	Mocked bool `json:"mocked"`

	// Unmapped is true when no canonical label could be confidently chosen.
	Unmapped bool `json:"unmapped"`
}

// TraceDetails exposes the full trace record for the inspection endpoint,
// including the raw model output and the exact prompt used.
type TraceDetails struct {
	TraceID       string    `json:"trace_id"`
	Machine       string    `json:"machine,omitempty"`
	Confidence    *float64  `json:"confidence,omitempty"`
	Mocked        bool      `json:"mocked"`
	RawText       string    `json:"raw_text,omitempty"`
	RawMachine    string    `json:"raw_machine,omitempty"`
	MatchScore    *float64  `json:"match_score,omitempty"`
	Unmapped      bool      `json:"unmapped"`
	Model         string    `json:"model,omitempty"`
	Prompt        string    `json:"prompt,omitempty"`
	PromptVariant string    `json:"prompt_variant,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// HealthStatus reports service health for monitoring and load balancers.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	Environment       string  `json:"environment"`
	DatabaseConnected bool    `json:"database_connected"`
	VLMConfigured     bool    `json:"vlm_configured"`
	MockingEnabled    bool    `json:"mocking_enabled"`
	Uptime            float64 `json:"uptime"`
}
