// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package vlm

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/machinemate/machinemate/internal/logging"
)

// highMatchScore is the score below which a mapped result's confidence is
// capped at 0.6.
const highMatchScore = 0.9

// Outcome is the parsed and canonicalized result of one model message.
type Outcome struct {
	Machine       string
	Confidence    float64
	RawMachine    string
	MatchScore    float64
	MatchScoreSet bool
	Unmapped      bool
}

// chatCompletion mirrors the slice of an OpenAI-style chat completions
// response we care about. Content may be a plain string or a list of typed
// chunks depending on the serving stack, so it stays raw until inspected.
type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Text    string          `json:"text"`
		} `json:"message"`
	} `json:"choices"`
}

type contentChunk struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// extractMessageText pulls the assistant message text out of a chat
// completions response body. Returns "" when no text is present.
func extractMessageText(body []byte) string {
	var completion chatCompletion
	if err := json.Unmarshal(body, &completion); err != nil {
		return ""
	}
	if len(completion.Choices) == 0 {
		return ""
	}

	msg := completion.Choices[0].Message
	if len(msg.Content) > 0 {
		var text string
		if err := json.Unmarshal(msg.Content, &text); err == nil {
			return text
		}
		var chunks []contentChunk
		if err := json.Unmarshal(msg.Content, &chunks); err == nil {
			for _, chunk := range chunks {
				if chunk.Type == "text" {
					return chunk.Text
				}
			}
		}
	}
	return msg.Text
}

// parseMachineJSON extracts and canonicalizes the {"machine", "confidence"}
// object from raw model text. It tries the full text as JSON first, then the
// substring between the first '{' and the last '}'. A false return means
// "no usable result", never a fatal error.
func parseMachineJSON(canon *Canonicalizer, text, traceID string) (Outcome, bool) {
	payload, ok := decodeObject(text, traceID)
	if !ok {
		return Outcome{}, false
	}

	machineVal, hasMachine := payload["machine"]
	confidenceVal, hasConfidence := payload["confidence"]
	if !hasMachine || !hasConfidence {
		logging.Warn().Str("trace_id", traceID).Msg("model response missing machine or confidence")
		return Outcome{}, false
	}

	machine, ok := machineVal.(string)
	if !ok || strings.TrimSpace(machine) == "" {
		logging.Warn().Str("trace_id", traceID).Msg("model response machine is not a non-empty string")
		return Outcome{}, false
	}

	confidence, ok := coerceFloat(confidenceVal)
	if !ok {
		logging.Warn().Str("trace_id", traceID).Interface("confidence", confidenceVal).
			Msg("model response confidence is not numeric")
		return Outcome{}, false
	}
	confidence = clamp01(confidence)

	raw := strings.TrimSpace(machine)
	canonical, score, mapped := canon.Canonicalize(raw)

	out := Outcome{
		Confidence: confidence,
		RawMachine: raw,
	}
	if score > 0 {
		out.MatchScore = score
		out.MatchScoreSet = true
	}

	if mapped {
		out.Machine = canonical
		if score < highMatchScore {
			out.Confidence = min(out.Confidence, 0.6)
		}
		if !strings.EqualFold(canonical, raw) {
			logging.Info().Str("trace_id", traceID).Str("raw", raw).Str("normalized", canonical).
				Float64("score", score).Msg("model response machine normalized to catalog entry")
		}
		return out, true
	}

	out.Machine = raw
	if out.Machine == "" {
		out.Machine = "Unknown"
	}
	out.Unmapped = true
	out.Confidence = min(out.Confidence, 0.49)
	logging.Warn().Str("trace_id", traceID).Str("raw", raw).Float64("score", score).
		Msg("model response machine not in catalog")
	return out, true
}

// decodeObject parses text as a JSON object, falling back to the substring
// between the first '{' and last '}'.
func decodeObject(text, traceID string) (map[string]interface{}, bool) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		return payload, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		logging.Warn().Str("trace_id", traceID).Str("text", truncate(text, 200)).
			Msg("model response is not JSON")
		return nil, false
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		logging.Warn().Str("trace_id", traceID).Str("text", truncate(text, 200)).
			Msg("model response contains no parsable JSON object")
		return nil, false
	}
	return payload, true
}

// coerceFloat converts the confidence value to a finite float64. NaN and
// infinities count as non-numeric; clamping cannot bound them.
func coerceFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, isFinite(val)
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil && isFinite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil && isFinite(f)
	default:
		return 0, false
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
