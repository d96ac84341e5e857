// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package vlm

import "strings"

// Canonicalization thresholds. SubstringScore is deliberately generous; it can
// fire on short raw labels contained in longer catalog names, so it is kept as
// a named tunable rather than hard-coded policy.
const (
	// MatchThreshold is the minimum similarity score to accept a catalog match.
	MatchThreshold = 0.65
	// SubstringScore is the floor applied when one normalized string contains
	// the other.
	SubstringScore = 0.95
)

// Canonicalizer maps free-text machine labels onto a fixed catalog.
// When several entries score equally, the earliest catalog entry wins.
type Canonicalizer struct {
	options    []string
	normalized []string
}

// NewCanonicalizer builds a canonicalizer over the ordered catalog names.
func NewCanonicalizer(options []string) *Canonicalizer {
	normalized := make([]string, len(options))
	for i, opt := range options {
		normalized[i] = normalizeMachineText(opt)
	}
	return &Canonicalizer{options: options, normalized: normalized}
}

// Canonicalize resolves a raw label to its catalog entry. It returns the
// canonical name, the best similarity score seen, and whether the match was
// accepted. An exact normalized match short-circuits with score 1.0.
func (c *Canonicalizer) Canonicalize(value string) (string, float64, bool) {
	normalizedValue := normalizeMachineText(value)
	if normalizedValue == "" {
		return "", 0.0, false
	}

	bestScore := 0.0
	bestOption := ""
	found := false

	for i, optionNormalized := range c.normalized {
		if optionNormalized == normalizedValue {
			return c.options[i], 1.0, true
		}

		score := sequenceRatio(normalizedValue, optionNormalized)

		if strings.Contains(normalizedValue, optionNormalized) || strings.Contains(optionNormalized, normalizedValue) {
			if score < SubstringScore {
				score = SubstringScore
			}
		}

		if score > bestScore {
			bestScore = score
			bestOption = c.options[i]
			found = true
		}
	}

	if found && bestScore >= MatchThreshold {
		return bestOption, bestScore, true
	}
	return "", bestScore, false
}

// normalizeMachineText lowercases, replaces non-alphanumeric runs with a
// single space, and trims.
func normalizeMachineText(value string) string {
	lowered := strings.ToLower(value)
	mapped := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, lowered)
	return strings.Join(strings.Fields(mapped), " ")
}

// sequenceRatio computes the Ratcliff/Obershelp similarity of two strings:
// twice the number of matching characters divided by the total length, where
// matches are counted by recursively taking the longest common substring and
// matching the pieces to its left and right.
func sequenceRatio(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchingChars(a, b)) / float64(total)
}

func matchingChars(a, b string) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingChars(a[:ai], b[:bi]) +
		matchingChars(a[ai+size:], b[bi+size:])
}

// longestCommonSubstring returns the start offsets and length of the longest
// run of bytes common to a and b. Earliest occurrence wins ties. Inputs are
// normalized ASCII so byte indexing is safe.
func longestCommonSubstring(a, b string) (int, int, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	bestA, bestB, bestSize := 0, 0, 0
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > bestSize {
					bestSize = curr[j]
					bestA = i - bestSize
					bestB = j - bestSize
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return bestA, bestB, bestSize
}
