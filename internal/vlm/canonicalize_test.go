// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package vlm

import (
	"math"
	"testing"
)

var testCatalog = []string{"Leg Press Machine", "Lat Pulldown", "Seated Cable Row"}

func TestNormalizeMachineText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Lat Pulldown", "lat pulldown"},
		{"  LEG-PRESS   machine!! ", "leg press machine"},
		{"seated_cable_row", "seated cable row"},
		{"...", ""},
		{"", ""},
		{"Machine #2", "machine 2"},
	}

	for _, tt := range tests {
		if got := normalizeMachineText(tt.in); got != tt.want {
			t.Errorf("normalizeMachineText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalizeExactMatch(t *testing.T) {
	c := NewCanonicalizer(testCatalog)

	// Every catalog entry maps onto itself with score 1.0.
	for _, name := range testCatalog {
		got, score, ok := c.Canonicalize(name)
		if !ok || got != name || score != 1.0 {
			t.Errorf("Canonicalize(%q) = (%q, %v, %v), want (%q, 1.0, true)", name, got, score, ok, name)
		}
	}

	// Case and punctuation differences still match exactly after normalization.
	got, score, ok := c.Canonicalize("leg press machine")
	if !ok || got != "Leg Press Machine" || score != 1.0 {
		t.Errorf("lowercased exact = (%q, %v, %v)", got, score, ok)
	}
}

func TestCanonicalizeSubstring(t *testing.T) {
	c := NewCanonicalizer(testCatalog)

	// "lat pulldown machine" contains the normalized catalog entry.
	got, score, ok := c.Canonicalize("Lat Pulldown Machine")
	if !ok || got != "Lat Pulldown" {
		t.Fatalf("Canonicalize = (%q, %v, %v), want Lat Pulldown", got, score, ok)
	}
	if score < SubstringScore {
		t.Errorf("substring containment score = %v, want >= %v", score, SubstringScore)
	}
}

func TestCanonicalizeFuzzy(t *testing.T) {
	c := NewCanonicalizer(testCatalog)

	got, score, ok := c.Canonicalize("lat puldown")
	if !ok || got != "Lat Pulldown" {
		t.Fatalf("Canonicalize = (%q, %v, %v), want fuzzy Lat Pulldown match", got, score, ok)
	}
	if score < MatchThreshold || score >= 1.0 {
		t.Errorf("fuzzy score = %v, want in [%v, 1.0)", score, MatchThreshold)
	}
}

func TestCanonicalizeNoMatch(t *testing.T) {
	c := NewCanonicalizer(testCatalog)

	got, score, ok := c.Canonicalize("mystery device")
	if ok || got != "" {
		t.Errorf("Canonicalize = (%q, %v, %v), want rejection", got, score, ok)
	}
	if score >= MatchThreshold {
		t.Errorf("rejected score = %v, should be below threshold %v", score, MatchThreshold)
	}
}

func TestCanonicalizeEmpty(t *testing.T) {
	c := NewCanonicalizer(testCatalog)

	if got, score, ok := c.Canonicalize("   !!! "); ok || got != "" || score != 0 {
		t.Errorf("Canonicalize on empty normalized input = (%q, %v, %v), want (\"\", 0, false)", got, score, ok)
	}
}

func TestSequenceRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"abc", "abc", 1.0},
		{"abc", "xyz", 0.0},
		// difflib: SequenceMatcher(None, "abcd", "bcde").ratio() == 0.75
		{"abcd", "bcde", 0.75},
	}

	for _, tt := range tests {
		if got := sequenceRatio(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("sequenceRatio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSequenceRatioSymmetricBounds(t *testing.T) {
	pairs := [][2]string{
		{"leg press", "leg press machine"},
		{"seated row", "seated cable row"},
		{"treadmill", "lat pulldown"},
	}
	for _, p := range pairs {
		r := sequenceRatio(p[0], p[1])
		if r < 0 || r > 1 {
			t.Errorf("sequenceRatio(%q, %q) = %v out of [0,1]", p[0], p[1], r)
		}
	}
}
