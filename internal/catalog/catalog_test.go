// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	data := []byte(`[
		{"id": "leg-press", "name": "Seated Leg Press", "category": "Lower Body",
		 "recognition": {"visualPrompts": ["angled footplate"], "keywords": ["sled"], "synonyms": ["leg press"]}},
		{"id": "lat-pulldown", "name": "Lat Pulldown", "category": "Upper Body"},
		{"id": "dup", "name": "Seated Leg Press", "category": "Lower Body"},
		{"id": "anon", "name": ""}
	]`)

	cat, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	names := cat.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 unique names, got %d: %v", len(names), names)
	}
	// Catalog order is preserved; duplicates drop first-wins.
	if names[0] != "Seated Leg Press" || names[1] != "Lat Pulldown" {
		t.Errorf("unexpected name order: %v", names)
	}
	if !cat.HasMetadata() {
		t.Error("expected metadata to be available")
	}
	if got := cat.Entries()[0].Recognition.VisualPrompts[0]; got != "angled footplate" {
		t.Errorf("unexpected visual prompt: %q", got)
	}
}

func TestParseInvalidJSON(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cat := Load("/nonexistent/machines.json")
	if cat.Len() != 6 {
		t.Errorf("expected built-in six-machine fallback, got %d entries", cat.Len())
	}
	if cat.HasMetadata() {
		t.Error("fallback catalog should carry no metadata")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machines.json")
	content := `[{"id": "treadmill", "name": "Treadmill", "category": "Cardio"}]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cat := Load(path)
	if cat.Len() != 1 || cat.Names()[0] != "Treadmill" {
		t.Errorf("unexpected catalog: %v", cat.Names())
	}
}

func TestFromNames(t *testing.T) {
	cat := FromNames([]string{"A", "B", "A", ""})
	if got := cat.Names(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("FromNames = %v, want [A B]", got)
	}
}
