// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

// Package catalog loads the fixed machine catalog used by the inference
// pipeline and the database seeder.
//
// The catalog is an ordered sequence of canonical machine names, unique,
// loaded once at startup and immutable for the process lifetime. Each entry
// optionally carries recognition metadata (visual prompts, keywords, synonyms,
// category) that enriches prompts but never substitutes for the name list.
package catalog

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/machinemate/machinemate/internal/logging"
)

// Recognition holds visual recognition metadata for one machine.
type Recognition struct {
	VisualPrompts []string `json:"visualPrompts"`
	Keywords      []string `json:"keywords"`
	Synonyms      []string `json:"synonyms"`
}

// Machine is one catalog entry as stored in the machines data file.
// The data file uses camelCase keys (shared with the mobile app).
type Machine struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Category         string      `json:"category"`
	Difficulty       string      `json:"difficulty"`
	PrimaryMuscles   []string    `json:"primaryMuscles"`
	SecondaryMuscles []string    `json:"secondaryMuscles"`
	SetupSteps       []string    `json:"setupSteps"`
	HowToSteps       []string    `json:"howToSteps"`
	CommonMistakes   []string    `json:"commonMistakes"`
	SafetyTips       []string    `json:"safetyTips"`
	BeginnerTips     []string    `json:"beginnerTips"`
	MuscleDiagramURL string      `json:"muscleDiagramImage"`
	DemoVideoURL     string      `json:"demoVideoUrl"`
	SearchKeywords   []string    `json:"searchKeywords"`
	Recognition      Recognition `json:"recognition"`
}

// Catalog is the immutable machine catalog.
type Catalog struct {
	names   []string
	entries []Machine
}

// defaultNames is the built-in fallback used when no catalog file is available.
var defaultNames = []string{
	"Chest Press Machine",
	"Lat Pulldown",
	"Seated Cable Row",
	"Seated Leg Press",
	"Shoulder Press Machine",
	"Treadmill",
}

// Default returns the built-in six-machine catalog without metadata.
func Default() *Catalog {
	names := make([]string, len(defaultNames))
	copy(names, defaultNames)
	return &Catalog{names: names}
}

// Load reads the catalog from a JSON file. Duplicate names are dropped
// first-wins so catalog order stays the canonicalization tie-break. A missing
// or unreadable file falls back to the built-in default list with a warning.
func Load(path string) *Catalog {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("machine catalog unreadable, using built-in defaults")
		return Default()
	}

	cat, err := Parse(data)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("machine catalog invalid, using built-in defaults")
		return Default()
	}
	if cat.Len() == 0 {
		logging.Warn().Str("path", path).Msg("machine catalog empty, using built-in defaults")
		return Default()
	}

	logging.Info().Str("path", path).Int("machines", cat.Len()).Msg("machine catalog loaded")
	return cat
}

// Parse builds a catalog from raw JSON. Entries without a name are skipped.
func Parse(data []byte) (*Catalog, error) {
	var entries []Machine
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode machine catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(entries))
	cat := &Catalog{}
	for _, entry := range entries {
		if entry.Name == "" {
			continue
		}
		if _, dup := seen[entry.Name]; dup {
			continue
		}
		seen[entry.Name] = struct{}{}
		cat.names = append(cat.names, entry.Name)
		cat.entries = append(cat.entries, entry)
	}
	return cat, nil
}

// FromNames builds a metadata-free catalog from an ordered name list.
// Duplicates are dropped first-wins. Intended for tests and fallbacks.
func FromNames(names []string) *Catalog {
	seen := make(map[string]struct{}, len(names))
	cat := &Catalog{}
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		cat.names = append(cat.names, name)
	}
	return cat
}

// Names returns the ordered canonical machine names. Callers must not mutate
// the returned slice.
func (c *Catalog) Names() []string {
	return c.names
}

// Entries returns the full catalog entries with metadata. Empty when the
// catalog was built from a bare name list.
func (c *Catalog) Entries() []Machine {
	return c.entries
}

// HasMetadata reports whether recognition metadata is available.
func (c *Catalog) HasMetadata() bool {
	return len(c.entries) > 0
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.names)
}
