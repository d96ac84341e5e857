// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package prompt

import (
	"strings"
	"testing"

	"github.com/machinemate/machinemate/internal/catalog"
)

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in   string
		want Variant
	}{
		{"baseline", VariantBaseline},
		{"enhanced_baseline", VariantBaseline},
		{"few_shot", VariantFewShot},
		{"FEW_SHOT", VariantFewShot},
		{"chain_of_thought", VariantChainOfThought},
		{"cot", VariantChainOfThought},
		{"", VariantBaseline},
		{"bogus", VariantBaseline},
		{"  baseline  ", VariantBaseline},
	}

	for _, tt := range tests {
		if got := ParseVariant(tt.in); got != tt.want {
			t.Errorf("ParseVariant(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestVariantString(t *testing.T) {
	if VariantBaseline.String() != "enhanced_baseline" {
		t.Errorf("baseline wire name = %q", VariantBaseline.String())
	}
	if VariantFewShot.String() != "few_shot" {
		t.Errorf("few shot wire name = %q", VariantFewShot.String())
	}
	if VariantChainOfThought.String() != "chain_of_thought" {
		t.Errorf("chain of thought wire name = %q", VariantChainOfThought.String())
	}
}

func TestBuildEnumeratesNamesVerbatim(t *testing.T) {
	names := []string{"Chest Press Machine", "Lat Pulldown", "Treadmill"}

	for _, v := range Variants() {
		p := Build(v, names, nil)
		if !strings.Contains(p, "Chest Press Machine, Lat Pulldown, Treadmill") {
			t.Errorf("%s: prompt missing verbatim name list", v)
		}
		if !strings.Contains(p, `"confidence"`) {
			t.Errorf("%s: prompt missing JSON output contract", v)
		}
		if !strings.Contains(p, `"machine": "Unknown", "confidence": 0.0`) &&
			!strings.Contains(p, `"Unknown"`) {
			t.Errorf("%s: prompt missing Unknown rule", v)
		}
	}
}

func TestBuildVariantsDiffer(t *testing.T) {
	names := []string{"Treadmill"}
	baseline := Build(VariantBaseline, names, nil)
	fewShot := Build(VariantFewShot, names, nil)
	cot := Build(VariantChainOfThought, names, nil)

	if baseline == fewShot || baseline == cot || fewShot == cot {
		t.Error("variants should render distinct prompts")
	}
	if !strings.Contains(fewShot, "Example 1") {
		t.Error("few shot prompt should contain worked examples")
	}
	if !strings.Contains(cot, "Step 1") {
		t.Error("chain of thought prompt should contain reasoning steps")
	}
}

func TestBuildVisualGuide(t *testing.T) {
	machines := []catalog.Machine{
		{
			Name:     "Seated Leg Press",
			Category: "Lower Body",
			Recognition: catalog.Recognition{
				VisualPrompts: []string{"large angled footplate"},
				Keywords:      []string{"sled", "footplate"},
			},
		},
		{
			Name:     "Lat Pulldown",
			Category: "Upper Body",
			Recognition: catalog.Recognition{
				Keywords: []string{"overhead bar"},
			},
		},
		{Name: "Bare Machine", Category: "Upper Body"},
	}

	guide := buildVisualGuide(machines)

	if !strings.Contains(guide, "Lower Body:") || !strings.Contains(guide, "Upper Body:") {
		t.Errorf("guide missing category headers:\n%s", guide)
	}
	if !strings.Contains(guide, "Seated Leg Press: large angled footplate; Key features: sled, footplate") {
		t.Errorf("guide missing combined features:\n%s", guide)
	}
	// Categories render in sorted order.
	if strings.Index(guide, "Lower Body:") > strings.Index(guide, "Upper Body:") {
		t.Error("categories should be sorted")
	}
	// Machines without any features are omitted.
	if strings.Contains(guide, "Bare Machine") {
		t.Error("machines without features should be omitted from the guide")
	}
}

func TestBuildVisualGuideEmpty(t *testing.T) {
	if got := buildVisualGuide(nil); got != "" {
		t.Errorf("empty metadata should yield empty guide, got %q", got)
	}

	p := Build(VariantBaseline, []string{"Treadmill"}, nil)
	if strings.Contains(p, "Visual Features Guide") {
		t.Error("prompt should omit guide section without metadata")
	}
}

func TestBuildEmptyCatalog(t *testing.T) {
	// Degenerate but must not panic; the contract text still renders.
	p := Build(VariantBaseline, nil, nil)
	if !strings.Contains(p, "Output Format") {
		t.Error("prompt should render even with an empty name list")
	}
}
