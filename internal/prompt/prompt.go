// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

// Package prompt builds the instruction prompts sent to the vision model.
//
// Three variants exist for A/B testing recognition accuracy: an enhanced
// baseline with visual feature descriptions, a few-shot variant with worked
// examples, and a chain-of-thought variant that reasons before answering.
// All variants enumerate the catalog names verbatim and demand a JSON-only
// answer of the form {"machine": "...", "confidence": 0.0}.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/machinemate/machinemate/internal/catalog"
	"github.com/machinemate/machinemate/internal/logging"
)

// Variant selects a prompt-building strategy. The set is closed; callers
// obtain values via the constants or ParseVariant only.
type Variant int

const (
	// VariantBaseline is the enhanced baseline prompt with visual feature
	// descriptions and calibrated confidence guidance.
	VariantBaseline Variant = iota
	// VariantFewShot adds worked examples of correct and incorrect answers.
	VariantFewShot
	// VariantChainOfThought asks for step-by-step reasoning before the
	// final JSON answer. Uses more tokens.
	VariantChainOfThought
)

// String returns the canonical wire name of the variant.
func (v Variant) String() string {
	switch v {
	case VariantFewShot:
		return "few_shot"
	case VariantChainOfThought:
		return "chain_of_thought"
	default:
		return "enhanced_baseline"
	}
}

// Variants lists all variants in a stable order.
func Variants() []Variant {
	return []Variant{VariantBaseline, VariantFewShot, VariantChainOfThought}
}

// ParseVariant maps a configured name to a variant. Unrecognized names fall
// back to the baseline with a logged warning rather than failing startup.
func ParseVariant(name string) Variant {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "baseline", "enhanced_baseline":
		return VariantBaseline
	case "few_shot", "fewshot":
		return VariantFewShot
	case "chain_of_thought", "cot":
		return VariantChainOfThought
	default:
		logging.Warn().Str("variant", name).Msg("unknown prompt variant, falling back to enhanced_baseline")
		return VariantBaseline
	}
}

// Build renders the prompt for the given variant. machines carries optional
// recognition metadata; pass nil to omit the visual features guide.
func Build(v Variant, names []string, machines []catalog.Machine) string {
	switch v {
	case VariantFewShot:
		return buildFewShot(names, machines)
	case VariantChainOfThought:
		return buildChainOfThought(names, machines)
	default:
		return buildBaseline(names, machines)
	}
}

// buildVisualGuide renders recognition metadata grouped by category. Machines
// without visual prompts or keywords are omitted from the guide.
func buildVisualGuide(machines []catalog.Machine) string {
	if len(machines) == 0 {
		return ""
	}

	byCategory := make(map[string][]catalog.Machine)
	for _, m := range machines {
		cat := m.Category
		if cat == "" {
			cat = "Unknown"
		}
		byCategory[cat] = append(byCategory[cat], m)
	}

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("Visual Features Guide by Category:\n")
	for _, cat := range categories {
		b.WriteString("\n" + cat + ":")
		for _, m := range byCategory[cat] {
			var features []string
			features = append(features, m.Recognition.VisualPrompts...)
			if len(m.Recognition.Keywords) > 0 {
				features = append(features, "Key features: "+strings.Join(m.Recognition.Keywords, ", "))
			}
			if len(features) > 0 {
				b.WriteString("\n  - " + m.Name + ": " + strings.Join(features, "; "))
			}
		}
	}
	return b.String()
}

// guideSection wraps the visual guide in surrounding newlines, or returns ""
// so the prompt templates collapse cleanly when no metadata is available.
func guideSection(machines []catalog.Machine) string {
	guide := buildVisualGuide(machines)
	if guide == "" {
		return ""
	}
	return "\n" + guide + "\n"
}

func buildBaseline(names []string, machines []catalog.Machine) string {
	return fmt.Sprintf(`You are an expert gym equipment identifier specializing in accurate machine recognition.

Task: Identify the gym machine in the photo from this exact list:
%s

%s
Critical Rules for Accuracy:
1. ONLY identify a machine if you clearly see its distinctive features
2. Use EXACTLY one label from the list above - no modifications or new names
3. If no machine from the list is visible or identifiable, respond with {"machine": "Unknown", "confidence": 0.0}
4. If the image is too blurry, dark, or unclear to identify confidently, use "Unknown"
5. DO NOT guess - uncertainty should result in lower confidence or "Unknown"

Visual Analysis Approach:
- Look for key identifying features: footplates, handles, pads, cable systems, seat positions
- Consider the machine's orientation and angle in the photo
- Identify weight stack, sled, or resistance mechanism type
- Note the primary movement pattern (pressing, pulling, extension, rotation)

Confidence Calibration Guidelines:
- 0.9-1.0: Machine is clearly visible with all distinctive features identifiable
- 0.7-0.89: Machine is visible but some features are partially obscured
- 0.5-0.69: Likely this machine but missing clear visual confirmation
- 0.3-0.49: Uncertain, could be multiple machines
- 0.0-0.29: Cannot identify, unclear, or not in the list

Output Format:
Respond ONLY with valid JSON containing the machine name and confidence score:
{"machine": "Machine Name", "confidence": 0.85}

No markdown formatting, no explanations, no extra keys - just the JSON object.`,
		strings.Join(names, ", "), guideSection(machines))
}

func buildFewShot(names []string, machines []catalog.Machine) string {
	return fmt.Sprintf(`You are an expert gym equipment identifier. Your task is to identify gym machines accurately while avoiding false identifications.

Available machines to identify:
%s

%s
Examples of Correct Responses:

Example 1 - Clear Identification (High Confidence):
Image: Clear photo showing large angled footplate, seated position with back pad, weight sled mechanism
Response: {"machine": "Seated Leg Press", "confidence": 0.92}
Why: All distinctive features clearly visible - angled footplate, sled system, seated position

Example 2 - Partial View (Medium Confidence):
Image: Side view of machine with overhead bar and cable system, knee pads visible
Response: {"machine": "Lat Pulldown", "confidence": 0.68}
Why: Can see cable system and overhead bar, but angle makes full identification uncertain

Example 3 - Uncertain Between Similar Machines (Low Confidence):
Image: Pressing machine visible but can't clearly distinguish if chest, shoulder, or incline press
Response: {"machine": "Chest Press Machine", "confidence": 0.52}
Why: It's a press machine but specific type is unclear from angle

Example 4 - No Match (Unknown):
Image: Shows dumbbell rack and free weights area
Response: {"machine": "Unknown", "confidence": 0.0}
Why: Image shows equipment not in the available machines list

Example 5 - Too Unclear (Unknown):
Image: Blurry photo taken from far away, can't make out specific machine features
Response: {"machine": "Unknown", "confidence": 0.0}
Why: Image quality too poor to make reliable identification

Critical Rules:
1. Use EXACTLY one label from the available machines list
2. If no machine from the list is clearly visible → "Unknown" with confidence 0.0
3. If image is too blurry, dark, or unclear → "Unknown" with confidence 0.0
4. Confidence should reflect your certainty about the identification
5. When uncertain between similar machines, pick the most likely but use lower confidence (0.4-0.6)

Output Format:
Respond ONLY with valid JSON:
{"machine": "Machine Name", "confidence": 0.75}

No markdown, no explanations, no additional keys.`,
		strings.Join(names, ", "), guideSection(machines))
}

func buildChainOfThought(names []string, machines []catalog.Machine) string {
	return fmt.Sprintf(`You are an expert gym equipment identifier. Use careful step-by-step reasoning to accurately identify machines.

Available machines:
%s

%s
Step-by-Step Identification Process:

Step 1: Describe what you observe
First, describe the visual features you see in the image:
- What is the primary structure? (seat, bench, platform, frame)
- What movement components are visible? (handles, bars, pads, cables, foot plates)
- What is the resistance mechanism? (weight stack, sled, cables, plates)
- What is the body position? (seated, lying, standing)
- What movement pattern does it suggest? (pushing, pulling, extending, rotating)

Step 2: Match features to machine types
Based on your observations:
- Which machines from the list match these features?
- What are the key distinguishing features that narrow it down?
- Are there any features that rule out certain machines?
- If multiple machines could match, what features would distinguish them?

Step 3: Assess image quality and visibility
- Is the image clear enough to make a confident identification?
- Are the key distinguishing features visible?
- Could this be a machine not in the list?
- Is there any ambiguity or uncertainty?

Step 4: Make final decision
- Based on the above analysis, which machine is it?
- How confident are you? (consider image quality, feature visibility, and distinctiveness)
- If uncertain or no match, should this be "Unknown"?

Critical Rules:
1. If you cannot clearly see distinctive features → "Unknown"
2. If the machine is not in the available list → "Unknown"
3. If the image is too blurry, dark, or unclear → "Unknown"
4. Use EXACTLY one label from the list (or "Unknown")
5. Confidence should reflect genuine certainty, not guessing

Final Output Format:
After your reasoning, provide ONLY the final answer as valid JSON:
{"machine": "Machine Name", "confidence": 0.80}

Think through each step, then output only the JSON.`,
		strings.Join(names, ", "), guideSection(machines))
}
