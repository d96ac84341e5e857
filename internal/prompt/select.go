// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package prompt

import (
	"math/rand/v2"

	"github.com/machinemate/machinemate/internal/logging"
)

// Select resolves the active variant once at service construction. With A/B
// testing enabled a variant is drawn uniformly at random; otherwise the
// configured name is parsed. The choice holds for the process lifetime.
func Select(configured string, abTesting bool) Variant {
	if abTesting {
		variants := Variants()
		selected := variants[rand.IntN(len(variants))]
		logging.Info().Str("variant", selected.String()).Str("method", "random_ab_test").
			Msg("prompt variant selected")
		return selected
	}

	selected := ParseVariant(configured)
	logging.Info().Str("variant", selected.String()).Str("method", "config").
		Msg("prompt variant selected")
	return selected
}
