// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs before they
// reach the classifier. Feature vectors arrive over the network; rejecting
// malformed values here keeps NaN and infinity out of decision functions,
// where they would silently corrupt probability output.
package validation

import (
	"fmt"
	"math"
)

// MaxFeatureCount caps the length of a feature vector accepted from a
// network caller. The real arity check happens against the loaded model;
// this bound only prevents oversized payloads from being processed at all.
const MaxFeatureCount = 256

// ValidateFeatures checks that a feature vector is usable as classifier input.
//
// Valid vectors:
//   - Non-empty, at most MaxFeatureCount entries
//   - Every value finite (no NaN, no ±Inf)
//
// Returns an error naming the first offending index if invalid.
//
// Example:
//
//	if err := validation.ValidateFeatures(req.Features); err != nil {
//	    return nil, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
//	}
func ValidateFeatures(features []float64) error {
	if len(features) == 0 {
		return fmt.Errorf("features cannot be empty")
	}
	if len(features) > MaxFeatureCount {
		return fmt.Errorf("too many features: %d (max %d)", len(features), MaxFeatureCount)
	}
	for i, v := range features {
		if math.IsNaN(v) {
			return fmt.Errorf("feature %d is NaN", i)
		}
		if math.IsInf(v, 0) {
			return fmt.Errorf("feature %d is infinite", i)
		}
	}
	return nil
}
