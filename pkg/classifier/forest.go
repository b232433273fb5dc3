// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classifier implements a random-forest classifier with a JSON
// artifact format.
//
// # Description
//
// Each tree is stored as a flat node array: the root at index 0, children
// at strictly larger indices. Inference walks the array iteratively, so a
// degenerate artifact cannot recurse unboundedly, and Validate rejects any
// structure whose links could loop or escape the array before the forest
// is ever used.
//
// Leaves carry per-class sample counts from training. PredictProba turns
// those counts into a probability vector by normalizing each leaf and
// averaging across trees, matching the behavior of ensemble classifiers
// that expose predict_proba.
//
// # Thread Safety
//
// A Forest is immutable after decode/training; all inference methods are
// safe for concurrent use.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for forest decoding and inference.
var (
	// ErrMalformedForest is returned when a decoded artifact has an
	// inconsistent structure (bad node links, missing leaf counts,
	// feature indices out of range).
	ErrMalformedForest = errors.New("malformed forest structure")

	// ErrEmptyForest is returned when a forest carries no trees.
	ErrEmptyForest = errors.New("forest has no trees")

	// ErrFeatureArity is returned when an input vector length does not
	// match the forest's feature count.
	ErrFeatureArity = errors.New("feature vector length mismatch")
)

// Node is a single decision node inside a tree.
//
// Interior nodes route on Feature/Threshold; leaves carry Counts, the
// per-class training sample counts observed at that leaf.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Counts    []float64 `json:"counts,omitempty"`
	Leaf      bool      `json:"leaf"`
}

// Tree is one decision tree stored as a flat node array.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is the serialized classifier artifact.
type Forest struct {
	NumFeatures int    `json:"num_features"`
	NumClasses  int    `json:"num_classes"`
	Trees       []Tree `json:"trees"`
}

// Decode deserializes a forest artifact and validates its structure.
//
// A structurally invalid forest is rejected here; callers never have to
// guard individual predictions against bad node links.
func Decode(data []byte) (*Forest, error) {
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Encode serializes the forest to its JSON artifact form.
func (f *Forest) Encode() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(f)
}

// Validate checks the structural invariants of the forest.
//
// Every interior node must route on a valid feature index and link to
// children at strictly larger indices within the tree (which guarantees
// iterative descent terminates). Every leaf must carry exactly one count
// per class with positive total mass.
func (f *Forest) Validate() error {
	if f.NumFeatures <= 0 || f.NumClasses <= 0 {
		return fmt.Errorf("%w: num_features=%d num_classes=%d", ErrMalformedForest, f.NumFeatures, f.NumClasses)
	}
	if len(f.Trees) == 0 {
		return ErrEmptyForest
	}

	for ti, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d has no nodes", ErrMalformedForest, ti)
		}
		for ni, node := range tree.Nodes {
			if node.Leaf {
				if len(node.Counts) != f.NumClasses {
					return fmt.Errorf("%w: tree %d node %d has %d counts, want %d",
						ErrMalformedForest, ti, ni, len(node.Counts), f.NumClasses)
				}
				total := 0.0
				for _, c := range node.Counts {
					if c < 0 {
						return fmt.Errorf("%w: tree %d node %d has negative count", ErrMalformedForest, ti, ni)
					}
					total += c
				}
				if total <= 0 {
					return fmt.Errorf("%w: tree %d node %d has zero mass", ErrMalformedForest, ti, ni)
				}
				continue
			}
			if node.Feature < 0 || node.Feature >= f.NumFeatures {
				return fmt.Errorf("%w: tree %d node %d routes on feature %d",
					ErrMalformedForest, ti, ni, node.Feature)
			}
			if node.Left <= ni || node.Left >= len(tree.Nodes) ||
				node.Right <= ni || node.Right >= len(tree.Nodes) {
				return fmt.Errorf("%w: tree %d node %d has invalid children %d/%d",
					ErrMalformedForest, ti, ni, node.Left, node.Right)
			}
		}
	}
	return nil
}

// PredictProba returns the per-class probability vector for one input.
//
// Probabilities are the mean of the normalized leaf distributions reached
// in each tree. The vector is positionally aligned with the class order
// fixed at training time; it is returned raw, never re-normalized.
func (f *Forest) PredictProba(features []float64) ([]float64, error) {
	if len(features) != f.NumFeatures {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrFeatureArity, f.NumFeatures, len(features))
	}
	if len(f.Trees) == 0 {
		return nil, ErrEmptyForest
	}

	proba := make([]float64, f.NumClasses)
	for _, tree := range f.Trees {
		counts := tree.descend(features)
		total := 0.0
		for _, c := range counts {
			total += c
		}
		for i, c := range counts {
			proba[i] += c / total
		}
	}
	for i := range proba {
		proba[i] /= float64(len(f.Trees))
	}
	return proba, nil
}

// Predict returns the predicted class index alongside the probability
// vector. Ties break toward the lower class index.
func (f *Forest) Predict(features []float64) (int, []float64, error) {
	proba, err := f.PredictProba(features)
	if err != nil {
		return 0, nil, err
	}
	best := 0
	for i, p := range proba {
		if p > proba[best] {
			best = i
		}
	}
	return best, proba, nil
}

// descend walks the flat node array to a leaf and returns its counts.
// Validate has already bounded every link, so the walk cannot loop.
func (t *Tree) descend(features []float64) []float64 {
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.Leaf {
			return node.Counts
		}
		if features[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}
