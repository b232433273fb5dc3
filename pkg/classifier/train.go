// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TrainConfig controls forest training.
type TrainConfig struct {
	// Trees is the ensemble size. Defaults to 100.
	Trees int
	// MaxDepth bounds tree depth. Defaults to 3.
	MaxDepth int
	// Seed makes training deterministic for a given dataset.
	Seed int64
}

// ErrBadTrainingData is returned when training inputs are empty or
// inconsistently shaped.
var ErrBadTrainingData = errors.New("invalid training data")

// Train fits a random forest on the given samples.
//
// # Inputs
//
//   - samples: Feature matrix, one row per sample. All rows must share a length.
//   - labels: Class index per sample, each in [0, numClasses).
//   - numClasses: Number of output categories.
//   - cfg: Training parameters; zero values select defaults.
//
// # Outputs
//
//   - *Forest: Trained, validated forest.
//   - error: ErrBadTrainingData on shape problems.
func Train(samples [][]float64, labels []int, numClasses int, cfg TrainConfig) (*Forest, error) {
	if len(samples) == 0 || len(samples) != len(labels) {
		return nil, fmt.Errorf("%w: %d samples, %d labels", ErrBadTrainingData, len(samples), len(labels))
	}
	if numClasses <= 0 {
		return nil, fmt.Errorf("%w: numClasses=%d", ErrBadTrainingData, numClasses)
	}
	numFeatures := len(samples[0])
	if numFeatures == 0 {
		return nil, fmt.Errorf("%w: zero-length feature vectors", ErrBadTrainingData)
	}
	for i, row := range samples {
		if len(row) != numFeatures {
			return nil, fmt.Errorf("%w: sample %d has %d features, want %d", ErrBadTrainingData, i, len(row), numFeatures)
		}
	}
	for i, label := range labels {
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("%w: sample %d has label %d outside [0,%d)", ErrBadTrainingData, i, label, numClasses)
		}
	}

	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 3
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	forest := &Forest{
		NumFeatures: numFeatures,
		NumClasses:  numClasses,
		Trees:       make([]Tree, 0, cfg.Trees),
	}

	for t := 0; t < cfg.Trees; t++ {
		bootFeatures, bootLabels := bootstrap(samples, labels, rng)
		nodes := buildNodes(bootFeatures, bootLabels, numClasses, 0, cfg.MaxDepth)
		forest.Trees = append(forest.Trees, Tree{Nodes: nodes})
	}

	if err := forest.Validate(); err != nil {
		return nil, err
	}
	return forest, nil
}

// bootstrap draws len(samples) rows with replacement.
func bootstrap(samples [][]float64, labels []int, rng *rand.Rand) ([][]float64, []int) {
	n := len(samples)
	outSamples := make([][]float64, n)
	outLabels := make([]int, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		outSamples[i] = samples[j]
		outLabels[i] = labels[j]
	}
	return outSamples, outLabels
}

// buildNodes grows a subtree in flat preorder layout: the subtree root is
// at index 0 of the returned slice, children at strictly larger indices.
func buildNodes(samples [][]float64, labels []int, numClasses, depth, maxDepth int) []Node {
	counts := classCounts(labels, numClasses)

	if depth >= maxDepth || isPure(labels) {
		return []Node{leafNode(counts)}
	}

	feature, threshold, ok := bestSplit(samples, labels, numClasses)
	if !ok {
		return []Node{leafNode(counts)}
	}

	leftSamples, leftLabels, rightSamples, rightLabels := partition(samples, labels, feature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return []Node{leafNode(counts)}
	}

	left := buildNodes(leftSamples, leftLabels, numClasses, depth+1, maxDepth)
	right := buildNodes(rightSamples, rightLabels, numClasses, depth+1, maxDepth)

	nodes := make([]Node, 0, 1+len(left)+len(right))
	nodes = append(nodes, Node{
		Feature:   feature,
		Threshold: threshold,
		Left:      1,
		Right:     1 + len(left),
	})
	nodes = append(nodes, left...)
	// Child links are relative to the subtree root; shift the right
	// subtree past the left one.
	base := 1 + len(left)
	for _, n := range right {
		if !n.Leaf {
			n.Left += base
			n.Right += base
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func leafNode(counts []float64) Node {
	return Node{Feature: -1, Left: -1, Right: -1, Counts: counts, Leaf: true}
}

func classCounts(labels []int, numClasses int) []float64 {
	counts := make([]float64, numClasses)
	for _, label := range labels {
		counts[label]++
	}
	return counts
}

func isPure(labels []int) bool {
	for _, label := range labels[1:] {
		if label != labels[0] {
			return false
		}
	}
	return true
}

// bestSplit scans every feature and every midpoint between consecutive
// distinct values, minimizing weighted Gini impurity.
func bestSplit(samples [][]float64, labels []int, numClasses int) (int, float64, bool) {
	numFeatures := len(samples[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for feature := 0; feature < numFeatures; feature++ {
		values := make([]float64, len(samples))
		for i, row := range samples {
			values[i] = row[feature]
		}
		sort.Float64s(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			threshold := (values[i] + values[i-1]) / 2
			impurity := splitImpurity(samples, labels, feature, threshold, numClasses)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	if bestFeature == -1 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitImpurity(samples [][]float64, labels []int, feature int, threshold float64, numClasses int) float64 {
	leftCounts := make([]float64, numClasses)
	rightCounts := make([]float64, numClasses)
	leftTotal, rightTotal := 0.0, 0.0

	for i, row := range samples {
		if row[feature] <= threshold {
			leftCounts[labels[i]]++
			leftTotal++
		} else {
			rightCounts[labels[i]]++
			rightTotal++
		}
	}
	if leftTotal == 0 || rightTotal == 0 {
		return math.MaxFloat64
	}

	total := leftTotal + rightTotal
	return (leftTotal/total)*gini(leftCounts, leftTotal) + (rightTotal/total)*gini(rightCounts, rightTotal)
}

func gini(counts []float64, total float64) float64 {
	impurity := 1.0
	for _, c := range counts {
		p := c / total
		impurity -= p * p
	}
	return impurity
}

func partition(samples [][]float64, labels []int, feature int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	var leftSamples, rightSamples [][]float64
	var leftLabels, rightLabels []int
	for i, row := range samples {
		if row[feature] <= threshold {
			leftSamples = append(leftSamples, row)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightSamples = append(rightSamples, row)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftSamples, leftLabels, rightSamples, rightLabels
}
