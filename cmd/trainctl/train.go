// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/AleutianAI/modelserve/pkg/classifier"
	"github.com/AleutianAI/modelserve/pkg/integrity"
	"github.com/spf13/cobra"
)

const (
	artifactFileName = "iris_classifier.json"
	metadataFileName = "model_metadata.json"
)

// trainResult summarizes a completed training run.
type trainResult struct {
	ArtifactPath    string
	MetadataPath    string
	Accuracy        float64
	TrainingSamples int
	TestSamples     int
}

func runTrainCommand(cmd *cobra.Command, args []string) {
	if flagTrees > 0 {
		config.Trees = flagTrees
	}
	if flagMaxDepth > 0 {
		config.MaxDepth = flagMaxDepth
	}
	if flagSeed != 0 {
		config.Seed = flagSeed
	}
	if flagVersion != "" {
		config.ModelVersion = flagVersion
	}
	if flagOutDir != "" {
		config.OutputDir = flagOutDir
	}

	result, err := trainAndWrite(config)
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}
	log.Printf("Trained %d-tree forest, holdout accuracy %.3f", config.Trees, result.Accuracy)
	log.Printf("Wrote %s and %s", result.ArtifactPath, result.MetadataPath)
}

// trainAndWrite trains a forest on the bundled iris dataset, evaluates it
// on a held-out split, and writes the artifact with digest-bearing metadata.
func trainAndWrite(cfg Config) (*trainResult, error) {
	trainX, trainY, testX, testY := holdoutSplit(irisSamples, irisLabels, cfg.Seed)

	forest, err := classifier.Train(trainX, trainY, len(irisClassNames), classifier.TrainConfig{
		Trees:    cfg.Trees,
		MaxDepth: cfg.MaxDepth,
		Seed:     cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	correct := 0
	for i, sample := range testX {
		label, _, err := forest.Predict(sample)
		if err != nil {
			return nil, fmt.Errorf("evaluate: %w", err)
		}
		if label == testY[i] {
			correct++
		}
	}
	accuracy := float64(correct) / float64(len(testX))

	data, err := forest.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	artifactPath := filepath.Join(cfg.OutputDir, artifactFileName)
	if err := os.WriteFile(artifactPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	digest, err := integrity.FileDigest(artifactPath, integrity.DefaultAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("digest artifact: %w", err)
	}

	meta := map[string]any{
		"model_type":       "RandomForestClassifier",
		"version":          cfg.ModelVersion,
		"accuracy":         accuracy,
		"features":         irisFeatureNames,
		"classes":          irisClassNames,
		"training_samples": len(trainX),
		"test_samples":     len(testX),
		"model_file":       artifactFileName,
		"model_hash":       digest,
		"hash_algorithm":   "SHA-256",
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	metadataPath := filepath.Join(cfg.OutputDir, metadataFileName)
	if err := os.WriteFile(metadataPath, metaBytes, 0o644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	return &trainResult{
		ArtifactPath:    artifactPath,
		MetadataPath:    metadataPath,
		Accuracy:        accuracy,
		TrainingSamples: len(trainX),
		TestSamples:     len(testX),
	}, nil
}

// holdoutSplit shuffles the dataset with the given seed and holds out a
// fifth of it for evaluation.
func holdoutSplit(samples [][]float64, labels []int, seed int64) ([][]float64, []int, [][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	order := rng.Perm(len(samples))

	holdout := len(samples) / 5
	var trainX, testX [][]float64
	var trainY, testY []int
	for i, idx := range order {
		if i < holdout {
			testX = append(testX, samples[idx])
			testY = append(testY, labels[idx])
		} else {
			trainX = append(trainX, samples[idx])
			trainY = append(trainY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}
