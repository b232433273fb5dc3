// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/modelserve/pkg/classifier"
	"github.com/AleutianAI/modelserve/pkg/integrity"
	"github.com/AleutianAI/modelserve/services/predictor/model"
	"github.com/AleutianAI/modelserve/services/predictor/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testFixture bundles the service and its metrics for handler tests.
type testFixture struct {
	svc     *model.Service
	metrics *observability.Metrics
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *observability.Metrics {
	return observability.New(prometheus.NewRegistry())
}

// irisService writes a verified iris fixture to a temp dir and returns an
// unloaded service over it.
func irisService(t *testing.T) *model.Service {
	t.Helper()

	forest := &classifier.Forest{
		NumFeatures: 4,
		NumClasses:  3,
		Trees: []classifier.Tree{{
			Nodes: []classifier.Node{
				{Feature: 2, Threshold: 2.45, Left: 1, Right: 2},
				{Feature: -1, Left: -1, Right: -1, Leaf: true, Counts: []float64{50, 0, 0}},
				{Feature: 3, Threshold: 1.75, Left: 3, Right: 4},
				{Feature: -1, Left: -1, Right: -1, Leaf: true, Counts: []float64{0, 49, 5}},
				{Feature: -1, Left: -1, Right: -1, Leaf: true, Counts: []float64{0, 1, 45}},
			},
		}},
	}

	dir := t.TempDir()
	artifactPath := filepath.Join(dir, "iris_classifier.json")
	metadataPath := filepath.Join(dir, "model_metadata.json")

	data, err := forest.Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(artifactPath, data, 0o644))

	digest, err := integrity.FileDigest(artifactPath, "sha256")
	require.NoError(t, err)

	meta := map[string]any{
		"model_type":       "RandomForestClassifier",
		"version":          "1.0.0",
		"accuracy":         0.966,
		"features":         []string{"sepal_length", "sepal_width", "petal_length", "petal_width"},
		"classes":          []string{"setosa", "versicolor", "virginica"},
		"training_samples": 120,
		"test_samples":     30,
		"model_hash":       digest,
		"hash_algorithm":   "sha256",
	}
	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(metadataPath, raw, 0o644))

	return model.New(model.Config{ArtifactPath: artifactPath, MetadataPath: metadataPath}, testLogger())
}

// loadedIrisService is irisService plus a successful Load.
func loadedIrisService(t *testing.T) *model.Service {
	t.Helper()
	svc := irisService(t)
	require.NoError(t, svc.Load())
	return svc
}
