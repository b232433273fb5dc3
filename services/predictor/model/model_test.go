// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/AleutianAI/modelserve/pkg/classifier"
	"github.com/AleutianAI/modelserve/pkg/integrity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// irisForest is a hand-built single-tree forest over the iris domain:
// petal length isolates setosa; petal width separates the other two with
// some residual impurity.
func irisForest() *classifier.Forest {
	return &classifier.Forest{
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
}

type fixtureOpt func(meta map[string]any)

func withVersion(v string) fixtureOpt {
	return func(meta map[string]any) { meta["version"] = v }
}

func withoutHash() fixtureOpt {
	return func(meta map[string]any) {
		delete(meta, "model_hash")
		delete(meta, "hash_algorithm")
	}
}

func withHash(hex, algorithm string) fixtureOpt {
	return func(meta map[string]any) {
		meta["model_hash"] = hex
		if algorithm != "" {
			meta["hash_algorithm"] = algorithm
		} else {
			delete(meta, "hash_algorithm")
		}
	}
}

// writeFixture writes a forest artifact plus a matching metadata document
// into dir and returns the service config pointing at them. The default
// metadata pins the artifact's real sha256 digest.
func writeFixture(t *testing.T, dir string, forest *classifier.Forest, opts ...fixtureOpt) Config {
	t.Helper()

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
		"model_file":       "iris_classifier.json",
		"model_hash":       digest,
		"hash_algorithm":   "SHA-256",
	}
	for _, opt := range opts {
		opt(meta)
	}

	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(metadataPath, raw, 0o644))

	return Config{ArtifactPath: artifactPath, MetadataPath: metadataPath}
}

func TestLoad_VerifiedArtifact(t *testing.T) {
	cfg := writeFixture(t, t.TempDir(), irisForest())
	svc := New(cfg, quietLogger())

	require.False(t, svc.IsLoaded())
	require.NoError(t, svc.Load())
	assert.True(t, svc.IsLoaded())

	meta, err := svc.Info()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", meta.Version)
}

func TestLoad_MissingPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFixture(t, dir, irisForest())

	t.Run("missing artifact", func(t *testing.T) {
		broken := cfg
		broken.ArtifactPath = filepath.Join(dir, "absent.json")
		err := New(broken, quietLogger()).Load()
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing metadata", func(t *testing.T) {
		broken := cfg
		broken.MetadataPath = filepath.Join(dir, "absent_meta.json")
		err := New(broken, quietLogger()).Load()
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLoad_DigestMismatchNeverDeserializes(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFixture(t, dir, irisForest(), withHash("0000000000000000000000000000000000000000000000000000000000000000", "sha256"))

	// The artifact on disk is NOT valid forest JSON. If the service ever
	// got as far as deserialization this would fail with ErrArtifactCorrupt;
	// the digest check must reject it first.
	require.NoError(t, os.WriteFile(cfg.ArtifactPath, []byte("garbage bytes, not a forest"), 0o644))

	svc := New(cfg, quietLogger())
	err := svc.Load()
	require.ErrorIs(t, err, ErrIntegrity)
	assert.NotErrorIs(t, err, ErrArtifactCorrupt)
	assert.False(t, svc.IsLoaded())

	// Both digests ride along for audit logging.
	assert.Contains(t, err.Error(), "expected=00000000")
	assert.Contains(t, err.Error(), "actual=")
}

func TestLoad_UnverifiedStrictByDefault(t *testing.T) {
	cfg := writeFixture(t, t.TempDir(), irisForest(), withoutHash())

	err := New(cfg, quietLogger()).Load()
	assert.ErrorIs(t, err, ErrUnverifiedArtifact)
}

func TestLoad_UnverifiedAllowedWhenConfigured(t *testing.T) {
	cfg := writeFixture(t, t.TempDir(), irisForest(), withoutHash())
	cfg.AllowUnverified = true

	svc := New(cfg, quietLogger())
	require.NoError(t, svc.Load())
	assert.True(t, svc.IsLoaded())
}

func TestLoad_DashedAlgorithmSpelling(t *testing.T) {
	// train pipelines have written "SHA-256"; the verifier must accept it
	cfg := writeFixture(t, t.TempDir(), irisForest())
	require.NoError(t, New(cfg, quietLogger()).Load())
}

func TestLoad_Sha512Digest(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFixture(t, dir, irisForest())

	digest, err := integrity.FileDigest(cfg.ArtifactPath, "sha512")
	require.NoError(t, err)
	cfg = writeFixture(t, dir, irisForest(), withHash(digest, "sha512"))

	require.NoError(t, New(cfg, quietLogger()).Load())
}

func TestLoad_UnsupportedAlgorithm(t *testing.T) {
	cfg := writeFixture(t, t.TempDir(), irisForest(), withHash("aabb", "md5"))

	err := New(cfg, quietLogger()).Load()
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestLoad_CorruptArtifactAfterPassingCheck(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFixture(t, dir, irisForest())

	// Re-pin the digest to corrupt bytes: integrity passes, decoding fails.
	corrupt := []byte(`{"num_features":0}`)
	require.NoError(t, os.WriteFile(cfg.ArtifactPath, corrupt, 0o644))
	digest, err := integrity.FileDigest(cfg.ArtifactPath, "sha256")
	require.NoError(t, err)
	cfg = writeFixtureMetaOnly(t, cfg, withHash(digest, "sha256"))

	loadErr := New(cfg, quietLogger()).Load()
	assert.ErrorIs(t, loadErr, ErrArtifactCorrupt)
}

// writeFixtureMetaOnly rewrites just the metadata document of an existing
// fixture.
func writeFixtureMetaOnly(t *testing.T, cfg Config, opts ...fixtureOpt) Config {
	t.Helper()

	raw, err := os.ReadFile(cfg.MetadataPath)
	require.NoError(t, err)
	meta := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &meta))
	for _, opt := range opts {
		opt(meta)
	}
	out, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.MetadataPath, out, 0o644))
	return cfg
}

func TestLoad_MetadataArtifactShapeMismatch(t *testing.T) {
	t.Run("feature count", func(t *testing.T) {
		cfg := writeFixture(t, t.TempDir(), irisForest())
		cfg = writeFixtureMetaOnly(t, cfg, func(meta map[string]any) {
			meta["features"] = []string{"a", "b", "c"}
		})
		err := New(cfg, quietLogger()).Load()
		assert.ErrorIs(t, err, ErrInvalidMetadata)
	})

	t.Run("class count", func(t *testing.T) {
		cfg := writeFixture(t, t.TempDir(), irisForest())
		cfg = writeFixtureMetaOnly(t, cfg, func(meta map[string]any) {
			meta["classes"] = []string{"setosa", "versicolor"}
		})
		err := New(cfg, quietLogger()).Load()
		assert.ErrorIs(t, err, ErrInvalidMetadata)
	})
}

func TestPredict_BeforeLoad(t *testing.T) {
	cfg := writeFixture(t, t.TempDir(), irisForest())
	svc := New(cfg, quietLogger())

	_, err := svc.Predict([]float64{5.1, 3.5, 1.4, 0.2})
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = svc.Info()
	assert.ErrorIs(t, err, ErrNotLoaded)

	assert.False(t, svc.IsLoaded())
}

func TestPredict_Setosa(t *testing.T) {
	cfg := writeFixture(t, t.TempDir(), irisForest())
	svc := New(cfg, quietLogger())
	require.NoError(t, svc.Load())

	pred, err := svc.Predict([]float64{5.1, 3.5, 1.4, 0.2})
	require.NoError(t, err)

	assert.Equal(t, "setosa", pred.Label)
	assert.Greater(t, pred.Confidence, 0.8)
	assert.Equal(t, "1.0.0", pred.ModelVersion)
}

func TestPredict_Contract(t *testing.T) {
	cfg := writeFixture(t, t.TempDir(), irisForest())
	svc := New(cfg, quietLogger())
	require.NoError(t, svc.Load())

	meta, err := svc.Info()
	require.NoError(t, err)

	inputs := [][]float64{
		{5.1, 3.5, 1.4, 0.2},
		{6.0, 2.9, 4.5, 1.3},
		{6.9, 3.1, 5.4, 2.1},
	}
	for _, in := range inputs {
		pred, err := svc.Predict(in)
		require.NoError(t, err)

		// confidence == probabilities[prediction]
		assert.Equal(t, pred.Confidence, pred.Probabilities[pred.Label])
		assert.GreaterOrEqual(t, pred.Confidence, 0.0)
		assert.LessOrEqual(t, pred.Confidence, 1.0)

		// prediction is one of the declared classes
		assert.Contains(t, meta.Classes, pred.Label)

		// every class appears; probabilities sum to 1 within tolerance
		assert.Len(t, pred.Probabilities, len(meta.Classes))
		sum := 0.0
		for _, p := range pred.Probabilities {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-6)
	}
}

func TestPredict_InvalidInput(t *testing.T) {
	cfg := writeFixture(t, t.TempDir(), irisForest())
	svc := New(cfg, quietLogger())
	require.NoError(t, svc.Load())

	t.Run("wrong arity", func(t *testing.T) {
		_, err := svc.Predict([]float64{1, 2, 3})
		require.ErrorIs(t, err, ErrInvalidInput)
		assert.Contains(t, err.Error(), "expected 4 features, got 3")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := svc.Predict(nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("non-finite values", func(t *testing.T) {
		nan := 0.0
		nan /= nan
		_, err := svc.Predict([]float64{5.1, nan, 1.4, 0.2})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestLoad_TamperAfterHashComputation(t *testing.T) {
	cfg := writeFixture(t, t.TempDir(), irisForest())
	svc := New(cfg, quietLogger())
	require.NoError(t, svc.Load())

	// Append arbitrary bytes after the digest was pinned.
	f, err := os.OpenFile(cfg.ArtifactPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("tampered")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = svc.Load()
	require.ErrorIs(t, err, ErrIntegrity)

	// The previously published state stays intact and serving.
	assert.True(t, svc.IsLoaded())
	pred, err := svc.Predict([]float64{5.1, 3.5, 1.4, 0.2})
	require.NoError(t, err)
	assert.Equal(t, "setosa", pred.Label)
}

func TestLoad_ReloadSwapsAtomically(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFixture(t, dir, irisForest())
	svc := New(cfg, quietLogger())
	require.NoError(t, svc.Load())

	// Publish a second version and reload while readers hammer Predict.
	writeFixture(t, dir, irisForest(), withVersion("2.0.0"))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 8)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				pred, err := svc.Predict([]float64{5.1, 3.5, 1.4, 0.2})
				if err != nil {
					errs <- err
					return
				}
				// Every observation must be a complete bundle: a known
				// version with a coherent prediction from it.
				if pred.ModelVersion != "1.0.0" && pred.ModelVersion != "2.0.0" {
					errs <- fmt.Errorf("torn read: version %q", pred.ModelVersion)
					return
				}
				if pred.Label != "setosa" {
					errs <- fmt.Errorf("unexpected label %q", pred.Label)
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		require.NoError(t, svc.Load())
	}
	close(stop)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	meta, err := svc.Info()
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", meta.Version)
}
