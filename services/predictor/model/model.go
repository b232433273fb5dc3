// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model owns the lifecycle of the loaded classifier.
//
// # Description
//
// The service moves through exactly two observable states: Unloaded and
// Loaded. Load reads the metadata document, verifies the artifact digest
// before any deserialization, deserializes the classifier, and publishes
// classifier + metadata as one immutable bundle. There is no path back to
// Unloaded short of process restart; a failed Load leaves whatever state
// was previously published untouched.
//
// # Concurrency
//
// The loaded bundle is published through an atomic pointer swap. Readers
// snapshot the pointer once per operation, so a Predict racing a reload
// sees either the complete old bundle or the complete new one, never a
// mixture. Bundle contents are never mutated after publication, so no
// locks are needed.
package model

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/AleutianAI/modelserve/pkg/classifier"
	"github.com/AleutianAI/modelserve/pkg/integrity"
	"github.com/AleutianAI/modelserve/pkg/validation"
)

// Config fixes the artifact and metadata locations at construction.
type Config struct {
	// ArtifactPath is the serialized classifier file.
	ArtifactPath string

	// MetadataPath is the metadata JSON document.
	MetadataPath string

	// AllowUnverified permits loading an artifact whose metadata pins no
	// digest. Accepting unverified artifacts is a trust-boundary
	// decision, so it is off by default and every unverified load is
	// logged at Warn.
	AllowUnverified bool
}

// Service serves predictions from an integrity-verified model artifact.
//
// One Service instance is shared by all request handlers for the life of
// the process.
type Service struct {
	cfg    Config
	logger *slog.Logger
	state  atomic.Pointer[loadedState]
}

// loadedState is the immutable bundle published by a successful Load.
type loadedState struct {
	forest *classifier.Forest
	meta   *Metadata
}

// Prediction is the result of one classification.
type Prediction struct {
	// Label is the predicted class label.
	Label string

	// Confidence is the probability mass assigned to Label, in [0,1].
	// It always equals Probabilities[Label].
	Confidence float64

	// Probabilities maps every class label to its probability. Values
	// are the classifier's raw output; the service never re-normalizes
	// them.
	Probabilities map[string]float64

	// ModelVersion is the metadata version of the model that produced
	// this prediction.
	ModelVersion string
}

// New constructs an unloaded Service. A nil logger falls back to
// slog.Default().
func New(cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, logger: logger}
}

// Load reads, verifies, and deserializes the model artifact, then
// publishes the new state atomically.
//
// # Description
//
// The digest check runs strictly before deserialization: a tampered or
// corrupt artifact is rejected from its bytes alone, and the decoder
// never sees it. Calling Load again re-runs the full procedure and swaps
// the bundle atomically on success.
//
// # Outputs
//
//   - error: ErrNotFound, ErrInvalidMetadata, ErrIntegrity,
//     ErrUnverifiedArtifact, or ErrArtifactCorrupt; nil on success.
func (s *Service) Load() error {
	if _, err := os.Stat(s.cfg.ArtifactPath); err != nil {
		return fmt.Errorf("%w: artifact %s", ErrNotFound, s.cfg.ArtifactPath)
	}
	if _, err := os.Stat(s.cfg.MetadataPath); err != nil {
		return fmt.Errorf("%w: metadata %s", ErrNotFound, s.cfg.MetadataPath)
	}

	rawMeta, err := os.ReadFile(s.cfg.MetadataPath)
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}
	meta, err := ParseMetadata(rawMeta)
	if err != nil {
		return err
	}

	if declared, ok := meta.DeclaredDigest(); ok {
		if err := s.verifyArtifact(declared); err != nil {
			return err
		}
	} else {
		if !s.cfg.AllowUnverified {
			return fmt.Errorf("%w (set AllowUnverified to accept)", ErrUnverifiedArtifact)
		}
		s.logger.Warn("loading artifact without integrity verification",
			"artifact", s.cfg.ArtifactPath)
	}

	rawArtifact, err := os.ReadFile(s.cfg.ArtifactPath)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	forest, err := classifier.Decode(rawArtifact)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}

	// The metadata and the artifact describe the same model; disagreement
	// on shape means one of them is wrong.
	if forest.NumFeatures != len(meta.Features) {
		return fmt.Errorf("%w: metadata names %d features, artifact expects %d",
			ErrInvalidMetadata, len(meta.Features), forest.NumFeatures)
	}
	if forest.NumClasses != len(meta.Classes) {
		return fmt.Errorf("%w: metadata names %d classes, artifact produces %d",
			ErrInvalidMetadata, len(meta.Classes), forest.NumClasses)
	}

	s.state.Store(&loadedState{forest: forest, meta: meta})
	s.logger.Info("model loaded",
		"model_type", meta.ModelType,
		"version", meta.Version,
		"classes", len(meta.Classes),
		"verified", meta.ModelHash != "")
	return nil
}

// verifyArtifact compares the artifact's computed digest against the
// declared one in constant time.
func (s *Service) verifyArtifact(declared Digest) error {
	actual, err := integrity.FileDigest(s.cfg.ArtifactPath, declared.Algorithm)
	if err != nil {
		// An algorithm this service cannot compute is a metadata
		// problem, not an artifact problem.
		if errors.Is(err, integrity.ErrUnsupportedAlgorithm) {
			return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		return fmt.Errorf("compute artifact digest: %w", err)
	}

	if !integrity.ConstantTimeEqual(declared.Hex, actual) {
		s.logger.Error("artifact digest mismatch",
			"artifact", s.cfg.ArtifactPath,
			"algorithm", declared.Algorithm,
			"expected", declared.Hex,
			"actual", actual)
		return fmt.Errorf("%w: algorithm=%s expected=%s actual=%s",
			ErrIntegrity, declared.Algorithm, declared.Hex, actual)
	}
	return nil
}

// Predict classifies one feature vector.
//
// Arity is derived from the loaded metadata, never hard-coded. The input
// never reaches the classifier unless it has the right length and only
// finite values.
func (s *Service) Predict(features []float64) (*Prediction, error) {
	st := s.state.Load()
	if st == nil {
		return nil, ErrNotLoaded
	}

	if err := validation.ValidateFeatures(features); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(features) != len(st.meta.Features) {
		return nil, fmt.Errorf("%w: expected %d features, got %d",
			ErrInvalidInput, len(st.meta.Features), len(features))
	}

	idx, proba, err := st.forest.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	probabilities := make(map[string]float64, len(st.meta.Classes))
	for i, class := range st.meta.Classes {
		probabilities[class] = proba[i]
	}

	return &Prediction{
		Label:         st.meta.Classes[idx],
		Confidence:    proba[idx],
		Probabilities: probabilities,
		ModelVersion:  st.meta.Version,
	}, nil
}

// Info returns the loaded metadata document, or ErrNotLoaded.
// The returned value is shared and must be treated as read-only.
func (s *Service) Info() (*Metadata, error) {
	st := s.state.Load()
	if st == nil {
		return nil, ErrNotLoaded
	}
	return st.meta, nil
}

// IsLoaded reports whether a model has been published. Pure state query;
// never fails.
func (s *Service) IsLoaded() bool {
	return s.state.Load() != nil
}
