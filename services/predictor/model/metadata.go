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

	"github.com/AleutianAI/modelserve/pkg/integrity"
)

// Metadata is the sidecar document describing a model artifact.
//
// The training pipeline writes it next to the artifact. `classes` fixes
// the class-index correspondence for the classifier's output vector;
// `features` fixes the required prediction input arity. Accuracy and the
// sample counts are descriptive only.
type Metadata struct {
	ModelType       string   `json:"model_type"`
	Version         string   `json:"version"`
	Accuracy        float64  `json:"accuracy"`
	Features        []string `json:"features"`
	Classes         []string `json:"classes"`
	TrainingSamples int      `json:"training_samples"`
	TestSamples     int      `json:"test_samples"`

	// ModelFile is informational; the artifact path is fixed at service
	// construction, not taken from metadata.
	ModelFile string `json:"model_file,omitempty"`

	// ModelHash and HashAlgorithm pin the artifact digest. When ModelHash
	// is set it is authoritative: a mismatching artifact is never
	// deserialized.
	ModelHash     string `json:"model_hash,omitempty"`
	HashAlgorithm string `json:"hash_algorithm,omitempty"`
}

// Digest is a declared artifact digest: the hex digest string plus the
// algorithm that produced it.
type Digest struct {
	Hex       string
	Algorithm string
}

// DeclaredDigest returns the digest pinned in metadata, if any.
//
// Modeling the optional hash as an explicit (Digest, bool) pair keeps the
// unverified-load path a visible branch at the call site instead of a
// nil-field fallthrough.
func (m *Metadata) DeclaredDigest() (Digest, bool) {
	if m.ModelHash == "" {
		return Digest{}, false
	}
	alg := m.HashAlgorithm
	if alg == "" {
		alg = integrity.DefaultAlgorithm
	}
	return Digest{Hex: m.ModelHash, Algorithm: alg}, true
}

// ParseMetadata deserializes and validates a metadata document.
//
// Any shape problem maps to ErrInvalidMetadata: malformed JSON, wrongly
// typed fields, a missing version, or an empty/ill-formed class or
// feature list.
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metadata) validate() error {
	if m.Version == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidMetadata)
	}
	if len(m.Classes) == 0 {
		return fmt.Errorf("%w: classes missing or empty", ErrInvalidMetadata)
	}
	for i, class := range m.Classes {
		if class == "" {
			return fmt.Errorf("%w: class %d is empty", ErrInvalidMetadata, i)
		}
	}
	if len(m.Features) == 0 {
		return fmt.Errorf("%w: features missing or empty", ErrInvalidMetadata)
	}
	return nil
}
