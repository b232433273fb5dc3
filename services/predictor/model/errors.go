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

import "errors"

// Sentinel errors for the model service. Callers classify failures with
// errors.Is; wrapped detail (paths, digests, counts) rides along for logs.
var (
	// ErrNotFound is returned when the artifact or metadata path does
	// not exist.
	ErrNotFound = errors.New("model file not found")

	// ErrInvalidMetadata is returned when the metadata document is not a
	// well-formed object, is missing required fields, or disagrees with
	// the deserialized artifact's shape.
	ErrInvalidMetadata = errors.New("invalid model metadata")

	// ErrIntegrity is returned when the artifact digest does not match
	// the digest pinned in metadata. This is a security event, not a
	// transient fault: the artifact may have been corrupted or tampered
	// with. The wrapped message carries both digests for audit logging.
	ErrIntegrity = errors.New("model integrity verification failed")

	// ErrUnverifiedArtifact is returned when metadata declares no digest
	// and the service is not configured to accept unverified artifacts.
	ErrUnverifiedArtifact = errors.New("metadata declares no model hash")

	// ErrArtifactCorrupt is returned when the artifact fails to
	// deserialize after its integrity check passed.
	ErrArtifactCorrupt = errors.New("model artifact corrupt")

	// ErrNotLoaded is returned when Predict or Info is called before a
	// successful Load.
	ErrNotLoaded = errors.New("model not loaded")

	// ErrInvalidInput is returned when a prediction input has the wrong
	// arity or contains non-finite values. It never reaches the
	// classifier.
	ErrInvalidInput = errors.New("invalid prediction input")
)
