// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package integrity provides content-digest verification for model artifacts.
//
// # Description
//
// The predictor service only deserializes a model artifact after its bytes
// have been verified against a digest pinned in the model metadata. This
// package supplies the two primitives that decision rests on: incremental
// file hashing with bounded memory, and constant-time digest comparison.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package integrity

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// DefaultAlgorithm is used when metadata declares a digest without naming
// the algorithm that produced it.
const DefaultAlgorithm = "sha256"

// digestChunkSize is the read buffer used for incremental hashing. The
// hash state is updated chunk by chunk, so memory use is constant
// regardless of artifact size.
const digestChunkSize = 64 * 1024

// ErrUnsupportedAlgorithm is returned when a metadata document names a
// hash algorithm this service cannot compute.
var ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

// newHasher maps a normalized algorithm name to its hash constructor.
func newHasher(algorithm string) (hash.Hash, error) {
	switch NormalizeAlgorithm(algorithm) {
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

// NormalizeAlgorithm canonicalizes a hash algorithm name.
//
// Training pipelines have written both "sha256" and "SHA-256" into metadata
// documents; both must verify against the same digest.
func NormalizeAlgorithm(algorithm string) string {
	algorithm = strings.TrimSpace(algorithm)
	if algorithm == "" {
		return DefaultAlgorithm
	}
	algorithm = strings.ToLower(algorithm)
	return strings.ReplaceAll(algorithm, "-", "")
}

// FileDigest computes the hex-encoded digest of the file at path.
//
// # Description
//
// The file is read in fixed-size chunks and fed to the hash incrementally,
// so the function behaves identically for a test fixture of a few hundred
// bytes and a multi-gigabyte artifact.
//
// # Inputs
//
//   - path: File to hash. Must exist and be readable.
//   - algorithm: Hash algorithm name. Accepts "sha256", "SHA-256", "sha512",
//     and similar spellings; an empty string selects DefaultAlgorithm.
//
// # Outputs
//
//   - string: Lowercase hex-encoded digest.
//   - error: I/O errors from open/read, or ErrUnsupportedAlgorithm.
func FileDigest(path string, algorithm string) (string, error) {
	h, err := newHasher(algorithm)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	buf := make([]byte, digestChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ConstantTimeEqual compares two hex digest strings in constant time.
//
// # Description
//
// The comparison does not short-circuit on the first differing byte, so
// its duration is independent of where (or whether) the digests diverge.
// This prevents timing attacks where an attacker could learn how many
// leading characters of an expected digest are correct by measuring
// response times.
//
// Digests of different lengths compare unequal; length is not secret here
// (it is fixed by the algorithm), so the early return leaks nothing useful.
func ConstantTimeEqual(expected, actual string) bool {
	if len(expected) != len(actual) {
		return false
	}
	// subtle.ConstantTimeCompare returns 1 if equal, 0 if not
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}
