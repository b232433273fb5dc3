// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request and response types for the predictor
// service.
//
// Request types carry validator tags and a Validate method; handlers bind
// JSON first, then validate, so malformed payloads are rejected at the
// boundary with a clear message and never reach the model service.
package datatypes

import (
	"math"

	"github.com/go-playground/validator/v10"
)

// MaxFeatures caps the accepted feature vector length. The loaded model
// decides the real arity; this bound stops oversized payloads early.
const MaxFeatures = 256

// predictValidate is the validator instance for predictor datatypes.
// Initialized in init() with custom validators.
var predictValidate *validator.Validate

func init() {
	predictValidate = validator.New()

	// "finite" rejects NaN and ±Inf feature values.
	_ = predictValidate.RegisterValidation("finite", validateFinite)
}

// validateFinite validates that a float64 field is a finite number.
func validateFinite(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// =============================================================================
// Request Types
// =============================================================================

// PredictionRequest is the body of POST /predict.
//
// Features must match the loaded model's arity; that check belongs to the
// model service, which knows the metadata. Here we only require a
// non-empty, bounded, finite vector.
type PredictionRequest struct {
	Features []float64 `json:"features" validate:"required,min=1,max=256,dive,finite"`
}

// Validate checks the request against its validation tags.
func (r *PredictionRequest) Validate() error {
	return predictValidate.Struct(r)
}

// =============================================================================
// Response Types
// =============================================================================

// PredictionResponse is the body of a successful POST /predict.
type PredictionResponse struct {
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	ModelVersion  string             `json:"model_version"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Version     string `json:"version"`
}

// ModelInfoResponse is the body of GET /model/info, mirroring the
// metadata document fields.
type ModelInfoResponse struct {
	ModelType       string   `json:"model_type"`
	Version         string   `json:"version"`
	Accuracy        float64  `json:"accuracy"`
	Features        []string `json:"features"`
	Classes         []string `json:"classes"`
	TrainingSamples int      `json:"training_samples"`
	TestSamples     int      `json:"test_samples"`
}

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
