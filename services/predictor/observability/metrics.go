// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the predictor.
//
// Metrics are exposed via the /metrics endpoint. All metric operations
// are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for prediction serving metrics
const predictorSubsystem = "predictor"

// Metrics holds all Prometheus metrics for the prediction service.
//
// # Fields
//
//   - PredictionsTotal: Counter of predictions by predicted class and status
//   - PredictionSeconds: Histogram of prediction handler latency
//   - LoadAttemptsTotal: Counter of model load attempts by outcome
//   - ModelLoaded: Gauge, 1 when a model is published, 0 before
type Metrics struct {
	// PredictionsTotal counts prediction requests.
	// Labels: class (predicted label, or "none" on failure),
	// status (success, invalid_input, not_loaded, error)
	PredictionsTotal *prometheus.CounterVec

	// PredictionSeconds measures end-to-end prediction latency.
	PredictionSeconds prometheus.Histogram

	// LoadAttemptsTotal counts model load attempts.
	// Labels: outcome (success, not_found, invalid_metadata,
	// integrity_violation, unverified, corrupt, error)
	LoadAttemptsTotal *prometheus.CounterVec

	// ModelLoaded reports whether a model is currently published.
	ModelLoaded prometheus.Gauge
}

// New creates and registers all predictor metrics against reg.
//
// Pass prometheus.DefaultRegisterer in main; tests pass their own
// registry so parallel tests do not collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PredictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: predictorSubsystem,
				Name:      "predictions_total",
				Help:      "Total prediction requests by predicted class and status",
			},
			[]string{"class", "status"},
		),

		PredictionSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: predictorSubsystem,
				Name:      "prediction_seconds",
				Help:      "Prediction handler latency in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
		),

		LoadAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: predictorSubsystem,
				Name:      "load_attempts_total",
				Help:      "Model load attempts by outcome",
			},
			[]string{"outcome"},
		),

		ModelLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: predictorSubsystem,
				Name:      "model_loaded",
				Help:      "1 when a model is loaded and serving, 0 otherwise",
			},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordPrediction records one prediction request.
//
// class should be the predicted label on success and "none" otherwise.
func (m *Metrics) RecordPrediction(class, status string, elapsed time.Duration) {
	m.PredictionsTotal.WithLabelValues(class, status).Inc()
	m.PredictionSeconds.Observe(elapsed.Seconds())
}

// RecordLoad records a model load attempt and flips the loaded gauge.
func (m *Metrics) RecordLoad(outcome string, loaded bool) {
	m.LoadAttemptsTotal.WithLabelValues(outcome).Inc()
	if loaded {
		m.ModelLoaded.Set(1)
	} else {
		m.ModelLoaded.Set(0)
	}
}
