// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers for the predictor service.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/modelserve/services/predictor/datatypes"
	"github.com/AleutianAI/modelserve/services/predictor/middleware"
	"github.com/AleutianAI/modelserve/services/predictor/model"
	"github.com/AleutianAI/modelserve/services/predictor/observability"
	"github.com/gin-gonic/gin"
)

// HandlePredict classifies one feature vector with the loaded model.
//
// Status mapping: invalid input is the caller's fault (400), an unloaded
// model means the service is not ready (503), anything else is a generic
// server error (500) with detail kept in the logs.
func HandlePredict(svc *model.Service, metrics *observability.Metrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req datatypes.PredictionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.RecordPrediction("none", "invalid_input", time.Since(start))
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			metrics.RecordPrediction("none", "invalid_input", time.Since(start))
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		pred, err := svc.Predict(req.Features)
		if err != nil {
			switch {
			case errors.Is(err, model.ErrInvalidInput):
				metrics.RecordPrediction("none", "invalid_input", time.Since(start))
				c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			case errors.Is(err, model.ErrNotLoaded):
				metrics.RecordPrediction("none", "not_loaded", time.Since(start))
				c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{Error: "Model not loaded"})
			default:
				logger.Error("prediction failed",
					"error", err,
					"request_id", middleware.GetRequestID(c))
				metrics.RecordPrediction("none", "error", time.Since(start))
				c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "Prediction error"})
			}
			return
		}

		metrics.RecordPrediction(pred.Label, "success", time.Since(start))
		c.JSON(http.StatusOK, datatypes.PredictionResponse{
			Prediction:    pred.Label,
			Confidence:    pred.Confidence,
			Probabilities: pred.Probabilities,
			ModelVersion:  pred.ModelVersion,
		})
	}
}
