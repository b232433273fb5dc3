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
	"net/http"

	"github.com/AleutianAI/modelserve/services/predictor/datatypes"
	"github.com/AleutianAI/modelserve/services/predictor/model"
	"github.com/gin-gonic/gin"
)

// ServiceVersion is the predictor API version reported by /health.
const ServiceVersion = "1.1.0"

// HealthCheck reports service liveness. It answers 200 whether or not a
// model is loaded; readiness is the model_loaded field.
func HealthCheck(svc *model.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.HealthResponse{
			Status:      "healthy",
			ModelLoaded: svc.IsLoaded(),
			Version:     ServiceVersion,
		})
	}
}

// HandleModelInfo returns the loaded model's metadata, or 503 before a
// successful load.
func HandleModelInfo(svc *model.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		meta, err := svc.Info()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{Error: "Model not loaded"})
			return
		}

		c.JSON(http.StatusOK, datatypes.ModelInfoResponse{
			ModelType:       meta.ModelType,
			Version:         meta.Version,
			Accuracy:        meta.Accuracy,
			Features:        meta.Features,
			Classes:         meta.Classes,
			TrainingSamples: meta.TrainingSamples,
			TestSamples:     meta.TestSamples,
		})
	}
}

// HandleIndex lists the available endpoints.
func HandleIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "Aleutian Prediction API",
			"version": ServiceVersion,
			"endpoints": gin.H{
				"health":     "/health",
				"model_info": "/model/info",
				"predict":    "/predict",
				"metrics":    "/metrics",
			},
		})
	}
}
