// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"log/slog"

	"github.com/AleutianAI/modelserve/services/predictor/handlers"
	"github.com/AleutianAI/modelserve/services/predictor/middleware"
	"github.com/AleutianAI/modelserve/services/predictor/model"
	"github.com/AleutianAI/modelserve/services/predictor/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers all predictor endpoints on router.
//
// gatherer backs the /metrics endpoint; pass prometheus.DefaultGatherer
// in production and a private registry in tests.
func SetupRoutes(router *gin.Engine, svc *model.Service, metrics *observability.Metrics,
	gatherer prometheus.Gatherer, logger *slog.Logger) {

	router.Use(middleware.RequestID(), middleware.RequestLogger(logger))

	router.GET("/", handlers.HandleIndex())
	router.GET("/health", handlers.HealthCheck(svc))
	router.GET("/model/info", handlers.HandleModelInfo(svc))
	router.POST("/predict", handlers.HandlePredict(svc, metrics, logger))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
