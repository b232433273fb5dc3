// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/modelserve/pkg/logging"
	"github.com/AleutianAI/modelserve/services/predictor/model"
	"github.com/AleutianAI/modelserve/services/predictor/observability"
	"github.com/AleutianAI/modelserve/services/predictor/routes"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// initTracer wires the OTLP gRPC exporter when a collector endpoint is
// configured. Returns a nil cleanup when tracing is disabled.
func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return nil, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("predictor-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func main() {
	port := envOr("PREDICTOR_PORT", "8000")

	logger := logging.FromEnv("predictor", "PREDICTOR_LOG_LEVEL")
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	if cleanup != nil {
		defer cleanup(context.Background())
	}

	cfg := model.Config{
		ArtifactPath: envOr("MODEL_PATH", "iris_classifier.json"),
		MetadataPath: envOr("MODEL_METADATA_PATH", "model_metadata.json"),
	}
	switch strings.ToLower(envOr("PREDICTOR_ALLOW_UNVERIFIED", "false")) {
	case "1", "true", "yes":
		cfg.AllowUnverified = true
	}

	metrics := observability.New(prometheus.DefaultRegisterer)
	svc := model.New(cfg, logger)
	if err := svc.Load(); err != nil {
		metrics.RecordLoad("failure", false)
		log.Fatalf("FATAL: could not load the model: %v", err)
	}
	metrics.RecordLoad("success", true)

	router := gin.Default()
	router.Use(otelgin.Middleware("predictor-service"))

	routes.SetupRoutes(router, svc, metrics, prometheus.DefaultGatherer, logger)

	logger.Info("starting the predictor server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
