// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for Aleutian services.
//
// The package is a thin construction layer over the standard library slog:
// services get a JSON logger tagged with their service name, with the
// minimum level taken from configuration or the environment. Handlers and
// domain code receive a *slog.Logger and stay free of setup concerns.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{Service: "predictor"})
//	logger.Info("model loaded", "version", meta.Version)
//
// # Log Levels
//
// Four levels are supported, matching slog conventions:
//
//   - Debug: development troubleshooting, verbose output
//   - Info: normal operations (request start/end, state changes)
//   - Warn: recoverable issues (degraded mode, fallback values)
//   - Error: operation failures (but the service continues)
//
// # Thread Safety
//
// The returned *slog.Logger is safe for concurrent use.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Config configures logger construction. A zero-value Config produces an
// Info-level JSON logger on stdout.
type Config struct {
	// Level is the minimum level name: "debug", "info", "warn", "error".
	// Unknown or empty values default to "info".
	Level string

	// Service is attached to every record as the "service" attribute,
	// for filtering in aggregated log systems.
	Service string

	// Text switches to human-readable text output. JSON is the default
	// because service logs are consumed by machines.
	Text bool
}

// ParseLevel maps a level name to a slog.Level, defaulting to Info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a *slog.Logger from cfg.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Text {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	return logger
}

// FromEnv builds a logger for the named service with the level taken from
// the given environment variable.
func FromEnv(service, levelVar string) *slog.Logger {
	return New(Config{Level: os.Getenv(levelVar), Service: service})
}
