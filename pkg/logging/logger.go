// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for HappyCake services.
//
// The package is a thin layer over the standard library slog package.
// Services log JSON to stderr by default so that container runtimes and
// log shippers can pick the stream up without extra configuration.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{Service: "gateway"})
//	logger.Info("request admitted", "client_id", clientID)
//	logger.Error("upstream call failed", "error", err)
//
// The log level can be tuned per deployment with the LOG_LEVEL environment
// variable (debug, info, warn, error).
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level is the log severity threshold.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config holds logger construction options.
//
// # Fields
//
//   - Level: Minimum severity to emit. Empty means LOG_LEVEL env or info.
//   - Service: Service name attached to every record as "service".
//   - Output: Destination writer. Nil means stderr.
type Config struct {
	Level   Level
	Service string
	Output  io.Writer
}

var (
	defaultOnce   sync.Once
	defaultLogger *slog.Logger
)

// New creates a structured JSON logger from the given config.
//
// # Description
//
// Builds a slog.Logger with a JSON handler. The level is resolved in
// order: explicit Config.Level, then the LOG_LEVEL environment variable,
// then info. An unknown level string falls back to info rather than
// failing startup.
//
// # Inputs
//
//   - cfg: Logger options. The zero value is valid.
//
// # Outputs
//
//   - *slog.Logger: Ready-to-use logger, never nil.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := cfg.Level
	if level == "" {
		level = Level(strings.ToLower(os.Getenv("LOG_LEVEL")))
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: slogLevel(level),
	})

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	return logger
}

// Default returns the process-wide logger, creating it on first use.
//
// The default logger has no service attribute; services that know their
// name should prefer New.
func Default() *slog.Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(Config{})
	})
	return defaultLogger
}

// slogLevel maps a Level to the slog equivalent. Unknown values map to info.
func slogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
