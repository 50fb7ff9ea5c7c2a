// Package main is the entry point for the compute registry CLI.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/openchem/compute-registry/cmd/compute-registry/app"
)

// getLogLevel parses the COMPUTE_REGISTRY_LOG_LEVEL environment variable.
// Defaults to slog.LevelInfo if unset or invalid.
func getLogLevel() slog.Level {
	switch strings.ToLower(os.Getenv("COMPUTE_REGISTRY_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid COMPUTE_REGISTRY_LOG_LEVEL, using INFO")
		return slog.LevelInfo
	}
}

func main() {
	// Log to stderr to keep stdout clean for commands that output data
	// (e.g. list, version --format json).
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: getLogLevel()})
	slog.SetDefault(slog.New(handler))

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
