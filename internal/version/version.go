// Package version exposes build-time version information.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags "-X github.com/HerbHall/fleetpulse/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Info returns a human-readable version line.
func Info() string {
	return fmt.Sprintf("fleetpulse %s (commit %s, built %s, %s)", Version, Commit, Date, runtime.Version())
}

// Map returns version fields for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
		"go":      runtime.Version(),
	}
}
