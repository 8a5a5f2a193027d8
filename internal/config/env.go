// Package config provides environment helpers for camgrid commands.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
)

// Default process settings.
const (
	DefaultWebPort  = "8080"
	DefaultLogLevel = "info"
)

// Environment variable names.
const (
	EnvCameras  = "CAMGRID_CAMERAS"
	EnvWebPort  = "CAMGRID_WEB_PORT"
	EnvLogLevel = "CAMGRID_LOG_LEVEL"
	EnvIngest   = "CAMGRID_INGEST_URL"
)

// CameraIDs returns the device indices listed in CAMGRID_CAMERAS
// (comma separated, e.g. "1,2,3"). Returns nil, nil when unset.
func CameraIDs() ([]int, error) {
	raw := os.Getenv(EnvCameras)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return ParseCameraIDs(raw)
}

// ParseCameraIDs parses a comma separated list of decimal device indices.
// Leading zeros are ignored, so "010" is camera 10.
func ParseCameraIDs(raw string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// cast reads a leading 0 as octal
		digits := strings.TrimLeft(part, "0")
		if digits == "" {
			digits = "0"
		}
		id, err := cast.ToIntE(digits)
		if err != nil {
			return nil, fmt.Errorf("invalid camera index %q: %w", part, err)
		}
		if id < 0 {
			return nil, fmt.Errorf("invalid camera index %d: must be >= 0", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// WebPort returns the dashboard port from CAMGRID_WEB_PORT or the default.
func WebPort() string {
	if port := os.Getenv(EnvWebPort); port != "" {
		if _, err := cast.ToUint16E(port); err == nil {
			return port
		}
	}
	return DefaultWebPort
}

// LogLevel returns the log level from CAMGRID_LOG_LEVEL or the default.
func LogLevel() string {
	if level := os.Getenv(EnvLogLevel); level != "" {
		return level
	}
	return DefaultLogLevel
}

// IngestURL returns the ingest endpoint for publishers from CAMGRID_INGEST_URL.
// Falls back to the provided default if not set.
func IngestURL(defaultURL string) string {
	if u := os.Getenv(EnvIngest); u != "" {
		return u
	}
	return defaultURL
}
