// Package pipeline runs the capture loop: fetch one frame per source,
// detect, annotate, composite and hand the canvas to a display sink.
package pipeline

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/davidmun910/infraredSignalDetector/pkg/annotate"
	"github.com/davidmun910/infraredSignalDetector/pkg/camera"
	"github.com/davidmun910/infraredSignalDetector/pkg/composite"
	"github.com/davidmun910/infraredSignalDetector/pkg/detection"
)

// FailurePolicy decides what a failed fetch does to the run.
type FailurePolicy string

const (
	// PolicyStop ends the run on the first failed fetch.
	PolicyStop FailurePolicy = "stop"
	// PolicyRetry retries a failed fetch FetchRetries times before stopping.
	PolicyRetry FailurePolicy = "retry"
	// PolicyBlank shows a black tile for the failed source and keeps running.
	PolicyBlank FailurePolicy = "blank"
)

// Policies returns every failure policy.
func Policies() []FailurePolicy {
	return []FailurePolicy{PolicyStop, PolicyRetry, PolicyBlank}
}

// Default window and grid, matching the original three camera setup.
const (
	DefaultWindowWidth  = 800
	DefaultWindowHeight = 600
	DefaultRows         = 2
	DefaultCols         = 2
	DefaultFetchRetries = 2
)

// DefaultCameraIDs are the device indices opened when none are configured.
var DefaultCameraIDs = []int{1, 2, 3}

// SourceConfig wires one camera to its detector.
type SourceConfig struct {
	Camera   camera.Config
	Detector detection.Kind

	// Marker is the color of circle markers for this source.
	Marker color.RGBA
}

// Config holds the capture loop configuration. It is built once before
// the loop starts and never changes while it runs.
type Config struct {
	Sources []SourceConfig
	Layout  composite.Layout

	// Detection is shared by every source's detector.
	Detection detection.Config

	// PointColor is the color-region center dot color.
	PointColor color.RGBA

	Policy       FailurePolicy
	FetchRetries int           // Extra attempts under PolicyRetry
	FetchTimeout time.Duration // 0 = wait forever

	// Parallel fetches, detects and annotates every source in its own
	// goroutine. Compositing stays on the loop goroutine.
	Parallel bool

	// MaxIterations stops the run after this many canvases. 0 = unbounded.
	MaxIterations uint64
}

// NewSources builds one source per camera ID, all on the same backend and
// detector, with markers from the annotate palette.
func NewSources(ids []int, backend camera.Backend, kind detection.Kind) []SourceConfig {
	sources := make([]SourceConfig, len(ids))
	for i, id := range ids {
		cfg := camera.DefaultConfig(id)
		cfg.Backend = backend
		sources[i] = SourceConfig{
			Camera:   cfg,
			Detector: kind,
			Marker:   annotate.Palette(i),
		}
	}
	return sources
}

// DefaultConfig returns the white-light configuration.
func DefaultConfig() Config {
	return WhiteLightConfig()
}

// Validate checks the configuration. Grid overflow is reported as
// composite.ErrGridOverflow and an empty source list as ErrNoSources.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Sources) == 0 {
		errs = append(errs, ErrNoSources)
	}
	if err := c.Layout.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("layout: %w", err))
	} else if err := c.Layout.CheckFits(len(c.Sources)); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool)
	for i, s := range c.Sources {
		name := s.Camera.Name()
		for _, msg := range s.Camera.Validate() {
			errs = append(errs, fmt.Errorf("source %d (%s): %s", i, name, msg))
		}
		if !validKind(s.Detector) {
			errs = append(errs, fmt.Errorf("source %d (%s): unknown detector %q", i, name, s.Detector))
		}
		key := fmt.Sprintf("%s/%d/%s", s.Camera.Backend, s.Camera.ID, s.Camera.URL)
		if s.Camera.Backend != camera.BackendMock && seen[key] {
			errs = append(errs, fmt.Errorf("source %d (%s): duplicate camera", i, name))
		}
		seen[key] = true
	}

	switch c.Policy {
	case PolicyStop, PolicyRetry, PolicyBlank:
	default:
		errs = append(errs, fmt.Errorf("unknown failure policy %q", c.Policy))
	}
	if c.FetchRetries < 0 {
		errs = append(errs, fmt.Errorf("fetch_retries must not be negative, got %d", c.FetchRetries))
	}
	if c.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must not be negative, got %v", c.FetchTimeout))
	}

	return errors.Join(errs...)
}

func validKind(k detection.Kind) bool {
	if k == "" {
		return true
	}
	for _, known := range detection.Kinds() {
		if k == known {
			return true
		}
	}
	return false
}
