// Package camera provides frame sources for the capture loop.
//
// This package supports multiple backends:
//   - device - local capture device by index (OpenCV VideoCapture)
//   - remote - JPEG frames pulled from a WebSocket URL
//   - ingest - frames pushed by a publisher into pkg/ingest
//   - mock - synthetic frames for tests and headless demos
package camera

import "fmt"

// Backend represents the frame source backend type.
type Backend string

const (
	// BackendDevice reads a local capture device.
	BackendDevice Backend = "device"
	// BackendRemote pulls frames from a WebSocket endpoint.
	BackendRemote Backend = "remote"
	// BackendIngest receives frames pushed to the ingest endpoint.
	BackendIngest Backend = "ingest"
	// BackendMock generates synthetic frames.
	BackendMock Backend = "mock"
)

// Backends returns every supported backend.
func Backends() []Backend {
	return []Backend{BackendDevice, BackendRemote, BackendIngest, BackendMock}
}

// Resolution limits for requested capture sizes.
const (
	MinWidth  = 160
	MinHeight = 120
	MaxWidth  = 4096
	MaxHeight = 2160
	MaxFPS    = 120
)

// Config describes one frame source.
type Config struct {
	// ID is the device index for device sources and the publisher ID for
	// ingest sources.
	ID int `yaml:"id" json:"id"`

	// Label names the source in logs and errors.
	// Default: "camera <ID>"
	Label string `yaml:"label" json:"label,omitempty"`

	// Backend selects the implementation.
	// Default: "device"
	Backend Backend `yaml:"backend" json:"backend"`

	// URL is the WebSocket endpoint for remote sources.
	URL string `yaml:"url" json:"url,omitempty"`

	// Requested capture size and rate. Zero keeps the device default.
	Width  int `yaml:"width" json:"width,omitempty"`
	Height int `yaml:"height" json:"height,omitempty"`
	FPS    int `yaml:"fps" json:"fps,omitempty"`
}

// DefaultConfig returns a device source for the given index.
func DefaultConfig(id int) Config {
	return Config{
		ID:      id,
		Backend: BackendDevice,
	}
}

// Name returns the label, or "camera <ID>" when none is set.
func (c Config) Name() string {
	if c.Label != "" {
		return c.Label
	}
	return fmt.Sprintf("camera %d", c.ID)
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	switch c.Backend {
	case BackendDevice:
		if c.ID < 0 {
			errors = append(errors, "device id must not be negative")
		}
	case BackendRemote:
		if c.URL == "" {
			errors = append(errors, "remote source requires url")
		}
	case BackendIngest, BackendMock:
	default:
		errors = append(errors, fmt.Sprintf("unknown backend %q", c.Backend))
	}

	if c.Width != 0 && (c.Width < MinWidth || c.Width > MaxWidth) {
		errors = append(errors, fmt.Sprintf("width must be 0 or between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height != 0 && (c.Height < MinHeight || c.Height > MaxHeight) {
		errors = append(errors, fmt.Sprintf("height must be 0 or between %d and %d", MinHeight, MaxHeight))
	}
	if (c.Width == 0) != (c.Height == 0) {
		errors = append(errors, "width and height must be set together")
	}
	if c.FPS < 0 || c.FPS > MaxFPS {
		errors = append(errors, fmt.Sprintf("fps must be between 0 and %d", MaxFPS))
	}

	return errors
}
