package pipeline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/davidmun910/infraredSignalDetector/pkg/annotate"
	"github.com/davidmun910/infraredSignalDetector/pkg/camera"
	"github.com/davidmun910/infraredSignalDetector/pkg/composite"
	"github.com/davidmun910/infraredSignalDetector/pkg/detection"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if len(cfg.Sources) != 3 {
		t.Fatalf("sources = %d, want 3", len(cfg.Sources))
	}
	for i, s := range cfg.Sources {
		if s.Camera.ID != i+1 {
			t.Errorf("source %d ID = %d, want %d", i, s.Camera.ID, i+1)
		}
		if s.Camera.Backend != camera.BackendDevice {
			t.Errorf("source %d backend = %q", i, s.Camera.Backend)
		}
		if s.Detector != detection.KindColorRegion {
			t.Errorf("source %d detector = %q", i, s.Detector)
		}
	}
	if cfg.Layout.Width() != 800 || cfg.Layout.Height() != 600 || cfg.Layout.Capacity() != 4 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.PointColor != annotate.Purple {
		t.Errorf("PointColor = %v, want purple", cfg.PointColor)
	}
	if cfg.Policy != PolicyStop {
		t.Errorf("Policy = %q, want stop", cfg.Policy)
	}
	if !cfg.Detection.MaskOutput {
		t.Error("white-light MaskOutput = false, want the output masked to the white region")
	}
	if GetPreset(PresetCircles).Detection.MaskOutput {
		t.Error("circles MaskOutput = true, want unmasked frames")
	}
}

func TestPresets(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("GetPreset(%q) = nil", name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %q Validate() error = %v", name, err)
		}
	}

	circles := GetPreset(PresetCircles)
	markers := map[[4]uint8]bool{}
	for _, s := range circles.Sources {
		if s.Detector != detection.KindCircles {
			t.Errorf("circles preset detector = %q", s.Detector)
		}
		markers[[4]uint8{s.Marker.R, s.Marker.G, s.Marker.B, s.Marker.A}] = true
	}
	if len(markers) != len(circles.Sources) {
		t.Errorf("circles preset markers not distinct: %v", markers)
	}

	if GetPreset("nope") != nil {
		t.Error("GetPreset(unknown) != nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
		wantIs  error
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name:   "no sources",
			modify: func(c *Config) { c.Sources = nil },
			wantIs: ErrNoSources,
		},
		{
			name: "grid overflow",
			modify: func(c *Config) {
				c.Sources = NewSources([]int{1, 2, 3, 4, 5}, camera.BackendMock, detection.KindNone)
			},
			wantIs: composite.ErrGridOverflow,
		},
		{
			name:    "bad layout",
			modify:  func(c *Config) { c.Layout.Rows = 0 },
			wantErr: "layout",
		},
		{
			name:    "unknown detector",
			modify:  func(c *Config) { c.Sources[0].Detector = "edges" },
			wantErr: "unknown detector",
		},
		{
			name: "duplicate device",
			modify: func(c *Config) {
				c.Sources[1].Camera.ID = c.Sources[0].Camera.ID
			},
			wantErr: "duplicate camera",
		},
		{
			name:    "unknown policy",
			modify:  func(c *Config) { c.Policy = "panic" },
			wantErr: "unknown failure policy",
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.FetchRetries = -1 },
			wantErr: "fetch_retries",
		},
		{
			name:    "negative timeout",
			modify:  func(c *Config) { c.FetchTimeout = -time.Second },
			wantErr: "fetch_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()

			switch {
			case tt.wantIs != nil:
				if !errors.Is(err, tt.wantIs) {
					t.Errorf("Validate() error = %v, want %v", err, tt.wantIs)
				}
			case tt.wantErr != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
			}
		})
	}
}

func TestConfig_ValidateMockDuplicates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sources = NewSources([]int{1, 1}, camera.BackendMock, detection.KindNone)
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, mock sources may repeat", err)
	}
}

func TestNewSources(t *testing.T) {
	sources := NewSources([]int{4, 7}, camera.BackendMock, detection.KindCircles)
	if len(sources) != 2 {
		t.Fatalf("len = %d, want 2", len(sources))
	}
	if sources[1].Camera.ID != 7 || sources[1].Camera.Backend != camera.BackendMock {
		t.Errorf("sources[1].Camera = %+v", sources[1].Camera)
	}
	if sources[0].Marker != annotate.Palette(0) || sources[1].Marker != annotate.Palette(1) {
		t.Error("markers do not follow the palette")
	}
}
