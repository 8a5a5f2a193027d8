package pipeline

import (
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davidmun910/infraredSignalDetector/pkg/annotate"
	"github.com/davidmun910/infraredSignalDetector/pkg/camera"
	"github.com/davidmun910/infraredSignalDetector/pkg/composite"
	"github.com/davidmun910/infraredSignalDetector/pkg/detection"
)

// fileConfig is the YAML layout of a configuration file. Every field is
// optional and overrides the preset it starts from.
type fileConfig struct {
	Preset        string       `yaml:"preset"`
	Window        *windowFile  `yaml:"window"`
	Grid          *gridFile    `yaml:"grid"`
	Policy        string       `yaml:"policy"`
	FetchRetries  *int         `yaml:"fetch_retries"`
	FetchTimeout  string       `yaml:"fetch_timeout"` // e.g. "2s"
	Parallel      *bool        `yaml:"parallel"`
	MaxIterations *uint64      `yaml:"max_iterations"`
	PointColor    string       `yaml:"point_color"` // "#rrggbb"
	MaskOutput    *bool        `yaml:"mask_output"`
	ColorRange    *rangeFile   `yaml:"color_range"`
	Hough         *houghFile   `yaml:"hough"`
	MaxCandidates *int         `yaml:"max_candidates"`
	Sources       []sourceFile `yaml:"sources"`
}

type windowFile struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type gridFile struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

type rangeFile struct {
	Lower [3]float64 `yaml:"lower"` // H, S, V
	Upper [3]float64 `yaml:"upper"`
}

type houghFile struct {
	MedianKernel *int     `yaml:"median_kernel"`
	DP           *float64 `yaml:"dp"`
	MinDist      *float64 `yaml:"min_dist"`
	Param1       *float64 `yaml:"param1"`
	Param2       *float64 `yaml:"param2"`
	MinRadius    *int     `yaml:"min_radius"`
	MaxRadius    *int     `yaml:"max_radius"`
}

type sourceFile struct {
	camera.Config `yaml:",inline"`

	Detector string `yaml:"detector"`
	Preset   string `yaml:"preset"` // camera size preset, e.g. "vga"
	Marker   string `yaml:"marker"` // "#rrggbb"
}

// LoadFile reads a YAML configuration file and applies it on top of its
// preset (white-light when none is named). The result is validated.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration document. See LoadFile.
func Parse(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg, err := fc.apply()
	if err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (fc *fileConfig) apply() (Config, error) {
	cfg := DefaultConfig()
	if fc.Preset != "" {
		p := GetPreset(fc.Preset)
		if p == nil {
			return Config{}, fmt.Errorf("unknown preset %q (have %s)", fc.Preset, strings.Join(PresetNames(), ", "))
		}
		cfg = *p
	}

	// Grid and window are resolved together since cell size depends on both.
	width, height := cfg.Layout.Width(), cfg.Layout.Height()
	rows, cols := cfg.Layout.Rows, cfg.Layout.Cols
	if fc.Window != nil {
		width, height = fc.Window.Width, fc.Window.Height
	}
	if fc.Grid != nil {
		rows, cols = fc.Grid.Rows, fc.Grid.Cols
	}
	if fc.Window != nil || fc.Grid != nil {
		cfg.Layout = composite.LayoutForWindow(width, height, rows, cols)
	}

	if fc.Policy != "" {
		cfg.Policy = FailurePolicy(fc.Policy)
	}
	if fc.FetchRetries != nil {
		cfg.FetchRetries = *fc.FetchRetries
	}
	if fc.FetchTimeout != "" {
		d, err := time.ParseDuration(fc.FetchTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("fetch_timeout: %w", err)
		}
		cfg.FetchTimeout = d
	}
	if fc.Parallel != nil {
		cfg.Parallel = *fc.Parallel
	}
	if fc.MaxIterations != nil {
		cfg.MaxIterations = *fc.MaxIterations
	}
	if fc.PointColor != "" {
		c, err := ParseHexColor(fc.PointColor)
		if err != nil {
			return Config{}, fmt.Errorf("point_color: %w", err)
		}
		cfg.PointColor = c
	}

	if fc.MaskOutput != nil {
		cfg.Detection.MaskOutput = *fc.MaskOutput
	}
	if fc.ColorRange != nil {
		cfg.Detection.ColorRange = detection.ColorRange{
			Lower: detection.HSV{H: fc.ColorRange.Lower[0], S: fc.ColorRange.Lower[1], V: fc.ColorRange.Lower[2]},
			Upper: detection.HSV{H: fc.ColorRange.Upper[0], S: fc.ColorRange.Upper[1], V: fc.ColorRange.Upper[2]},
		}
		if err := cfg.Detection.ColorRange.Validate(); err != nil {
			return Config{}, fmt.Errorf("color_range: %w", err)
		}
	}
	if fc.Hough != nil {
		fc.Hough.applyTo(&cfg.Detection.Circles)
		if err := cfg.Detection.Circles.Validate(); err != nil {
			return Config{}, fmt.Errorf("hough: %w", err)
		}
	}
	if fc.MaxCandidates != nil {
		cfg.Detection.MaxCandidates = *fc.MaxCandidates
	}

	if len(fc.Sources) > 0 {
		kind := cfg.Sources[0].Detector
		sources := make([]SourceConfig, len(fc.Sources))
		for i, sf := range fc.Sources {
			s, err := sf.toSource(i, kind)
			if err != nil {
				return Config{}, fmt.Errorf("sources[%d]: %w", i, err)
			}
			sources[i] = s
		}
		cfg.Sources = sources
	}

	return cfg, nil
}

func (h *houghFile) applyTo(p *detection.CircleParams) {
	if h.MedianKernel != nil {
		p.MedianKernel = *h.MedianKernel
	}
	if h.DP != nil {
		p.DP = *h.DP
	}
	if h.MinDist != nil {
		p.MinDist = *h.MinDist
	}
	if h.Param1 != nil {
		p.Param1 = *h.Param1
	}
	if h.Param2 != nil {
		p.Param2 = *h.Param2
	}
	if h.MinRadius != nil {
		p.MinRadius = *h.MinRadius
	}
	if h.MaxRadius != nil {
		p.MaxRadius = *h.MaxRadius
	}
}

func (sf sourceFile) toSource(i int, defaultKind detection.Kind) (SourceConfig, error) {
	cam := sf.Config
	if cam.Backend == "" {
		cam.Backend = camera.BackendDevice
	}
	if sf.Preset != "" && !camera.ApplyPreset(&cam, sf.Preset) {
		return SourceConfig{}, fmt.Errorf("unknown camera preset %q", sf.Preset)
	}

	s := SourceConfig{
		Camera:   cam,
		Detector: defaultKind,
		Marker:   annotate.Palette(i),
	}
	if sf.Detector != "" {
		s.Detector = detection.Kind(sf.Detector)
	}
	if sf.Marker != "" {
		c, err := ParseHexColor(sf.Marker)
		if err != nil {
			return SourceConfig{}, fmt.Errorf("marker: %w", err)
		}
		s.Marker = c
	}
	return s, nil
}

// ParseHexColor parses "#rrggbb" or "rrggbb".
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
