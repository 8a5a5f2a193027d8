package pipeline

import (
	"github.com/davidmun910/infraredSignalDetector/pkg/annotate"
	"github.com/davidmun910/infraredSignalDetector/pkg/camera"
	"github.com/davidmun910/infraredSignalDetector/pkg/composite"
	"github.com/davidmun910/infraredSignalDetector/pkg/detection"
)

// Preset names
const (
	PresetWhiteLight = "white-light"
	PresetCircles    = "circles"
)

// WhiteLightConfig tracks the brightest white region on cameras 1, 2 and 3
// and shows them on a 2x2 grid in an 800x600 window. Everything outside the
// white region is blacked out.
func WhiteLightConfig() Config {
	det := detection.DefaultConfig()
	det.MaskOutput = true

	return Config{
		Sources:      NewSources(DefaultCameraIDs, camera.BackendDevice, detection.KindColorRegion),
		Layout:       composite.LayoutForWindow(DefaultWindowWidth, DefaultWindowHeight, DefaultRows, DefaultCols),
		Detection:    det,
		PointColor:   annotate.Purple,
		Policy:       PolicyStop,
		FetchRetries: DefaultFetchRetries,
	}
}

// CirclesConfig finds circles on cameras 1, 2 and 3, one marker color per
// camera, on the same grid.
func CirclesConfig() Config {
	cfg := WhiteLightConfig()
	cfg.Sources = NewSources(DefaultCameraIDs, camera.BackendDevice, detection.KindCircles)
	cfg.Detection.MaskOutput = false
	return cfg
}

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetWhiteLight: WhiteLightConfig(),
		PresetCircles:    CirclesConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetWhiteLight, PresetCircles}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}
