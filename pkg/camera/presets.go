package camera

// Preset names for common capture sizes
const (
	PresetNative = "native"
	PresetVGA    = "vga"
	PresetSVGA   = "svga"
	Preset720p   = "720p"
	Preset1080p  = "1080p"
)

// Presets returns all available capture size presets.
func Presets() map[string]Config {
	return map[string]Config{
		PresetNative: {},
		PresetVGA:    {Width: 640, Height: 480, FPS: 30},
		PresetSVGA:   {Width: 800, Height: 600, FPS: 30},
		Preset720p:   {Width: 1280, Height: 720, FPS: 30},
		Preset1080p:  {Width: 1920, Height: 1080, FPS: 30},
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetNative,
		PresetVGA,
		PresetSVGA,
		Preset720p,
		Preset1080p,
	}
}

// ApplyPreset copies the capture size of the named preset onto cfg.
// It returns false when the preset does not exist.
func ApplyPreset(cfg *Config, name string) bool {
	p, ok := Presets()[name]
	if !ok {
		return false
	}
	cfg.Width, cfg.Height, cfg.FPS = p.Width, p.Height, p.FPS
	return true
}
