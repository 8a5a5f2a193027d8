// Package detection provides per-frame color and shape detection using computer vision
package detection

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Kind selects which detector a camera is wired to
type Kind string

const (
	// KindColorRegion tracks the largest region inside a color range
	KindColorRegion Kind = "color"
	// KindCircles finds circles with a Hough transform
	KindCircles Kind = "circles"
	// KindNone passes frames through untouched
	KindNone Kind = "none"
)

// Kinds returns all detector kinds.
func Kinds() []Kind {
	return []Kind{KindColorRegion, KindCircles, KindNone}
}

// Circle is a circle candidate in pixel coordinates
type Circle struct {
	Center image.Point
	Radius int
}

// Result holds everything one detector found in one frame.
// Point is set by the color-region detector, Circles by the shape detector.
// Mask is only set when masking output is enabled; call Close to release it.
type Result struct {
	Point   *image.Point
	Circles []Circle
	Mask    *gocv.Mat
}

// Empty reports whether nothing was detected
func (r Result) Empty() bool {
	return r.Point == nil && len(r.Circles) == 0
}

// Count returns the number of detections
func (r Result) Count() int {
	n := len(r.Circles)
	if r.Point != nil {
		n++
	}
	return n
}

// HasMask reports whether the result carries a masking output
func (r Result) HasMask() bool {
	return r.Mask != nil && !r.Mask.Empty()
}

// Close releases the mask, if any
func (r *Result) Close() error {
	if r.Mask != nil {
		err := r.Mask.Close()
		r.Mask = nil
		return err
	}
	return nil
}

// Detector is the interface for per-frame detection backends
type Detector interface {
	// Detect inspects one BGR frame. It never modifies the frame.
	Detect(frame gocv.Mat) (Result, error)

	// Kind identifies the backend
	Kind() Kind
}

// Config holds detector configuration shared by all cameras
type Config struct {
	ColorRange    ColorRange
	Circles       CircleParams
	MaskOutput    bool // Color-region only: return the inclusion mask
	MaxCandidates int  // Circles only: cap on candidates per frame
}

// DefaultConfig returns the white-light range and the fixed Hough parameters
func DefaultConfig() Config {
	return Config{
		ColorRange:    WhiteLight(),
		Circles:       DefaultCircleParams(),
		MaxCandidates: DefaultMaxCandidates,
	}
}

// New creates a detector of the given kind
func New(kind Kind, cfg Config) (Detector, error) {
	switch kind {
	case KindColorRegion:
		if err := cfg.ColorRange.Validate(); err != nil {
			return nil, err
		}
		return NewColorRegion(cfg.ColorRange, cfg.MaskOutput), nil
	case KindCircles:
		if err := cfg.Circles.Validate(); err != nil {
			return nil, err
		}
		d := NewCircles(cfg.Circles)
		if cfg.MaxCandidates > 0 {
			d.MaxCandidates = cfg.MaxCandidates
		}
		return d, nil
	case KindNone, "":
		return Passthrough{}, nil
	default:
		return nil, fmt.Errorf("unknown detector kind: %q", kind)
	}
}

// Passthrough never detects anything
type Passthrough struct{}

// Detect returns an empty result
func (Passthrough) Detect(gocv.Mat) (Result, error) { return Result{}, nil }

// Kind returns KindNone
func (Passthrough) Kind() Kind { return KindNone }
