// Package annotate draws detection markers onto frames in place.
package annotate

import (
	"image/color"

	"github.com/davidmun910/infraredSignalDetector/pkg/detection"
	"gocv.io/x/gocv"
)

// Marker sizes in pixels.
const (
	PointRadius        = 5
	CircleStroke       = 2
	CircleCenterRadius = 2
)

// Common marker colors.
var (
	// Purple is the dot drawn at a color-region center (BGR 255,0,127).
	Purple = color.RGBA{R: 127, G: 0, B: 255, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Blue   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Cyan   = color.RGBA{R: 0, G: 255, B: 255, A: 255}
)

// Palette returns a per-camera color so tiles stay distinguishable once composited.
func Palette(i int) color.RGBA {
	colors := []color.RGBA{Red, Green, Blue, Yellow, Cyan}
	if i < 0 {
		i = -i
	}
	return colors[i%len(colors)]
}

// Annotator draws markers for detection results.
// It takes exclusive write access to one frame per call.
type Annotator struct {
	PointColor color.RGBA
}

// New creates an annotator with the default point color
func New() *Annotator {
	return &Annotator{PointColor: Purple}
}

// Annotate draws res onto frame and returns the same frame.
//
// A mask in res blacks out every pixel outside the mask before markers are
// drawn. Circles use the caller's marker color. A result with nothing in it
// leaves the frame untouched.
func (a *Annotator) Annotate(frame *gocv.Mat, res detection.Result, marker color.RGBA) *gocv.Mat {
	if res.HasMask() {
		applyMask(frame, *res.Mask)
	}

	if res.Point != nil {
		gocv.Circle(frame, *res.Point, PointRadius, a.PointColor, -1)
	}

	for _, c := range res.Circles {
		gocv.Circle(frame, c.Center, c.Radius, marker, CircleStroke)
		gocv.Circle(frame, c.Center, CircleCenterRadius, marker, -1)
	}

	return frame
}

// applyMask zeroes every pixel where mask is unset.
func applyMask(frame *gocv.Mat, mask gocv.Mat) {
	masked := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), frame.Rows(), frame.Cols(), frame.Type())
	defer masked.Close()

	frame.CopyToWithMask(&masked, mask)
	masked.CopyTo(frame)
}
