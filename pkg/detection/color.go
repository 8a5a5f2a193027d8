package detection

import (
	"fmt"
	"image"
	"math"

	"github.com/davidmun910/infraredSignalDetector/pkg/debug"
	"gocv.io/x/gocv"
)

// HSV is a hue/saturation/value triple in OpenCV convention:
// H 0-180, S 0-255, V 0-255.
type HSV struct {
	H, S, V float64
}

// ColorRange is an inclusive HSV range used to build a binary mask
type ColorRange struct {
	Lower HSV
	Upper HSV
}

// WhiteLight returns the range used to track a bright white light:
// any hue, low saturation, high brightness.
func WhiteLight() ColorRange {
	return ColorRange{
		Lower: HSV{H: 0, S: 0, V: 170},
		Upper: HSV{H: 180, S: 25, V: 255},
	}
}

// Validate checks component bounds and Lower <= Upper.
func (r ColorRange) Validate() error {
	check := func(name string, lo, hi, max float64) error {
		if lo < 0 || hi > max {
			return fmt.Errorf("color range %s must be within [0,%v], got [%v,%v]", name, max, lo, hi)
		}
		if lo > hi {
			return fmt.Errorf("color range %s lower bound %v exceeds upper bound %v", name, lo, hi)
		}
		return nil
	}
	if err := check("hue", r.Lower.H, r.Upper.H, 180); err != nil {
		return err
	}
	if err := check("saturation", r.Lower.S, r.Upper.S, 255); err != nil {
		return err
	}
	return check("value", r.Lower.V, r.Upper.V, 255)
}

// Contains reports whether an HSV triple falls inside the range
func (r ColorRange) Contains(c HSV) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

func (r ColorRange) scalars() (lower, upper gocv.Scalar) {
	return gocv.NewScalar(r.Lower.H, r.Lower.S, r.Lower.V, 0),
		gocv.NewScalar(r.Upper.H, r.Upper.S, r.Upper.V, 0)
}

// ColorRegionDetector finds the largest connected region inside a color range
// and reports the center of its minimum enclosing circle.
type ColorRegionDetector struct {
	Range ColorRange

	// MaskOutput makes Detect return the inclusion mask so the frame can be
	// blacked out everywhere except the matched pixels.
	MaskOutput bool
}

// NewColorRegion creates a color-region detector
func NewColorRegion(r ColorRange, maskOutput bool) *ColorRegionDetector {
	return &ColorRegionDetector{Range: r, MaskOutput: maskOutput}
}

// Kind returns KindColorRegion
func (d *ColorRegionDetector) Kind() Kind { return KindColorRegion }

// Detect finds the largest matching region in a BGR frame
func (d *ColorRegionDetector) Detect(frame gocv.Mat) (Result, error) {
	if frame.Empty() {
		return Result{}, fmt.Errorf("empty frame")
	}

	mask := d.buildMask(frame)

	res := Result{}
	if pt, ok := largestRegionCenter(mask); ok {
		res.Point = &pt
		if debug.Detections {
			c := hsvAt(frame, pt)
			debug.DetectLog("🎯 color region at (%d,%d) hsv=(%.0f,%.0f,%.0f) in range=%v\n",
				pt.X, pt.Y, c.H, c.S, c.V, d.Range.Contains(c))
		}
	}

	if d.MaskOutput {
		res.Mask = &mask
	} else {
		mask.Close()
	}
	return res, nil
}

// hsvAt returns the HSV value of one BGR pixel. The point must lie inside
// the frame.
func hsvAt(frame gocv.Mat, pt image.Point) HSV {
	px := frame.Region(image.Rect(pt.X, pt.Y, pt.X+1, pt.Y+1))
	defer px.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(px, &hsv, gocv.ColorBGRToHSV)

	return HSV{
		H: float64(hsv.GetUCharAt(0, 0)),
		S: float64(hsv.GetUCharAt(0, 1)),
		V: float64(hsv.GetUCharAt(0, 2)),
	}
}

// buildMask converts to HSV and thresholds against the range.
func (d *ColorRegionDetector) buildMask(frame gocv.Mat) gocv.Mat {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	lower, upper := d.Range.scalars()
	mask := gocv.NewMat()
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)
	return mask
}

// largestRegionCenter returns the rounded center of the minimum enclosing
// circle of the largest external contour. Contours with zero area never
// qualify. Among regions of equal area the one whose first pixel comes
// earliest in raster order (top row first, then leftmost) wins, whatever
// order FindContours lists them in.
func largestRegionCenter(mask gocv.Mat) (image.Point, bool) {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best := -1
	maxArea := 0.0
	var bestFirst image.Point
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area <= 0 || area < maxArea {
			continue
		}
		first := scanFirst(contours.At(i).ToPoints())
		if area > maxArea || scanBefore(first, bestFirst) {
			maxArea = area
			best = i
			bestFirst = first
		}
	}
	if best < 0 {
		return image.Point{}, false
	}

	x, y, _ := gocv.MinEnclosingCircle(contours.At(best))
	return image.Pt(int(math.Round(float64(x))), int(math.Round(float64(y)))), true
}

// scanFirst returns the contour point a row-major scan reaches first.
func scanFirst(pts []image.Point) image.Point {
	first := pts[0]
	for _, p := range pts[1:] {
		if scanBefore(p, first) {
			first = p
		}
	}
	return first
}

func scanBefore(a, b image.Point) bool {
	return a.Y < b.Y || (a.Y == b.Y && a.X < b.X)
}
