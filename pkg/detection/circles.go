package detection

import (
	"fmt"
	"image"
	"math"

	"github.com/davidmun910/infraredSignalDetector/pkg/debug"
	"gocv.io/x/gocv"
)

// DefaultMaxCandidates caps the number of circles reported per frame
const DefaultMaxCandidates = 32

// CircleParams holds the smoothing and Hough gradient parameters
type CircleParams struct {
	MedianKernel int     // Median blur kernel size (odd)
	DP           float64 // Inverse accumulator resolution
	MinDist      float64 // Minimum distance between centers (px)
	Param1       float64 // Upper Canny edge threshold
	Param2       float64 // Accumulator threshold for centers
	MinRadius    int     // Smallest radius searched (px)
	MaxRadius    int     // Largest radius searched (px)
}

// DefaultCircleParams returns the fixed parameters used by the shape detector
func DefaultCircleParams() CircleParams {
	return CircleParams{
		MedianKernel: 5,
		DP:           1,
		MinDist:      20,
		Param1:       50,
		Param2:       30,
		MinRadius:    10,
		MaxRadius:    50,
	}
}

// Validate checks that the parameters are usable
func (p CircleParams) Validate() error {
	if p.MedianKernel < 1 || p.MedianKernel%2 == 0 {
		return fmt.Errorf("median kernel must be a positive odd number, got %d", p.MedianKernel)
	}
	if p.DP <= 0 {
		return fmt.Errorf("dp must be positive, got %v", p.DP)
	}
	if p.MinDist <= 0 {
		return fmt.Errorf("min distance must be positive, got %v", p.MinDist)
	}
	if p.Param1 <= 0 || p.Param2 <= 0 {
		return fmt.Errorf("hough thresholds must be positive, got %v/%v", p.Param1, p.Param2)
	}
	if p.MinRadius < 0 || p.MaxRadius < p.MinRadius {
		return fmt.Errorf("invalid radius window [%d,%d]", p.MinRadius, p.MaxRadius)
	}
	return nil
}

// CircleDetector finds circular shapes with a gradient Hough transform
type CircleDetector struct {
	Params        CircleParams
	MaxCandidates int
}

// NewCircles creates a shape detector
func NewCircles(p CircleParams) *CircleDetector {
	return &CircleDetector{Params: p, MaxCandidates: DefaultMaxCandidates}
}

// Kind returns KindCircles
func (d *CircleDetector) Kind() Kind { return KindCircles }

// Detect finds circle candidates in a BGR frame. No candidates is not an error.
func (d *CircleDetector) Detect(frame gocv.Mat) (Result, error) {
	if frame.Empty() {
		return Result{}, fmt.Errorf("empty frame")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() == 1 {
		frame.CopyTo(&gray)
	} else {
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	}

	// Median blur suppresses speckle before edge voting
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.MedianBlur(gray, &blurred, d.Params.MedianKernel)

	circles := gocv.NewMat()
	defer circles.Close()

	p := d.Params
	gocv.HoughCirclesWithParams(blurred, &circles, gocv.HoughGradient,
		p.DP, p.MinDist, p.Param1, p.Param2, p.MinRadius, p.MaxRadius)

	if circles.Empty() || circles.Cols() == 0 {
		return Result{}, nil
	}

	n := circles.Cols()
	if d.MaxCandidates > 0 && n > d.MaxCandidates {
		n = d.MaxCandidates
	}

	found := make([]Circle, n)
	for i := 0; i < n; i++ {
		x := float64(circles.GetFloatAt(0, i*3))
		y := float64(circles.GetFloatAt(0, i*3+1))
		r := float64(circles.GetFloatAt(0, i*3+2))
		found[i] = Circle{
			Center: image.Pt(int(math.Round(x)), int(math.Round(y))),
			Radius: int(math.Round(r)),
		}
	}

	debug.DetectLog("⭕ %d circle(s)\n", len(found))
	return Result{Circles: found}, nil
}
