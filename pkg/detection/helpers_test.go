package detection

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gray  = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

// blankFrame returns a black 3-channel frame.
func blankFrame(t *testing.T, w, h int) gocv.Mat {
	t.Helper()
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC3)
}

// frameWithDisk returns a black frame with one filled disk.
func frameWithDisk(t *testing.T, w, h int, center image.Point, radius int, c color.RGBA) gocv.Mat {
	t.Helper()
	frame := blankFrame(t, w, h)
	gocv.Circle(&frame, center, radius, c, -1)
	return frame
}

func drawDisk(frame *gocv.Mat, center image.Point, radius int) {
	gocv.Circle(frame, center, radius, white, -1)
}
