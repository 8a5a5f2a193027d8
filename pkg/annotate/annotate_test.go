package annotate

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/davidmun910/infraredSignalDetector/pkg/detection"
	"gocv.io/x/gocv"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func testFrame(t *testing.T) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0), 120, 160, gocv.MatTypeCV8UC3)
	gocv.Circle(&frame, image.Pt(80, 60), 20, white, -1)
	return frame
}

// bgrAt returns the B, G, R bytes at (x, y).
func bgrAt(m gocv.Mat, x, y int) [3]uint8 {
	return [3]uint8{m.GetUCharAt(y, x*3), m.GetUCharAt(y, x*3+1), m.GetUCharAt(y, x*3+2)}
}

func TestAnnotate_NoDetectionsIsBitIdentical(t *testing.T) {
	frame := testFrame(t)
	defer frame.Close()
	before := frame.ToBytes()

	out := New().Annotate(&frame, detection.Result{}, Red)

	if out != &frame {
		t.Error("Annotate should return the same frame it was given")
	}
	if !bytes.Equal(before, frame.ToBytes()) {
		t.Error("frame changed although there was nothing to draw")
	}
}

func TestAnnotate_PointDrawsPurpleDot(t *testing.T) {
	frame := testFrame(t)
	defer frame.Close()

	pt := image.Pt(30, 30)
	New().Annotate(&frame, detection.Result{Point: &pt}, Red)

	got := bgrAt(frame, 30, 30)
	want := [3]uint8{255, 0, 127}
	if got != want {
		t.Errorf("pixel at dot center = %v, want BGR %v", got, want)
	}

	// Outside the dot radius nothing changes
	if got := bgrAt(frame, 30+PointRadius+3, 30); got != [3]uint8{40, 80, 120} {
		t.Errorf("pixel outside dot = %v, want background", got)
	}
}

func TestAnnotate_CirclesUseMarkerColor(t *testing.T) {
	frame := testFrame(t)
	defer frame.Close()

	res := detection.Result{Circles: []detection.Circle{{Center: image.Pt(80, 60), Radius: 25}}}
	New().Annotate(&frame, res, Green)

	if got := bgrAt(frame, 80, 60); got != [3]uint8{0, 255, 0} {
		t.Errorf("center dot = %v, want green", got)
	}
	if got := bgrAt(frame, 80+25, 60); got != [3]uint8{0, 255, 0} {
		t.Errorf("outline pixel = %v, want green", got)
	}
	if got := bgrAt(frame, 80+12, 60); got != [3]uint8{255, 255, 255} {
		t.Errorf("pixel between outline and center = %v, want untouched white", got)
	}
}

func TestAnnotate_MaskBlacksOutBackground(t *testing.T) {
	frame := testFrame(t)
	defer frame.Close()

	det := detection.NewColorRegion(detection.WhiteLight(), true)
	res, err := det.Detect(frame)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	defer res.Close()

	New().Annotate(&frame, res, Red)

	if got := bgrAt(frame, 5, 5); got != [3]uint8{0, 0, 0} {
		t.Errorf("background pixel = %v, want black after masking", got)
	}
	if got := bgrAt(frame, 80, 60); got != [3]uint8{255, 0, 127} {
		t.Errorf("center pixel = %v, want purple dot drawn after masking", got)
	}
	if got := bgrAt(frame, 80+15, 60); got != [3]uint8{255, 255, 255} {
		t.Errorf("matched pixel = %v, want preserved white", got)
	}
}

func TestPalette(t *testing.T) {
	if Palette(0) == Palette(1) {
		t.Error("adjacent cameras should get different colors")
	}
	if Palette(5) != Palette(0) {
		t.Error("palette should wrap around")
	}
	if Palette(-1) != Palette(1) {
		t.Error("negative indices should not panic")
	}
}
