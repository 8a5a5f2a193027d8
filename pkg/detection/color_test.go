package detection

import (
	"bytes"
	"image"
	"math"
	"os"
	"strings"
	"testing"

	"gocv.io/x/gocv"

	"github.com/davidmun910/infraredSignalDetector/pkg/debug"
)

func TestColorRange_Validate(t *testing.T) {
	tests := []struct {
		name    string
		r       ColorRange
		wantErr bool
	}{
		{name: "white light", r: WhiteLight()},
		{name: "full range", r: ColorRange{Upper: HSV{H: 180, S: 255, V: 255}}},
		{name: "inverted hue", r: ColorRange{Lower: HSV{H: 90}, Upper: HSV{H: 10, S: 255, V: 255}}, wantErr: true},
		{name: "hue too large", r: ColorRange{Upper: HSV{H: 200, S: 255, V: 255}}, wantErr: true},
		{name: "negative value", r: ColorRange{Lower: HSV{V: -1}, Upper: HSV{H: 180, S: 255, V: 255}}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.r.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestColorRange_Contains(t *testing.T) {
	r := WhiteLight()
	if !r.Contains(HSV{H: 0, S: 0, V: 255}) {
		t.Error("pure white should be inside the white-light range")
	}
	if r.Contains(HSV{H: 0, S: 0, V: 100}) {
		t.Error("dim gray should be outside the white-light range")
	}
	if r.Contains(HSV{H: 120, S: 200, V: 255}) {
		t.Error("saturated color should be outside the white-light range")
	}
}

func TestColorRegion_NoMatchingPixels(t *testing.T) {
	d := NewColorRegion(WhiteLight(), false)

	frames := map[string]gocv.Mat{
		"black": blankFrame(t, 160, 120),
		"gray":  frameWithDisk(t, 160, 120, image.Pt(80, 60), 30, gray),
	}
	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			defer frame.Close()
			res, err := d.Detect(frame)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if res.Point != nil {
				t.Errorf("expected no detection, got %v", *res.Point)
			}
		})
	}
}

func TestColorRegion_WhiteDiskCenter(t *testing.T) {
	frame := frameWithDisk(t, 320, 240, image.Pt(100, 100), 30, white)
	defer frame.Close()

	res, err := NewColorRegion(WhiteLight(), false).Detect(frame)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if res.Point == nil {
		t.Fatal("expected a detection")
	}

	dx := float64(res.Point.X - 100)
	dy := float64(res.Point.Y - 100)
	if dist := math.Hypot(dx, dy); dist > 2 {
		t.Errorf("center %v is %.1fpx from (100,100), want <= 2", *res.Point, dist)
	}
}

func TestColorRegion_CenterInsideBoundingBox(t *testing.T) {
	frame := blankFrame(t, 200, 160)
	defer frame.Close()

	box := image.Rect(50, 30, 91, 71)
	gocv.Rectangle(&frame, box, white, -1)

	res, err := NewColorRegion(WhiteLight(), false).Detect(frame)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if res.Point == nil {
		t.Fatal("expected a detection")
	}
	if !res.Point.In(box) {
		t.Errorf("center %v outside region bounding box %v", *res.Point, box)
	}
}

func TestColorRegion_PicksLargestRegion(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	defer frame.Close()

	gocv.Circle(&frame, image.Pt(50, 50), 10, white, -1)
	gocv.Circle(&frame, image.Pt(220, 160), 40, white, -1)
	gocv.Circle(&frame, image.Pt(280, 40), 15, white, -1)

	res, err := NewColorRegion(WhiteLight(), false).Detect(frame)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if res.Point == nil {
		t.Fatal("expected a detection")
	}
	if math.Hypot(float64(res.Point.X-220), float64(res.Point.Y-160)) > 2 {
		t.Errorf("expected the largest disk at (220,160), got %v", *res.Point)
	}
}

func TestColorRegion_EqualAreaTieBreak(t *testing.T) {
	tests := []struct {
		name  string
		disks []image.Point
		want  image.Point
	}{
		{name: "top row wins", disks: []image.Point{{80, 180}, {80, 50}}, want: image.Pt(80, 50)},
		{name: "top row wins regardless of column", disks: []image.Point{{60, 170}, {250, 60}}, want: image.Pt(250, 60)},
		{name: "same row, leftmost wins", disks: []image.Point{{240, 120}, {70, 120}}, want: image.Pt(70, 120)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			frame := blankFrame(t, 320, 240)
			defer frame.Close()
			for _, c := range tc.disks {
				drawDisk(&frame, c, 25)
			}

			res, err := NewColorRegion(WhiteLight(), false).Detect(frame)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if res.Point == nil {
				t.Fatal("expected a detection")
			}
			if math.Hypot(float64(res.Point.X-tc.want.X), float64(res.Point.Y-tc.want.Y)) > 2 {
				t.Errorf("got %v, want the region first reached in scan order at %v", *res.Point, tc.want)
			}
		})
	}
}

func TestHSVAt(t *testing.T) {
	frame := frameWithDisk(t, 64, 48, image.Pt(32, 24), 8, white)
	defer frame.Close()

	if c := hsvAt(frame, image.Pt(32, 24)); c.V != 255 || c.S != 0 {
		t.Errorf("hsvAt(white) = %+v, want S=0 V=255", c)
	}
	if c := hsvAt(frame, image.Pt(1, 1)); c.V != 0 {
		t.Errorf("hsvAt(black) = %+v, want V=0", c)
	}
}

func TestColorRegion_DetectionTrace(t *testing.T) {
	var buf bytes.Buffer
	debug.SetOutput(&buf)
	debug.Detections = true
	defer func() {
		debug.Detections = false
		debug.SetOutput(os.Stderr)
	}()

	frame := frameWithDisk(t, 160, 120, image.Pt(80, 60), 20, white)
	defer frame.Close()

	if _, err := NewColorRegion(WhiteLight(), false).Detect(frame); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "in range=true") {
		t.Errorf("trace = %q, want the center pixel reported inside the range", out)
	}
}

func TestColorRegion_MaskOutput(t *testing.T) {
	frame := frameWithDisk(t, 160, 120, image.Pt(60, 60), 20, white)
	defer frame.Close()

	withMask := NewColorRegion(WhiteLight(), true)
	res, err := withMask.Detect(frame)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	defer res.Close()

	if !res.HasMask() {
		t.Fatal("expected a mask when MaskOutput is enabled")
	}
	if res.Mask.Rows() != frame.Rows() || res.Mask.Cols() != frame.Cols() {
		t.Errorf("mask size %dx%d, want %dx%d", res.Mask.Cols(), res.Mask.Rows(), frame.Cols(), frame.Rows())
	}
	if gocv.CountNonZero(*res.Mask) == 0 {
		t.Error("mask should have set pixels for the white disk")
	}

	plain, err := NewColorRegion(WhiteLight(), false).Detect(frame)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if plain.HasMask() {
		t.Error("no mask expected when MaskOutput is disabled")
	}
	if plain.Point == nil || res.Point == nil || *plain.Point != *res.Point {
		t.Errorf("masking must not change the detected point: %v vs %v", plain.Point, res.Point)
	}
}

func TestColorRegion_EmptyFrame(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	if _, err := NewColorRegion(WhiteLight(), false).Detect(empty); err == nil {
		t.Error("Detect on an empty frame should fail")
	}
}
