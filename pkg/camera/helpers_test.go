package camera

import (
	"image/color"
	"io"
	"log/slog"
	"testing"

	"gocv.io/x/gocv"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// encodeJPEG returns a JPEG of a solid w x h frame.
func encodeJPEG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	frame := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0), h, w, gocv.MatTypeCV8UC3)
	defer frame.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		t.Fatalf("IMEncode() error = %v", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out
}
