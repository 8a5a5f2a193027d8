package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/davidmun910/infraredSignalDetector/pkg/camera"
	"github.com/davidmun910/infraredSignalDetector/pkg/composite"
	"github.com/davidmun910/infraredSignalDetector/pkg/detection"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns n mock sources on a 2x2 grid of 200x150 cells,
// without masking.
func testConfig(n int, kind detection.Kind) Config {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	cfg := WhiteLightConfig()
	cfg.Sources = NewSources(ids, camera.BackendMock, kind)
	cfg.Layout = composite.LayoutForWindow(400, 300, 2, 2)
	cfg.Detection.MaskOutput = false
	return cfg
}

// mockOpener opens MockSources and remembers them so tests can inspect
// fetch and release counts. opts returns extra options per camera ID.
type mockOpener struct {
	mu      sync.Mutex
	sources []*camera.MockSource
	opts    func(id int) []camera.MockSourceOption
	failID  int // camera ID that fails to open, 0 = none
}

func (o *mockOpener) open(cfg camera.Config) (camera.Source, error) {
	if o.failID != 0 && cfg.ID == o.failID {
		return nil, fmt.Errorf("%w: camera %d busy", camera.ErrSourceUnavailable, cfg.ID)
	}

	opts := []camera.MockSourceOption{
		camera.WithFrameSize(200, 150),
		camera.WithBackground(color.RGBA{R: 10, G: 10, B: 10, A: 255}),
		camera.WithSpot(image.Pt(100, 75), 15, color.RGBA{R: 255, G: 255, B: 255, A: 255}),
	}
	if o.opts != nil {
		opts = append(opts, o.opts(cfg.ID)...)
	}
	m := camera.NewMockSource(cfg, quietLogger(), opts...)

	o.mu.Lock()
	o.sources = append(o.sources, m)
	o.mu.Unlock()
	return m, nil
}

func (o *mockOpener) opened() []*camera.MockSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*camera.MockSource(nil), o.sources...)
}

func bgrAt(m gocv.Mat, x, y int) [3]uint8 {
	return [3]uint8{m.GetUCharAt(y, x*3), m.GetUCharAt(y, x*3+1), m.GetUCharAt(y, x*3+2)}
}
