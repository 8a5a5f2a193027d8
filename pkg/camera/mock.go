package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// Default mock frame size.
const (
	MockWidth  = 640
	MockHeight = 480
)

// MockSource is a mock frame source for testing.
// It generates solid frames with an optional filled disk.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	width      int
	height     int
	background color.RGBA
	spot       *mockSpot
	failAfter  int // -1 = never
	delay      time.Duration

	fetches    atomic.Int64
	closeCalls atomic.Int64
	releases   atomic.Int64
	closed     atomic.Bool
}

type mockSpot struct {
	center image.Point
	radius int
	color  color.RGBA
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithFrameSize sets the generated frame size.
func WithFrameSize(width, height int) MockSourceOption {
	return func(m *MockSource) {
		m.width = width
		m.height = height
	}
}

// WithBackground sets the frame fill color.
func WithBackground(c color.RGBA) MockSourceOption {
	return func(m *MockSource) {
		m.background = c
	}
}

// WithSpot draws a filled disk on every frame.
func WithSpot(center image.Point, radius int, c color.RGBA) MockSourceOption {
	return func(m *MockSource) {
		m.spot = &mockSpot{center: center, radius: radius, color: c}
	}
}

// WithFailAfter makes every fetch after the first n fail with ErrFrameUnavailable.
func WithFailAfter(n int) MockSourceOption {
	return func(m *MockSource) {
		m.failAfter = n
	}
}

// WithFetchDelay makes every fetch wait d before returning.
func WithFetchDelay(d time.Duration) MockSourceOption {
	return func(m *MockSource) {
		m.delay = d
	}
}

// NewMockSource creates a new mock frame source.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MockSource{
		cfg:        cfg,
		logger:     logger,
		width:      MockWidth,
		height:     MockHeight,
		background: color.RGBA{A: 255},
		failAfter:  -1,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// mockDefaults returns the options used for mock sources built from config:
// requested size, dark background and a white spot in the middle.
func mockDefaults(cfg Config) []MockSourceOption {
	w, h := MockWidth, MockHeight
	if cfg.Width > 0 && cfg.Height > 0 {
		w, h = cfg.Width, cfg.Height
	}
	return []MockSourceOption{
		WithFrameSize(w, h),
		WithBackground(color.RGBA{R: 20, G: 20, B: 20, A: 255}),
		WithSpot(image.Pt(w/2, h/2), min(w, h)/10, color.RGBA{R: 255, G: 255, B: 255, A: 255}),
	}
}

// Label returns the source label.
func (m *MockSource) Label() string {
	return m.cfg.Name()
}

// Fetch generates a frame.
func (m *MockSource) Fetch(ctx context.Context) (gocv.Mat, error) {
	if m.closed.Load() {
		return gocv.Mat{}, frameUnavailable(m.Label(), ErrClosed)
	}

	n := m.fetches.Add(1)

	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return gocv.Mat{}, frameUnavailable(m.Label(), ctx.Err())
		case <-time.After(m.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return gocv.Mat{}, frameUnavailable(m.Label(), err)
	}

	if m.failAfter >= 0 && n > int64(m.failAfter) {
		return gocv.Mat{}, frameUnavailable(m.Label(), fmt.Errorf("mock failure on fetch %d", n))
	}

	bg := m.background
	frame := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(bg.B), float64(bg.G), float64(bg.R), 0),
		m.height, m.width, gocv.MatTypeCV8UC3,
	)
	if m.spot != nil {
		gocv.Circle(&frame, m.spot.center, m.spot.radius, m.spot.color, -1)
	}
	return frame, nil
}

// Close marks the source released. It is safe to call Close multiple times.
func (m *MockSource) Close() error {
	m.closeCalls.Add(1)
	if m.closed.CompareAndSwap(false, true) {
		m.releases.Add(1)
		m.logger.Debug("mock source released", "source", m.Label(), "fetches", m.fetches.Load())
	}
	return nil
}

// Fetches returns the number of Fetch calls.
func (m *MockSource) Fetches() int {
	return int(m.fetches.Load())
}

// CloseCalls returns the number of Close calls.
func (m *MockSource) CloseCalls() int {
	return int(m.closeCalls.Load())
}

// Releases returns how many times the source was actually released.
func (m *MockSource) Releases() int {
	return int(m.releases.Load())
}
