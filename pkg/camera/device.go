package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// DeviceSource reads frames from a local capture device.
type DeviceSource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	capture *gocv.VideoCapture
	closed  bool
	frames  uint64
}

// OpenDevice opens the capture device with index cfg.ID.
func OpenDevice(cfg Config, logger *slog.Logger) (*DeviceSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	capture, err := gocv.OpenVideoCapture(cfg.ID)
	if err != nil {
		return nil, unavailable(cfg.Name(), err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, unavailable(cfg.Name(), fmt.Errorf("device %d did not open", cfg.ID))
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.FPS > 0 {
		capture.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
	}

	logger.Debug("capture device opened",
		"source", cfg.Name(),
		"device", cfg.ID,
		"width", capture.Get(gocv.VideoCaptureFrameWidth),
		"height", capture.Get(gocv.VideoCaptureFrameHeight),
	)

	return &DeviceSource{cfg: cfg, logger: logger, capture: capture}, nil
}

// Label returns the source label.
func (d *DeviceSource) Label() string {
	return d.cfg.Name()
}

// Fetch reads the next frame from the device. A failed or empty read is
// ErrFrameUnavailable.
func (d *DeviceSource) Fetch(ctx context.Context) (gocv.Mat, error) {
	if err := ctx.Err(); err != nil {
		return gocv.Mat{}, frameUnavailable(d.Label(), err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gocv.Mat{}, frameUnavailable(d.Label(), ErrClosed)
	}

	frame := gocv.NewMat()
	if ok := d.capture.Read(&frame); !ok || frame.Empty() {
		frame.Close()
		return gocv.Mat{}, frameUnavailable(d.Label(), fmt.Errorf("read failed after %d frames", d.frames))
	}
	d.frames++
	return frame, nil
}

// Close releases the device. It is safe to call Close multiple times.
func (d *DeviceSource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	d.logger.Debug("capture device released", "source", d.Label(), "frames", d.frames)
	return d.capture.Close()
}
