package display

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultWindowName is the title of the display window.
const DefaultWindowName = "Multiple Cameras"

// QuitKey closes the window when pressed.
const QuitKey = 'q'

// Window shows canvases in an OpenCV window. It must be created and used
// from the main goroutine on platforms whose GUI toolkit requires it.
type Window struct {
	name   string
	window *gocv.Window

	mu      sync.Mutex
	stop    bool
	closed  bool
	lastKey int
}

// NewWindow opens a window of the given size.
func NewWindow(name string, width, height int) *Window {
	if name == "" {
		name = DefaultWindowName
	}
	w := gocv.NewWindow(name)
	if width > 0 && height > 0 {
		w.ResizeWindow(width, height)
	}
	return &Window{name: name, window: w, lastKey: -1}
}

// Show draws the canvas and polls the keyboard once.
func (w *Window) Show(canvas gocv.Mat) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("window %q is closed", w.name)
	}

	w.window.IMShow(canvas)
	key := w.window.WaitKey(1)
	w.lastKey = key
	if key >= 0 && key&0xFF == QuitKey {
		w.stop = true
	}
	return nil
}

// StopRequested reports whether the quit key was pressed.
func (w *Window) StopRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stop
}

// Close destroys the window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.window.Close()
}
