// Package display provides the sinks that receive composited canvases.
package display

import (
	"errors"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Sink receives one canvas per capture loop iteration.
type Sink interface {
	// Show presents the canvas. The sink must not keep a reference to it
	// after Show returns.
	Show(canvas gocv.Mat) error

	// StopRequested reports whether the sink asked the loop to stop.
	// It is polled once per iteration after Show.
	StopRequested() bool

	// Close releases the sink. It is safe to call Close multiple times.
	Close() error
}

// Null is a headless sink. It counts canvases and optionally requests a
// stop after MaxFrames of them.
type Null struct {
	// MaxFrames stops the loop after this many canvases. Zero means never.
	MaxFrames int

	shown atomic.Int64
}

// Show counts the canvas.
func (n *Null) Show(gocv.Mat) error {
	n.shown.Add(1)
	return nil
}

// StopRequested reports whether MaxFrames canvases were shown.
func (n *Null) StopRequested() bool {
	return n.MaxFrames > 0 && n.shown.Load() >= int64(n.MaxFrames)
}

// Close does nothing.
func (n *Null) Close() error { return nil }

// Shown returns the number of canvases received.
func (n *Null) Shown() int {
	return int(n.shown.Load())
}

// Multi fans every canvas out to several sinks.
type Multi []Sink

// Show presents the canvas on every sink and joins their errors.
func (m Multi) Show(canvas gocv.Mat) error {
	var errs []error
	for _, s := range m {
		if err := s.Show(canvas); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopRequested is true when any member requests a stop.
func (m Multi) StopRequested() bool {
	for _, s := range m {
		if s.StopRequested() {
			return true
		}
	}
	return false
}

// Close closes every member and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps a copy of every canvas it is shown.
type Recorder struct {
	// StopAfter requests a stop after this many canvases. Zero means never.
	StopAfter int

	mu     sync.Mutex
	frames []gocv.Mat
	closed bool
}

// Show stores a clone of the canvas.
func (r *Recorder) Show(canvas gocv.Mat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, canvas.Clone())
	return nil
}

// StopRequested reports whether StopAfter canvases were recorded.
func (r *Recorder) StopRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.StopAfter > 0 && len(r.frames) >= r.StopAfter
}

// Len returns the number of recorded canvases.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Frame returns the i-th recorded canvas. The recorder keeps ownership.
func (r *Recorder) Frame(i int) gocv.Mat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[i]
}

// Close releases every recorded canvas.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for i := range r.frames {
		r.frames[i].Close()
	}
	r.frames = nil
	return nil
}
