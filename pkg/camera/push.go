package camera

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// PushSource is a source fed by another goroutine with encoded frames.
// It holds only the most recent frame: a push replaces any frame that has
// not been fetched yet.
type PushSource struct {
	label string

	slot chan []byte
	done chan struct{}
	once sync.Once
	err  error // set before done is closed

	received atomic.Uint64
	dropped  atomic.Uint64
}

// PushStats contains counters for a push source.
type PushStats struct {
	Received uint64 `json:"received"`
	Dropped  uint64 `json:"dropped"`
	Closed   bool   `json:"closed"`
}

// NewPushSource creates an empty push source.
func NewPushSource(label string) *PushSource {
	return &PushSource{
		label: label,
		slot:  make(chan []byte, 1),
		done:  make(chan struct{}),
	}
}

// Label returns the source label.
func (p *PushSource) Label() string {
	return p.label
}

// Push offers an encoded frame. It returns false once the source is closed.
func (p *PushSource) Push(encoded []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}

	p.received.Add(1)
	for {
		select {
		case p.slot <- encoded:
			return true
		default:
		}
		select {
		case <-p.slot:
			p.dropped.Add(1)
		default:
		}
	}
}

// Fetch waits for the next pushed frame and decodes it.
func (p *PushSource) Fetch(ctx context.Context) (gocv.Mat, error) {
	select {
	case <-p.done:
		return gocv.Mat{}, frameUnavailable(p.label, p.err)
	default:
	}

	select {
	case <-p.done:
		return gocv.Mat{}, frameUnavailable(p.label, p.err)
	case <-ctx.Done():
		return gocv.Mat{}, frameUnavailable(p.label, ctx.Err())
	case buf := <-p.slot:
		return decodeFrame(p.label, buf)
	}
}

// Fail closes the source with a cause reported by later fetches.
func (p *PushSource) Fail(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// Close releases the source. It is safe to call Close multiple times.
func (p *PushSource) Close() error {
	p.Fail(ErrClosed)
	return nil
}

// Done is closed once the source is closed or failed.
func (p *PushSource) Done() <-chan struct{} {
	return p.done
}

// Stats returns the push counters.
func (p *PushSource) Stats() PushStats {
	closed := false
	select {
	case <-p.done:
		closed = true
	default:
	}
	return PushStats{
		Received: p.received.Load(),
		Dropped:  p.dropped.Load(),
		Closed:   closed,
	}
}

// decodeFrame decodes a JPEG (or any format OpenCV reads) into a BGR frame.
func decodeFrame(label string, buf []byte) (gocv.Mat, error) {
	frame, err := gocv.IMDecode(buf, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, frameUnavailable(label, fmt.Errorf("decode: %w", err))
	}
	if frame.Empty() {
		frame.Close()
		return gocv.Mat{}, frameUnavailable(label, fmt.Errorf("decode: %d bytes gave an empty image", len(buf)))
	}
	return frame, nil
}
