package camera

import (
	"context"
	"time"

	"gocv.io/x/gocv"
)

// WithTimeout bounds every fetch of src to d. A fetch that exceeds d fails
// with ErrFrameUnavailable; a frame that arrives late is discarded.
// A non-positive d returns src unchanged.
func WithTimeout(src Source, d time.Duration) Source {
	if d <= 0 {
		return src
	}
	return &timeoutSource{Source: src, timeout: d}
}

type timeoutSource struct {
	Source
	timeout time.Duration
}

type fetchResult struct {
	frame gocv.Mat
	err   error
}

func (t *timeoutSource) Fetch(ctx context.Context) (gocv.Mat, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	ch := make(chan fetchResult, 1)
	go func() {
		frame, err := t.Source.Fetch(ctx)
		ch <- fetchResult{frame: frame, err: err}
	}()

	select {
	case r := <-ch:
		return r.frame, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil {
				r.frame.Close()
			}
		}()
		return gocv.Mat{}, frameUnavailable(t.Label(), ctx.Err())
	}
}
