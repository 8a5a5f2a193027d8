package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/davidmun910/infraredSignalDetector/pkg/annotate"
	"github.com/davidmun910/infraredSignalDetector/pkg/camera"
	"github.com/davidmun910/infraredSignalDetector/pkg/composite"
	"github.com/davidmun910/infraredSignalDetector/pkg/debug"
	"github.com/davidmun910/infraredSignalDetector/pkg/detection"
	"github.com/davidmun910/infraredSignalDetector/pkg/display"
	"github.com/davidmun910/infraredSignalDetector/pkg/protocol"
)

// State is the loop lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateRunning
)

// String returns the state name.
func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// OpenFunc opens one frame source.
type OpenFunc func(cfg camera.Config) (camera.Source, error)

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the loop logger. Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithOpener replaces the function used to open sources.
// Default: camera.Open with the loop logger.
func WithOpener(open OpenFunc) Option {
	return func(l *Loop) {
		l.open = open
	}
}

// WithStatusHook calls fn with the loop status every n iterations and once
// when the loop stops.
func WithStatusHook(n int, fn func(protocol.StatusData)) Option {
	return func(l *Loop) {
		if n < 1 {
			n = 1
		}
		l.statusEvery = uint64(n)
		l.onStatus = fn
	}
}

// Loop is one capture loop run over a fixed set of sources.
type Loop struct {
	cfg    Config
	sink   display.Sink
	logger *slog.Logger
	open   OpenFunc
	runID  string

	sources   []camera.Source
	detectors []detection.Detector
	annotator *annotate.Annotator
	stats     *Stats

	statusEvery uint64
	onStatus    func(protocol.StatusData)

	state     atomic.Int32
	ran       atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New validates cfg and opens every source. If any source fails to open,
// the ones already opened are released and the open error is returned.
func New(cfg Config, sink display.Sink, opts ...Option) (*Loop, error) {
	if sink == nil {
		return nil, fmt.Errorf("pipeline: nil sink")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Loop{
		cfg:       cfg,
		sink:      sink,
		logger:    slog.Default(),
		runID:     uuid.NewString(),
		annotator: &annotate.Annotator{PointColor: cfg.PointColor},
		stats:     newStats(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("run", l.runID)
	if l.open == nil {
		logger := l.logger
		l.open = func(c camera.Config) (camera.Source, error) {
			return camera.Open(c, logger)
		}
	}

	l.detectors = make([]detection.Detector, len(cfg.Sources))
	for i, s := range cfg.Sources {
		d, err := detection.New(s.Detector, cfg.Detection)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", s.Camera.Name(), err)
		}
		l.detectors[i] = d
	}

	l.sources = make([]camera.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		src, err := l.open(s.Camera)
		if err != nil {
			l.releaseSources()
			return nil, err
		}
		l.sources = append(l.sources, camera.WithTimeout(src, cfg.FetchTimeout))
	}

	l.logger.Info("capture loop ready",
		"sources", len(l.sources),
		"grid", fmt.Sprintf("%dx%d", cfg.Layout.Rows, cfg.Layout.Cols),
		"canvas", fmt.Sprintf("%dx%d", cfg.Layout.Width(), cfg.Layout.Height()),
		"policy", cfg.Policy,
		"parallel", cfg.Parallel,
	)
	return l, nil
}

// RunID returns the unique ID of this loop.
func (l *Loop) RunID() string {
	return l.runID
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Stats returns the loop statistics.
func (l *Loop) Stats() StatsSnapshot {
	return l.stats.Snapshot()
}

// Status returns the loop status as a protocol message payload.
func (l *Loop) Status() protocol.StatusData {
	snap := l.stats.Snapshot()
	return protocol.StatusData{
		RunID:      l.runID,
		State:      l.State().String(),
		Iteration:  snap.Iterations,
		Sources:    len(l.cfg.Sources),
		Detections: snap.Detections,
		FPS:        snap.FPS,
		LatencyMs:  snap.LatencyMs,
		JitterMs:   snap.JitterMs,
		LastError:  snap.LastError,
	}
}

// Run iterates until ctx is cancelled, the sink requests a stop,
// MaxIterations is reached or a stage fails. A stop request returns nil;
// a failure returns a *StageError. Every source is released before Run
// returns. A loop runs once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	l.state.Store(int32(StateRunning))
	l.logger.Info("capture loop started")
	defer func() {
		l.Close()
		l.publishStatus()
	}()

	for iteration := uint64(1); ; iteration++ {
		if ctx.Err() != nil {
			l.logger.Info("capture loop cancelled", "iteration", iteration-1)
			return nil
		}

		if err := l.iterate(ctx, iteration); err != nil {
			if ctx.Err() != nil {
				l.logger.Info("capture loop cancelled", "iteration", iteration-1)
				return nil
			}
			l.stats.fail(err)
			l.logger.Error("capture loop failed", "error", err)
			return err
		}

		if l.onStatus != nil && iteration%l.statusEvery == 0 {
			l.publishStatus()
		}

		if l.sink.StopRequested() {
			l.logger.Info("stop requested by sink", "iterations", iteration)
			return nil
		}
		if l.cfg.MaxIterations > 0 && iteration >= l.cfg.MaxIterations {
			l.logger.Info("iteration limit reached", "iterations", iteration)
			return nil
		}
	}
}

// iterate runs one fetch, detect, annotate, composite, show cycle.
func (l *Loop) iterate(ctx context.Context, iteration uint64) error {
	start := time.Now()

	frames, detections, err := l.capture(ctx, iteration)
	if err != nil {
		return err
	}

	canvas, err := composite.Composite(frames, l.cfg.Layout)
	closeFrames(frames)
	if err != nil {
		return &StageError{Stage: StageComposite, Iteration: iteration, Err: err}
	}
	defer canvas.Close()

	if err := l.sink.Show(canvas); err != nil {
		return &StageError{Stage: StageShow, Iteration: iteration, Err: err}
	}

	l.stats.observe(time.Since(start), detections)
	return nil
}

// capture returns one annotated frame per source, in source order.
func (l *Loop) capture(ctx context.Context, iteration uint64) ([]gocv.Mat, int, error) {
	frames := make([]gocv.Mat, len(l.sources))

	if !l.cfg.Parallel {
		total := 0
		for i := range l.sources {
			frame, n, err := l.processSource(ctx, i, iteration)
			if err != nil {
				closeFrames(frames[:i])
				return nil, 0, err
			}
			frames[i] = frame
			total += n
		}
		return frames, total, nil
	}

	counts := make([]int, len(l.sources))
	errs := make([]error, len(l.sources))
	var wg sync.WaitGroup
	for i := range l.sources {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			frames[i], counts[i], errs[i] = l.processSource(ctx, i, iteration)
		}(i)
	}
	wg.Wait()

	total := 0
	for i, err := range errs {
		if err != nil {
			for j := range frames {
				if errs[j] == nil {
					frames[j].Close()
				}
			}
			return nil, 0, errs[i]
		}
		total += counts[i]
	}
	return frames, total, nil
}

// processSource fetches, detects and annotates one source's frame.
func (l *Loop) processSource(ctx context.Context, i int, iteration uint64) (gocv.Mat, int, error) {
	sc := l.cfg.Sources[i]

	frame, blank, err := l.fetch(ctx, i, iteration)
	if err != nil {
		return gocv.Mat{}, 0, err
	}
	if blank {
		return frame, 0, nil
	}

	res, err := l.detectors[i].Detect(frame)
	if err != nil {
		frame.Close()
		return gocv.Mat{}, 0, &StageError{Stage: StageDetect, Source: sc.Camera.Name(), Iteration: iteration, Err: err}
	}
	defer res.Close()

	if res.Count() > 0 {
		debug.DetectLog("%s iteration %d: %d detection(s)\n", sc.Camera.Name(), iteration, res.Count())
	}
	l.annotator.Annotate(&frame, res, sc.Marker)
	return frame, res.Count(), nil
}

// fetch applies the failure policy to one source fetch. blank is true when
// the returned frame is a substituted black tile.
func (l *Loop) fetch(ctx context.Context, i int, iteration uint64) (frame gocv.Mat, blank bool, err error) {
	src := l.sources[i]

	attempts := 1
	if l.cfg.Policy == PolicyRetry {
		attempts += l.cfg.FetchRetries
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		frame, err = src.Fetch(ctx)
		if err == nil {
			return frame, false, nil
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			l.stats.retry()
			l.logger.Warn("fetch failed, retrying",
				"source", src.Label(),
				"iteration", iteration,
				"attempt", attempt,
				"error", err,
			)
		}
	}

	if l.cfg.Policy == PolicyBlank && ctx.Err() == nil {
		l.stats.blank()
		l.logger.Warn("fetch failed, showing blank tile",
			"source", src.Label(),
			"iteration", iteration,
			"error", err,
		)
		tile := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0),
			l.cfg.Layout.CellHeight, l.cfg.Layout.CellWidth, gocv.MatTypeCV8UC3)
		return tile, true, nil
	}

	return gocv.Mat{}, false, &StageError{Stage: StageFetch, Source: src.Label(), Iteration: iteration, Err: err}
}

func (l *Loop) publishStatus() {
	if l.onStatus != nil {
		l.onStatus(l.Status())
	}
}

// Close releases every source exactly once and marks the loop stopped.
// It is safe to call Close multiple times and from any goroutine.
func (l *Loop) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.releaseSources()
		l.state.Store(int32(StateStopped))
		l.logger.Info("capture loop stopped", "iterations", l.stats.Snapshot().Iterations)
	})
	return l.closeErr
}

func (l *Loop) releaseSources() error {
	var errs []error
	for _, src := range l.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", src.Label(), err))
		}
	}
	return errors.Join(errs...)
}

func closeFrames(frames []gocv.Mat) {
	for i := range frames {
		frames[i].Close()
	}
}
