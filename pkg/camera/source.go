package camera

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gocv.io/x/gocv"
)

// Source produces BGR frames from one camera stream.
type Source interface {
	// Label names the source in logs and errors.
	Label() string

	// Fetch returns the next frame. The caller owns the returned Mat and
	// must close it. Failures wrap ErrFrameUnavailable.
	Fetch(ctx context.Context) (gocv.Mat, error)

	// Close releases the underlying device or connection.
	// It is safe to call Close multiple times.
	io.Closer
}

// Provider opens sources for backends served elsewhere in the process,
// such as the ingest endpoint.
type Provider interface {
	Source(cfg Config) (Source, error)
}

// Opener creates sources from configuration.
type Opener struct {
	// Logger is passed to every source. Default: slog.Default()
	Logger *slog.Logger

	// Ingest serves BackendIngest sources. Required only for that backend.
	Ingest Provider
}

// Open creates a new frame source with the given configuration.
// Failures wrap ErrSourceUnavailable in a *SourceError naming the source.
func (o Opener) Open(cfg Config) (Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, unavailable(cfg.Name(), fmt.Errorf("invalid config: %s", strings.Join(errs, "; ")))
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening frame source",
		"source", cfg.Name(),
		"backend", cfg.Backend,
		"width", cfg.Width,
		"height", cfg.Height,
	)

	switch cfg.Backend {
	case BackendDevice:
		src, err := OpenDevice(cfg, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	case BackendRemote:
		ctx, cancel := context.WithTimeout(context.Background(), DialTimeout)
		defer cancel()
		src, err := DialRemote(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	case BackendIngest:
		if o.Ingest == nil {
			return nil, unavailable(cfg.Name(), fmt.Errorf("no ingest endpoint configured"))
		}
		return o.Ingest.Source(cfg)
	case BackendMock:
		return NewMockSource(cfg, logger, mockDefaults(cfg)...), nil
	default:
		return nil, unavailable(cfg.Name(), fmt.Errorf("unsupported backend: %s", cfg.Backend))
	}
}

// Open creates a frame source with no ingest provider.
func Open(cfg Config, logger *slog.Logger) (Source, error) {
	return Opener{Logger: logger}.Open(cfg)
}
