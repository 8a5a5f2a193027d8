// camgrid: watch several cameras at once, mark what each one sees and tile
// them into one window.
//
// Usage:
//
//	camgrid                              # cameras 1,2,3, white light tracking
//	camgrid -preset circles              # Hough circles, one color per camera
//	camgrid -backend mock -headless -web # synthetic frames on the dashboard
//	camgrid -config camgrid.yaml
//
// Press q in the window, use the dashboard stop button or send SIGINT to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/davidmun910/infraredSignalDetector/internal/config"
	"github.com/davidmun910/infraredSignalDetector/internal/log"
	"github.com/davidmun910/infraredSignalDetector/pkg/camera"
	"github.com/davidmun910/infraredSignalDetector/pkg/composite"
	"github.com/davidmun910/infraredSignalDetector/pkg/debug"
	"github.com/davidmun910/infraredSignalDetector/pkg/detection"
	"github.com/davidmun910/infraredSignalDetector/pkg/display"
	"github.com/davidmun910/infraredSignalDetector/pkg/ingest"
	"github.com/davidmun910/infraredSignalDetector/pkg/pipeline"
	"github.com/davidmun910/infraredSignalDetector/pkg/protocol"
	"github.com/davidmun910/infraredSignalDetector/pkg/web"
)

var version = "0.3.0"

var (
	presetName = flag.String("preset", pipeline.PresetWhiteLight, "Preset: "+strings.Join(pipeline.PresetNames(), ", "))
	configPath = flag.String("config", "", "YAML configuration file (overrides -preset)")
	cameras    = flag.String("cameras", "", "Comma separated camera indices, e.g. 1,2,3 (env "+config.EnvCameras+")")
	backend    = flag.String("backend", "", "Source backend: device, remote, ingest, mock")
	detector   = flag.String("detector", "", "Detector for every camera: color, circles, none")
	mask       = flag.Bool("mask", false, "Black out everything outside the tracked color region (on in the white-light preset)")
	winWidth   = flag.Int("width", 0, "Window width in pixels")
	winHeight  = flag.Int("height", 0, "Window height in pixels")
	rows       = flag.Int("rows", 0, "Grid rows")
	cols       = flag.Int("cols", 0, "Grid columns")
	policy     = flag.String("policy", "", "On fetch failure: stop, retry, blank")
	timeout    = flag.Duration("timeout", 0, "Per-fetch timeout (0 = wait forever)")
	parallel   = flag.Bool("parallel", false, "Fetch and detect every camera concurrently")
	frames     = flag.Uint64("frames", 0, "Stop after this many canvases (0 = run until stopped)")
	headless   = flag.Bool("headless", false, "Do not open a window")
	webUI      = flag.Bool("web", false, "Serve the live dashboard and ingest endpoint")
	port       = flag.String("port", config.WebPort(), "Dashboard port (env "+config.EnvWebPort+")")
	quality    = flag.Int("quality", web.DefaultJPEGQuality, "Dashboard JPEG quality 1-100")
	logLevel   = flag.String("log-level", config.LogLevel(), "Log level: debug, info, warn, error")
	debugFlag  = flag.Bool("debug", false, "Enable debug output")
	debugDet   = flag.Bool("debug-detections", false, "Trace every detection (very verbose)")
)

func main() {
	flag.Parse()

	log.Init(*logLevel)
	debug.Enabled = *debugFlag
	debug.Detections = *debugDet
	logger := log.L()

	fmt.Println()
	fmt.Println("🎥 camgrid v" + version)
	fmt.Println()

	if err := run(logger); err != nil {
		logger.Error("camgrid failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	for i, s := range cfg.Sources {
		debug.Log("source %d: %s backend=%s detector=%s", i, s.Camera.Name(), s.Camera.Backend, s.Detector)
	}
	debug.Log("grid %dx%d, cells %dx%d, policy %s", cfg.Layout.Rows, cfg.Layout.Cols,
		cfg.Layout.CellWidth, cfg.Layout.CellHeight, cfg.Policy)

	needsIngest := false
	for _, s := range cfg.Sources {
		if s.Camera.Backend == camera.BackendIngest {
			needsIngest = true
		}
	}
	if needsIngest && !*webUI {
		return fmt.Errorf("ingest sources need the web server, run with -web")
	}
	if *headless && !*webUI && cfg.MaxIterations == 0 {
		logger.Warn("headless without -web or -frames: stop with SIGINT")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		sinks  display.Multi
		server *web.Server
		hub    *ingest.Hub
	)

	if *webUI {
		server = web.NewServer(*port, logger)
		server.Quality = *quality

		hub = ingest.NewHub(logger)
		hub.RegisterRoutes(server.App())
		hub.RegisterAPIRoutes(server.App().Group("/api"))
		defer hub.Close()

		server.StartAsync()
		defer server.Close()
		sinks = append(sinks, server)

		fmt.Printf("   Dashboard: http://localhost:%s\n", *port)
		fmt.Printf("   Ingest:    ws://localhost:%s/ws/ingest/<id>\n\n", *port)
	}

	if !*headless {
		win := display.NewWindow(display.DefaultWindowName, cfg.Layout.Width(), cfg.Layout.Height())
		defer win.Close()
		sinks = append(sinks, win)
	}

	var sink display.Sink = sinks
	if len(sinks) == 0 {
		sink = &display.Null{}
	}

	opener := camera.Opener{Logger: logger}
	if hub != nil {
		opener.Ingest = hub
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithOpener(opener.Open),
	}
	if server != nil {
		opts = append(opts, pipeline.WithStatusHook(10, func(s protocol.StatusData) {
			server.UpdateStatus(s)
		}))
	}

	loop, err := pipeline.New(cfg, sink, opts...)
	if err != nil {
		return err
	}

	// The window must be driven from the main goroutine.
	start := time.Now()
	err = loop.Run(ctx)

	stats := loop.Stats()
	elapsed := time.Since(start).Seconds()
	fmt.Printf("\n📊 %d canvases in %.1fs (%.1f fps, latency %.1f±%.1f ms)\n",
		stats.Iterations, elapsed, float64(stats.Iterations)/max(elapsed, 1e-9), stats.LatencyMs, stats.JitterMs)
	if stats.Blanks > 0 || stats.Retries > 0 {
		fmt.Printf("   %d blank tiles, %d retries\n", stats.Blanks, stats.Retries)
	}
	return err
}

// buildConfig starts from -config or -preset and applies every flag the
// user set explicitly on top.
func buildConfig() (pipeline.Config, error) {
	var cfg pipeline.Config
	if *configPath != "" {
		c, err := pipeline.LoadFile(*configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	} else {
		p := pipeline.GetPreset(*presetName)
		if p == nil {
			return cfg, fmt.Errorf("unknown preset %q (have %s)", *presetName, strings.Join(pipeline.PresetNames(), ", "))
		}
		cfg = *p
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	ids, err := cameraIDs(set["cameras"])
	if err != nil {
		return cfg, err
	}
	if ids != nil {
		kind := cfg.Sources[0].Detector
		be := cfg.Sources[0].Camera.Backend
		cfg.Sources = pipeline.NewSources(ids, be, kind)
	}
	for i := range cfg.Sources {
		if set["backend"] {
			cfg.Sources[i].Camera.Backend = camera.Backend(*backend)
		}
		if set["detector"] {
			cfg.Sources[i].Detector = detection.Kind(*detector)
		}
	}

	if set["width"] || set["height"] || set["rows"] || set["cols"] {
		w, h := cfg.Layout.Width(), cfg.Layout.Height()
		r, c := cfg.Layout.Rows, cfg.Layout.Cols
		if set["width"] {
			w = *winWidth
		}
		if set["height"] {
			h = *winHeight
		}
		if set["rows"] {
			r = *rows
		}
		if set["cols"] {
			c = *cols
		}
		cfg.Layout = composite.LayoutForWindow(w, h, r, c)
	}

	if set["mask"] {
		cfg.Detection.MaskOutput = *mask
	}
	if set["policy"] {
		cfg.Policy = pipeline.FailurePolicy(*policy)
	}
	if set["timeout"] {
		cfg.FetchTimeout = *timeout
	}
	if set["parallel"] {
		cfg.Parallel = *parallel
	}
	if set["frames"] {
		cfg.MaxIterations = *frames
	}

	return cfg, cfg.Validate()
}

// cameraIDs returns the indices from -cameras, then CAMGRID_CAMERAS.
// nil means keep the configured sources.
func cameraIDs(fromFlag bool) ([]int, error) {
	if fromFlag {
		return config.ParseCameraIDs(*cameras)
	}
	return config.CameraIDs()
}
