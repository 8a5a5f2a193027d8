// Package web provides the live dashboard for the capture loop: the latest
// canvas, loop status and a remote stop button.
package web

import (
	"embed"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"gocv.io/x/gocv"

	"github.com/davidmun910/infraredSignalDetector/pkg/hub"
	"github.com/davidmun910/infraredSignalDetector/pkg/protocol"
)

//go:embed static/index.html
var static embed.FS

// DefaultJPEGQuality is the encoding quality of streamed canvases.
const DefaultJPEGQuality = 80

// Server is the web dashboard server. It is also a display sink: every
// canvas shown to it is encoded once and streamed to /ws/canvas clients.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	// JPEG quality 1-100 for streamed canvases
	Quality int

	// Latest canvas and status
	snapshot []byte
	status   protocol.StatusData
	mu       sync.RWMutex

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	canvasHub *hub.Hub

	stop      atomic.Bool
	frames    atomic.Uint64
	startOnce sync.Once
	closeOnce sync.Once

	// OnStop is called when a client requests a stop
	OnStop func()
}

// NewServer creates a new web dashboard server
func NewServer(port string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		port:      port,
		logger:    logger,
		Quality:   DefaultJPEGQuality,
		statusHub: hub.New("status", logger),
		canvasHub: hub.New("canvas", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "camgrid",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/snapshot", s.handleSnapshot)
	api.Post("/stop", s.handleStop)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/canvas", websocket.New(s.handleCanvasWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App returns the underlying Fiber app so other components can mount routes.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) startHubs() {
	s.startOnce.Do(func() {
		go s.statusHub.Run()
		go s.canvasHub.Run()
	})
}

// Start starts the web server
func (s *Server) Start() error {
	s.logger.Info("web dashboard listening", "url", "http://localhost:"+s.port)
	s.startHubs()
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// Show encodes the canvas, keeps it as the snapshot and streams it.
func (s *Server) Show(canvas gocv.Mat) error {
	s.startHubs()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, canvas, []int{gocv.IMWriteJpegQuality, s.Quality})
	if err != nil {
		return fmt.Errorf("encode canvas: %w", err)
	}
	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	buf.Close()

	s.mu.Lock()
	s.snapshot = jpeg
	s.mu.Unlock()

	s.frames.Add(1)
	if s.canvasHub.ClientCount() > 0 {
		s.canvasHub.BroadcastFrame(jpeg)
	}
	return nil
}

// StopRequested reports whether a client asked the loop to stop.
func (s *Server) StopRequested() bool {
	return s.stop.Load()
}

// RequestStop asks the loop to stop at its next poll.
func (s *Server) RequestStop() {
	if s.stop.CompareAndSwap(false, true) {
		s.logger.Info("stop requested from dashboard")
		if s.OnStop != nil {
			s.OnStop()
		}
	}
}

// UpdateStatus stores the loop status and broadcasts it to clients
func (s *Server) UpdateStatus(status protocol.StatusData) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()

	msg, err := protocol.NewStatusMessage(status)
	if err != nil {
		return
	}
	if err := s.statusHub.BroadcastJSON(msg); err != nil {
		s.logger.Debug("status broadcast failed", "error", err)
	}
}

// Status returns the last status passed to UpdateStatus
func (s *Server) Status() protocol.StatusData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Snapshot returns the latest encoded canvas, or nil before the first one.
func (s *Server) Snapshot() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Frames returns the number of canvases shown
func (s *Server) Frames() uint64 {
	return s.frames.Load()
}

// Close stops the hubs and shuts the server down.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.statusHub.Stop()
		s.canvasHub.Stop()
		err = s.app.Shutdown()
	})
	return err
}
