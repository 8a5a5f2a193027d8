// camgrid-publish: stream one local camera to a camgrid ingest endpoint.
//
// Run this next to a camera that is not attached to the camgrid host, then
// configure a source with backend "ingest" and the same id there.
//
//	camgrid-publish -camera 0 -id 4 -url ws://grid.local:8080/ws/ingest/4
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/davidmun910/infraredSignalDetector/internal/config"
	"github.com/davidmun910/infraredSignalDetector/internal/httpc"
	"github.com/davidmun910/infraredSignalDetector/internal/log"
	"github.com/davidmun910/infraredSignalDetector/pkg/camera"
	"github.com/davidmun910/infraredSignalDetector/pkg/protocol"
)

var (
	cameraID  = flag.Int("camera", 0, "Local camera index")
	backend   = flag.String("backend", string(camera.BackendDevice), "Local source backend: device, mock")
	sourceID  = flag.Int("id", -1, "Camera id on the camgrid side (default: -camera)")
	ingestURL = flag.String("url", "", "Ingest URL (env "+config.EnvIngest+", default ws://localhost:8080/ws/ingest/<id>)")
	preset    = flag.String("size", camera.PresetVGA, "Capture size preset")
	fps       = flag.Int("fps", 15, "Frames per second to send")
	quality   = flag.Int("quality", 80, "JPEG quality 1-100")
	binary    = flag.Bool("binary", false, "Send raw JPEG binary messages instead of JSON frames")
	logLevel  = flag.String("log-level", config.LogLevel(), "Log level: debug, info, warn, error")
)

// Reconnect backoff bounds.
const (
	minBackoff   = 500 * time.Millisecond
	maxBackoff   = 10 * time.Second
	pingInterval = 5 * time.Second
	writeTimeout = 2 * time.Second
)

func main() {
	flag.Parse()
	log.Init(*logLevel)
	logger := log.L()

	id := *sourceID
	if id < 0 {
		id = *cameraID
	}
	url := *ingestURL
	if url == "" {
		url = config.IngestURL(fmt.Sprintf("ws://localhost:8080/ws/ingest/%d", id))
	}

	cfg := camera.DefaultConfig(*cameraID)
	cfg.Backend = camera.Backend(*backend)
	if !camera.ApplyPreset(&cfg, *preset) {
		fmt.Fprintf(os.Stderr, "unknown size preset %q\n", *preset)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := camera.Open(cfg, logger)
	if err != nil {
		logger.Error("cannot open camera", "error", err)
		os.Exit(1)
	}
	defer src.Close()

	p := &publisher{
		id:       id,
		url:      url,
		src:      src,
		logger:   logger.With("id", id),
		interval: time.Second / time.Duration(max(*fps, 1)),
	}

	fmt.Printf("📤 Publishing %s as camera %d to %s\n", src.Label(), id, url)
	p.run(ctx)
	fmt.Printf("\n👋 Sent %d frames\n", p.sent)
}

type publisher struct {
	id       int
	url      string
	src      camera.Source
	logger   *slog.Logger
	interval time.Duration

	sent    uint64
	writeMu sync.Mutex
}

// run connects and streams until ctx is done, reconnecting with backoff.
func (p *publisher) run(ctx context.Context) {
	backoff := minBackoff
	for ctx.Err() == nil {
		conn, _, err := httpc.Dialer.DialContext(ctx, p.url, nil)
		if err != nil {
			p.logger.Warn("connect failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = minBackoff
		p.logger.Info("connected to ingest")
		err = p.stream(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("stream ended", "error", err)
	}
}

// stream sends frames on conn until it fails or ctx is done.
func (p *publisher) stream(ctx context.Context, conn *websocket.Conn) error {
	readErr := make(chan error, 1)
	go func() { readErr <- p.readLoop(conn) }()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			p.write(conn, websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return nil
		case err := <-readErr:
			return err
		case <-ping.C:
			msg, err := protocol.NewPingMessage(uuid.NewString(), time.Now().UnixMilli())
			if err != nil {
				continue
			}
			data, _ := msg.Bytes()
			if err := p.write(conn, websocket.TextMessage, data); err != nil {
				return err
			}
		case <-ticker.C:
			if err := p.sendFrame(ctx, conn); err != nil {
				return err
			}
		}
	}
}

func (p *publisher) sendFrame(ctx context.Context, conn *websocket.Conn) error {
	frame, err := p.src.Fetch(ctx)
	if err != nil {
		// A missed frame is not fatal for the connection.
		p.logger.Debug("fetch failed", "error", err)
		return nil
	}
	defer frame.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, *quality})
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	buf.Close()

	p.sent++
	if *binary {
		return p.write(conn, websocket.BinaryMessage, jpeg)
	}

	msg, err := protocol.NewFrameMessage(p.id, frame.Cols(), frame.Rows(), jpeg, p.sent)
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return p.write(conn, websocket.TextMessage, data)
}

// readLoop drains the connection so control frames are handled and logs
// pong latency.
func (p *publisher) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil || msg.Type != protocol.TypePong {
			continue
		}
		if pong, err := msg.GetPongData(); err == nil {
			p.logger.Debug("pong", "latency_ms", time.Now().UnixMilli()-pong.PingTS)
		}
	}
}

func (p *publisher) write(conn *websocket.Conn, msgType int, data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(msgType, data)
}
