package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/davidmun910/infraredSignalDetector/internal/httpc"
	"github.com/davidmun910/infraredSignalDetector/pkg/protocol"
)

// DialTimeout bounds the WebSocket handshake of remote sources.
const DialTimeout = 5 * time.Second

// RemoteSource pulls frames from a WebSocket endpoint. Binary messages are
// raw JPEG frames; text messages are protocol frame messages.
type RemoteSource struct {
	*PushSource

	cfg    Config
	logger *slog.Logger
	conn   *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	readDone  chan struct{}
}

// DialRemote connects to cfg.URL and starts reading frames.
func DialRemote(ctx context.Context, cfg Config, logger *slog.Logger) (*RemoteSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, _, err := httpc.Dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, unavailable(cfg.Name(), fmt.Errorf("dial %s: %w", cfg.URL, err))
	}

	r := &RemoteSource{
		PushSource: NewPushSource(cfg.Name()),
		cfg:        cfg,
		logger:     logger,
		conn:       conn,
		readDone:   make(chan struct{}),
	}
	go r.readLoop()

	logger.Info("remote source connected", "source", cfg.Name(), "url", cfg.URL)
	return r, nil
}

func (r *RemoteSource) readLoop() {
	defer close(r.readDone)

	for {
		msgType, data, err := r.conn.ReadMessage()
		if err != nil {
			select {
			case <-r.Done():
			default:
				r.logger.Warn("remote source disconnected", "source", r.Label(), "error", err)
			}
			r.Fail(fmt.Errorf("connection lost: %w", err))
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			r.Push(data)
		case websocket.TextMessage:
			r.handleMessage(data)
		}
	}
}

func (r *RemoteSource) handleMessage(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		r.logger.Debug("remote source: bad message", "source", r.Label(), "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeFrame:
		frame, err := msg.GetFrameData()
		if err != nil {
			r.logger.Debug("remote source: bad frame", "source", r.Label(), "error", err)
			return
		}
		jpeg, err := frame.DecodeFrameData()
		if err != nil {
			r.logger.Debug("remote source: bad frame data", "source", r.Label(), "error", err)
			return
		}
		r.Push(jpeg)

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return
		}
		pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return
		}
		if err := r.writeMessage(pong); err != nil {
			r.logger.Debug("remote source: pong failed", "source", r.Label(), "error", err)
		}
	}
}

func (r *RemoteSource) writeMessage(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the connection and waits for the reader to exit.
// It is safe to call Close multiple times.
func (r *RemoteSource) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.PushSource.Close()

		r.writeMu.Lock()
		r.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		r.writeMu.Unlock()

		err = r.conn.Close()
		<-r.readDone
		r.logger.Debug("remote source released", "source", r.Label(), "received", r.Stats().Received)
	})
	return err
}
