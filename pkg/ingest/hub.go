// Package ingest accepts camera frames pushed over WebSocket by remote
// publishers and exposes each publisher as a frame source.
package ingest

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"

	"github.com/davidmun910/infraredSignalDetector/pkg/camera"
	"github.com/davidmun910/infraredSignalDetector/pkg/protocol"
)

// PublisherConnection represents a connected frame publisher
type PublisherConnection struct {
	ID        int
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send sends a message to the publisher
func (p *PublisherConnection) Send(msg *protocol.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return p.Conn.WriteMessage(websocket.TextMessage, data)
}

func (p *PublisherConnection) touch() {
	p.mu.Lock()
	p.LastSeen = time.Now()
	p.mu.Unlock()
}

// Hub manages publisher connections and the frame slot of each camera ID.
type Hub struct {
	logger *slog.Logger

	mu         sync.RWMutex
	publishers map[int]*PublisherConnection
	slots      map[int]*camera.PushSource
	claimed    map[int]bool

	// Stats
	messagesReceived atomic.Uint64
	framesReceived   atomic.Uint64
	framesRejected   atomic.Uint64
}

// NewHub creates a new ingest hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger,
		publishers: make(map[int]*PublisherConnection),
		slots:      make(map[int]*camera.PushSource),
		claimed:    make(map[int]bool),
	}
}

// slot returns the live push source for id, creating one if needed.
// Caller must hold h.mu.
func (h *Hub) slot(id int, label string) *camera.PushSource {
	if s, ok := h.slots[id]; ok && !s.Stats().Closed {
		return s
	}
	s := camera.NewPushSource(label)
	h.slots[id] = s
	delete(h.claimed, id)
	return s
}

// Source returns the frame source fed by publisher cfg.ID.
// Each ID can be held by one consumer at a time.
func (h *Hub) Source(cfg camera.Config) (camera.Source, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.slot(cfg.ID, cfg.Name())
	if h.claimed[cfg.ID] {
		return nil, &camera.SourceError{
			Source: cfg.Name(),
			Op:     "open",
			Err:    fmt.Errorf("%w: ingest id %d already in use", camera.ErrSourceUnavailable, cfg.ID),
		}
	}
	h.claimed[cfg.ID] = true

	h.logger.Info("ingest source opened", "source", cfg.Name(), "id", cfg.ID)
	return s, nil
}

// RegisterRoutes registers the ingest WebSocket route on a Fiber router
func (h *Hub) RegisterRoutes(app fiber.Router) {
	// WebSocket upgrade middleware
	app.Use("/ws/ingest", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/ingest/:id", websocket.New(h.handlePublisher))
}

// handlePublisher handles a publisher WebSocket connection
func (h *Hub) handlePublisher(c *websocket.Conn) {
	id, err := cast.ToIntE(c.Params("id"))
	if err != nil || id < 0 {
		h.logger.Warn("ingest: rejected publisher with bad id", "id", c.Params("id"))
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad camera id"))
		return
	}

	pub := &PublisherConnection{
		ID:        id,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	h.mu.Lock()
	if _, busy := h.publishers[id]; busy {
		h.mu.Unlock()
		h.logger.Warn("ingest: camera id already has a publisher", "id", id)
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "camera id in use"))
		return
	}
	h.publishers[id] = pub
	count := len(h.publishers)
	h.mu.Unlock()

	h.logger.Info("publisher connected", "id", id, "total", count)

	defer func() {
		h.mu.Lock()
		delete(h.publishers, id)
		count := len(h.publishers)
		h.mu.Unlock()

		h.logger.Info("publisher disconnected", "id", id, "total", count)
	}()

	// Read loop
	for {
		msgType, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("publisher read error", "id", id, "error", err)
			return
		}

		pub.touch()
		h.messagesReceived.Add(1)

		switch msgType {
		case websocket.BinaryMessage:
			h.pushFrame(id, data)
		case websocket.TextMessage:
			h.handleMessage(pub, data)
		}
	}
}

// handleMessage processes a JSON message from a publisher
func (h *Hub) handleMessage(pub *PublisherConnection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.framesRejected.Add(1)
		h.logger.Debug("ingest: parse error", "id", pub.ID, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeFrame:
		frame, err := msg.GetFrameData()
		if err != nil {
			h.framesRejected.Add(1)
			return
		}
		jpeg, err := frame.DecodeFrameData()
		if err != nil {
			h.framesRejected.Add(1)
			h.logger.Debug("ingest: bad frame", "id", pub.ID, "error", err)
			return
		}
		h.pushFrame(pub.ID, jpeg)

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return
		}
		pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return
		}
		if err := pub.Send(pong); err != nil {
			h.logger.Debug("ingest: pong failed", "id", pub.ID, "error", err)
		}
	}
}

func (h *Hub) pushFrame(id int, jpeg []byte) {
	h.mu.Lock()
	s := h.slot(id, fmt.Sprintf("camera %d", id))
	h.mu.Unlock()

	h.framesReceived.Add(1)
	s.Push(jpeg)
}

// PublisherCount returns the number of connected publishers
func (h *Hub) PublisherCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.publishers)
}

// Close closes every frame source owned by the hub.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.slots {
		s.Close()
	}
	return nil
}

// Stats contains hub statistics
type Stats struct {
	PublisherCount   int    `json:"publisher_count"`
	MessagesReceived uint64 `json:"messages_received"`
	FramesReceived   uint64 `json:"frames_received"`
	FramesRejected   uint64 `json:"frames_rejected"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		PublisherCount:   h.PublisherCount(),
		MessagesReceived: h.messagesReceived.Load(),
		FramesReceived:   h.framesReceived.Load(),
		FramesRejected:   h.framesRejected.Load(),
	}
}

// SourceInfo contains info about one camera ID
type SourceInfo struct {
	ID        int              `json:"id"`
	Publisher bool             `json:"publisher"`
	Connected *time.Time       `json:"connected,omitempty"`
	LastSeen  *time.Time       `json:"last_seen,omitempty"`
	Frames    camera.PushStats `json:"frames"`
}

// GetSourceInfos returns info about every known camera ID, sorted by ID
func (h *Hub) GetSourceInfos() []SourceInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]SourceInfo, 0, len(h.slots))
	for id, s := range h.slots {
		info := SourceInfo{ID: id, Frames: s.Stats()}
		if p, ok := h.publishers[id]; ok {
			p.mu.Lock()
			connected, lastSeen := p.Connected, p.LastSeen
			p.mu.Unlock()
			info.Publisher = true
			info.Connected = &connected
			info.LastSeen = &lastSeen
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// RegisterAPIRoutes registers API routes for ingest status
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	ingest := api.Group("/ingest")

	// List camera IDs and their publishers
	ingest.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sources":    h.GetSourceInfos(),
			"publishers": h.PublisherCount(),
		})
	})

	// Get hub stats
	ingest.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})
}
