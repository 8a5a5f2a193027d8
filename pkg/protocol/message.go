// Package protocol defines the WebSocket message types shared by frame
// publishers, the ingest endpoint and the dashboard.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Publisher → ingest
	TypeFrame MessageType = "frame" // Encoded camera frame

	// Loop → dashboard clients
	TypeStatus MessageType = "status" // Capture loop status

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Frame messages
// =============================================================================

// FrameFormatJPEG is the only frame encoding accepted by the ingest endpoint.
const FrameFormatJPEG = "jpeg"

// FrameData contains one encoded camera frame
type FrameData struct {
	Source  int    `json:"source"` // Camera ID on the publisher side
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// =============================================================================
// Status messages
// =============================================================================

// StatusData describes the state of a capture loop run
type StatusData struct {
	RunID      string  `json:"run_id"`
	State      string  `json:"state"` // "running", "stopped"
	Iteration  uint64  `json:"iteration"`
	Sources    int     `json:"sources"`
	Detections int     `json:"detections"` // Detections in the last iteration
	FPS        float64 `json:"fps"`
	LatencyMs  float64 `json:"latency_ms"` // Mean iteration latency
	JitterMs   float64 `json:"jitter_ms"`  // Std dev of iteration latency
	LastError  string  `json:"last_error,omitempty"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
