// Package httpc provides shared network clients with sensible defaults.
// Use Dialer instead of websocket.DefaultDialer to ensure timeouts are set.
package httpc

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// Default timeouts and buffer sizes for WebSocket connections.
const (
	DefaultConnectTimeout   = 10 * time.Second
	DefaultKeepAlive        = 30 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second

	// Frames are whole JPEGs, so reads are sized for a VGA image.
	DefaultReadBufferSize  = 64 << 10
	DefaultWriteBufferSize = 64 << 10
)

// Dialer is a shared WebSocket dialer with production-ready defaults.
var Dialer = NewDialer(DefaultHandshakeTimeout)

// NewDialer creates a WebSocket dialer with the given handshake timeout.
// For most cases, use the shared Dialer variable instead.
func NewDialer(handshake time.Duration) *websocket.Dialer {
	if handshake <= 0 {
		handshake = DefaultHandshakeTimeout
	}
	return &websocket.Dialer{
		NetDialContext: (&net.Dialer{
			Timeout:   DefaultConnectTimeout,
			KeepAlive: DefaultKeepAlive,
		}).DialContext,
		HandshakeTimeout: handshake,
		ReadBufferSize:   DefaultReadBufferSize,
		WriteBufferSize:  DefaultWriteBufferSize,
	}
}
