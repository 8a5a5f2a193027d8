// Package hub fans dashboard messages out to websocket clients, one
// goroutine per hub and two pumps per client.
package hub

import "github.com/gofiber/websocket/v2"

// Kind decides how a message is written and what happens when a client
// falls behind.
type Kind int

const (
	// KindText is a JSON status message. Every one is delivered or the
	// client is dropped.
	KindText Kind = iota
	// KindFrame is an encoded canvas. A lagging client skips to the newest.
	KindFrame
)

// Message is one broadcast payload.
type Message struct {
	Kind Kind
	Data []byte
}

// Text wraps pre-encoded JSON.
func Text(data []byte) Message {
	return Message{Kind: KindText, Data: data}
}

// Frame wraps an encoded canvas.
func Frame(jpeg []byte) Message {
	return Message{Kind: KindFrame, Data: jpeg}
}

func (m Message) wsType() int {
	if m.Kind == KindFrame {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
