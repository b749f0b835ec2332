// Package websocket streams overlay operations to a map client.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/artylery/smash/pkg/core"
)

// Config holds WebSocket sink configuration.
type Config struct {
	URL    string
	Secret string
}

// Sink streams overlay operations to a map client over WebSocket.
type Sink struct {
	cfg    Config
	stream *stream
}

// New creates a WebSocket sink. Nothing is dialed until Init.
func New(cfg Config, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{cfg: cfg, stream: newStream(logger)}
}

// Init connects and waits for the client to acknowledge the hello.
func (s *Sink) Init() error {
	hello, err := marshalEnvelope(TypeHello, HelloPayload{Client: "artylery"})
	if err != nil {
		return err
	}
	return s.stream.open(s.cfg.URL, s.cfg.Secret, hello)
}

// Close disconnects from the client.
func (s *Sink) Close() error {
	return s.stream.close()
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Clear tells the client to drop every overlay.
func (s *Sink) Clear() error {
	s.stream.push(clearFrame, true)
	return nil
}

// Add queues one primitive for the client. Delivery is not acknowledged.
func (s *Sink) Add(p core.Primitive) error {
	data, err := marshalEnvelope(TypeAddPrimitive, newPrimitivePayload(p))
	if err != nil {
		return err
	}
	s.stream.push(data, false)
	return nil
}
