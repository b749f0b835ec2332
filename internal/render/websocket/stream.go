package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	maxReconnect     = 10
	maxBackoff       = 30 * time.Second
	writeWait        = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	ackTimeout       = 10 * time.Second
)

// clearFrame is the encoded Envelope{Type: TypeClear}.
var clearFrame = []byte(`{"type":"clear"}`)

// link is one physical connection. gone is closed when it is dropped.
type link struct {
	conn *ws.Conn
	gone chan struct{}
}

// stream carries one overlay stream over a WebSocket that may be redialed.
// It remembers the adds since the last clear so a fresh link starts from the
// current overlay set, and a clear discards adds still waiting in the outbox.
type stream struct {
	mu      sync.Mutex
	link    *link
	current [][]byte
	outbox  [][]byte
	waiters map[string][]chan struct{}
	closed  bool

	wake chan struct{}
	done chan struct{}

	target string
	hello  []byte
	dialer *ws.Dialer
	logger *slog.Logger
}

func newStream(logger *slog.Logger) *stream {
	return &stream{
		waiters: make(map[string][]chan struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		dialer: &ws.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger,
	}
}

func streamURL(rawURL, secret string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket URL: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// open dials the map client, introduces itself with hello and waits for the
// acknowledgement.
func (s *stream) open(rawURL, secret string, hello []byte) error {
	target, err := streamURL(rawURL, secret)
	if err != nil {
		return err
	}
	s.target = target
	s.hello = hello

	conn, err := s.dial()
	if err != nil {
		return err
	}

	acked := s.expectAck(TypeHello)
	if err := writeFrame(conn, hello); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send hello: %w", err)
	}
	if !s.attach(conn, nil) {
		return fmt.Errorf("stream closed")
	}
	return s.await(acked, TypeHello, ackTimeout)
}

func (s *stream) dial() (*ws.Conn, error) {
	conn, _, err := s.dialer.Dial(s.target, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// attach makes conn the live link and starts its loops. A non-nil backlog
// replaces the outbox. Returns false when the stream was closed meanwhile.
func (s *stream) attach(conn *ws.Conn, backlog [][]byte) bool {
	l := &link{conn: conn, gone: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return false
	}
	s.link = l
	if backlog != nil {
		s.outbox = backlog
	}
	pending := len(s.outbox) > 0
	s.mu.Unlock()

	go s.writeFrames(l)
	go s.readAcks(l)
	if pending {
		s.signal()
	}
	return true
}

// push queues frame for the live link, or for the next one. A reset frame
// starts a new overlay set.
func (s *stream) push(frame []byte, reset bool) {
	s.mu.Lock()
	if reset {
		if dropped := len(s.outbox); dropped > 0 {
			s.logger.Debug("Clear supersedes queued frames", "dropped", dropped)
		}
		s.current = s.current[:0]
		s.outbox = append(s.outbox[:0], frame)
	} else {
		s.current = append(s.current, frame)
		s.outbox = append(s.outbox, frame)
	}
	s.mu.Unlock()
	s.signal()
}

// snapshot returns the frames that rebuild the current overlay set on a
// client that may still show an older one.
func (s *stream) snapshot() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, 0, len(s.current)+1)
	out = append(out, clearFrame)
	return append(out, s.current...)
}

func (s *stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *stream) takeOutbox(l *link) ([][]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.link != l {
		return nil, false
	}
	out := s.outbox
	s.outbox = nil
	return out, true
}

// writeFrames is the only writer on l.conn besides control frames.
func (s *stream) writeFrames(l *link) {
	for {
		select {
		case <-s.done:
			return
		case <-l.gone:
			return
		case <-s.wake:
		}

		frames, ok := s.takeOutbox(l)
		if !ok {
			// the wake belonged to a newer link
			s.signal()
			return
		}
		for _, f := range frames {
			if err := writeFrame(l.conn, f); err != nil {
				s.logger.Warn("Map client write failed", "error", err)
				s.lost(l)
				return
			}
		}
	}
}

func (s *stream) readAcks(l *link) {
	for {
		_, msg, err := l.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			case <-l.gone:
				return
			default:
			}
			s.logger.Warn("Map client read failed", "error", err)
			s.lost(l)
			return
		}

		var ack AckMessage
		if err := json.Unmarshal(msg, &ack); err != nil || ack.Type != TypeAck {
			s.logger.Debug("Ignoring map client message", "raw", string(msg))
			continue
		}
		s.acked(ack.For)
	}
}

// lost drops l and starts a redial. Only the first caller for a link acts.
func (s *stream) lost(l *link) {
	s.mu.Lock()
	if s.link != l {
		s.mu.Unlock()
		return
	}
	s.link = nil
	close(l.gone)
	closed := s.closed
	s.mu.Unlock()

	_ = l.conn.Close()
	if !closed {
		go s.reconnect()
	}
}

// reconnect redials with exponential backoff, then resends hello and the
// current overlay set. Frames queued while disconnected are superseded by it.
func (s *stream) reconnect() {
	delay := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-s.done:
			return
		case <-time.After(delay):
		}

		conn, err := s.dial()
		if err == nil {
			err = writeFrame(conn, s.hello)
			if err != nil {
				_ = conn.Close()
			}
		}
		if err != nil {
			s.logger.Warn("Map client redial failed", "attempt", attempt, "error", err)
			delay = min(delay*2, maxBackoff)
			continue
		}

		backlog := s.snapshot()
		if s.attach(conn, backlog) {
			s.logger.Info("Map client reconnected", "attempt", attempt, "replayed", len(backlog)-1)
		}
		return
	}

	s.logger.Error("Map client reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

func (s *stream) expectAck(kind string) chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	s.waiters[kind] = append(s.waiters[kind], ch)
	s.mu.Unlock()
	return ch
}

func (s *stream) acked(kind string) {
	s.mu.Lock()
	waiting := s.waiters[kind]
	delete(s.waiters, kind)
	s.mu.Unlock()
	for _, ch := range waiting {
		close(ch)
	}
}

func (s *stream) await(ch chan struct{}, kind string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return nil
	case <-timer.C:
		return fmt.Errorf("timeout waiting for ack of %q", kind)
	case <-s.done:
		return fmt.Errorf("connection closed while waiting for ack of %q", kind)
	}
}

func writeFrame(conn *ws.Conn, frame []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, frame)
}

// close sends a close frame and stops every goroutine.
func (s *stream) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	l := s.link
	s.link = nil
	s.mu.Unlock()

	if l == nil {
		return nil
	}
	close(l.gone)
	_ = l.conn.WriteControl(
		ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return l.conn.Close()
}
