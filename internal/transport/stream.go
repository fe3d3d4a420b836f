package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/protocol"
)

// DefaultOpenTimeout bounds the initial stream establishment.
const DefaultOpenTimeout = 10 * time.Second

const (
	streamBackoffBase = time.Second
	streamBackoffMax  = 30 * time.Second
)

// StreamHandler receives push events from the bridge. Calls are made from a
// single goroutine, so per-session event order is preserved as sent.
type StreamHandler interface {
	StreamOpened()
	StreamClosed(err error)
	SessionStatusChanged(ev protocol.SessionStatusPayload)
	MessageReceived(ev protocol.MessagePayload)
	MessageSentAck(ev protocol.MessagePayload)
}

// StreamConfig configures the push-event stream.
type StreamConfig struct {
	URL         string        // ws:// endpoint, e.g. "ws://127.0.0.1:5000/ws"
	OpenTimeout time.Duration // bound on initial establishment; default 10s
}

// Stream is the persistent server-to-client event channel. It dials, reads
// event frames and dispatches them to the handler, reconnecting on its own
// after the first successful open. StreamOpened is re-emitted on every
// reconnect.
type Stream struct {
	cfg     StreamConfig
	handler StreamHandler
	dialer  *websocket.Dialer
}

// NewStream creates a stream; Run must be called to start it.
func NewStream(cfg StreamConfig, handler StreamHandler) *Stream {
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	return &Stream{
		cfg:     cfg,
		handler: handler,
		dialer:  &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
	}
}

// Run drives the stream until ctx is cancelled. The caller is expected to run
// it on its own goroutine so establishment never blocks other operations.
// If the stream cannot be opened within OpenTimeout, ErrStreamTimeout is
// returned — reported to the caller exactly once, because Run exits. After
// the first successful open the stream reconnects indefinitely with backoff.
func (st *Stream) Run(ctx context.Context) error {
	deadline := time.Now().Add(st.cfg.OpenTimeout)
	opened := false
	attempt := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, _, err := st.dialer.DialContext(ctx, st.cfg.URL, nil)
		if err != nil {
			if !opened {
				if time.Now().After(deadline) {
					return ErrStreamTimeout
				}
			}
			attempt++
			delay := backoff(attempt)
			slog.Debug("stream dial failed", "url", st.cfg.URL, "attempt", attempt, "retry_in", delay, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}

		opened = true
		attempt = 0
		st.handler.StreamOpened()

		err = st.readLoop(ctx, conn)
		st.handler.StreamClosed(err)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// readLoop dispatches frames until the connection drops.
func (st *Stream) readLoop(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	// Unblock the read when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		st.dispatch(data)
	}
}

func (st *Stream) dispatch(data []byte) {
	evt, err := protocol.ParseEvent(data)
	if err != nil {
		slog.Warn("dropping malformed stream frame", "error", err)
		return
	}

	switch evt.Event {
	case protocol.EventHello:
		// Connectivity confirmation; StreamOpened already fired.

	case protocol.EventSessionStatus:
		var p protocol.SessionStatusPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			slog.Warn("dropping malformed session_status payload", "error", err)
			return
		}
		st.handler.SessionStatusChanged(p)

	case protocol.EventMessageReceived:
		var p protocol.MessagePayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			slog.Warn("dropping malformed message_received payload", "error", err)
			return
		}
		st.handler.MessageReceived(p)

	case protocol.EventMessageSent:
		var p protocol.MessagePayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			slog.Warn("dropping malformed message_sent payload", "error", err)
			return
		}
		st.handler.MessageSentAck(p)

	default:
		slog.Debug("ignoring unknown stream event", "event", evt.Event)
	}
}

func backoff(attempt int) time.Duration {
	d := streamBackoffBase << uint(attempt-1)
	if d <= 0 || d > streamBackoffMax {
		return streamBackoffMax
	}
	return d
}
