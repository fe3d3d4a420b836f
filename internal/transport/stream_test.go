package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/protocol"
)

type recordingHandler struct {
	mu       sync.Mutex
	opened   int
	closed   int
	statuses []protocol.SessionStatusPayload
	received []protocol.MessagePayload
	acks     []protocol.MessagePayload
	done     chan struct{} // closed once the expected event count arrives
	want     int
	seen     int
}

func newRecordingHandler(want int) *recordingHandler {
	return &recordingHandler{done: make(chan struct{}), want: want}
}

func (h *recordingHandler) bump() {
	h.seen++
	if h.seen == h.want {
		close(h.done)
	}
}

func (h *recordingHandler) StreamOpened() {
	h.mu.Lock()
	h.opened++
	h.mu.Unlock()
}

func (h *recordingHandler) StreamClosed(err error) {
	h.mu.Lock()
	h.closed++
	h.mu.Unlock()
}

func (h *recordingHandler) SessionStatusChanged(ev protocol.SessionStatusPayload) {
	h.mu.Lock()
	h.statuses = append(h.statuses, ev)
	h.bump()
	h.mu.Unlock()
}

func (h *recordingHandler) MessageReceived(ev protocol.MessagePayload) {
	h.mu.Lock()
	h.received = append(h.received, ev)
	h.bump()
	h.mu.Unlock()
}

func (h *recordingHandler) MessageSentAck(ev protocol.MessagePayload) {
	h.mu.Lock()
	h.acks = append(h.acks, ev)
	h.bump()
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{}

// streamServer upgrades one connection and writes the given frames.
func streamServer(t *testing.T, frames [][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for _, f := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, f))
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func mustFrame(t *testing.T, event protocol.EventName, payload any) []byte {
	t.Helper()
	data, err := protocol.MarshalEvent(event, payload)
	require.NoError(t, err)
	return data
}

func TestStream_DispatchesEventsInOrder(t *testing.T) {
	frames := [][]byte{
		mustFrame(t, protocol.EventHello, protocol.HelloPayload{Status: "connected"}),
		mustFrame(t, protocol.EventSessionStatus, protocol.SessionStatusPayload{SessionID: 1, Status: protocol.StatusConnected}),
		mustFrame(t, protocol.EventMessageReceived, protocol.MessagePayload{SessionID: 1, Text: "first", Timestamp: 1700000000}),
		mustFrame(t, protocol.EventMessageReceived, protocol.MessagePayload{SessionID: 1, Text: "second", Timestamp: 1700000001}),
		mustFrame(t, protocol.EventMessageSent, protocol.MessagePayload{SessionID: 1, Text: "ack"}),
	}
	srv := streamServer(t, frames)
	defer srv.Close()

	h := newRecordingHandler(4) // hello does not reach the handler
	st := NewStream(StreamConfig{URL: wsURL(srv)}, h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- st.Run(ctx) }()

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for events")
	}
	cancel()
	require.NoError(t, <-errc)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, 1, h.opened)
	require.Len(t, h.statuses, 1)
	assert.Equal(t, protocol.StatusConnected, h.statuses[0].Status)
	require.Len(t, h.received, 2)
	assert.Equal(t, "first", h.received[0].Text)
	assert.Equal(t, "second", h.received[1].Text)
	require.Len(t, h.acks, 1)
}

func TestStream_MalformedFramesDropped(t *testing.T) {
	frames := [][]byte{
		[]byte("{not json"),
		[]byte(`{"payload": {"x": 1}}`), // missing event
		mustFrame(t, protocol.EventMessageReceived, protocol.MessagePayload{SessionID: 1, Text: "survivor"}),
	}
	srv := streamServer(t, frames)
	defer srv.Close()

	h := newRecordingHandler(1)
	st := NewStream(StreamConfig{URL: wsURL(srv)}, h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- st.Run(ctx) }()

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the surviving event")
	}
	cancel()
	require.NoError(t, <-errc)

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.received, 1)
	assert.Equal(t, "survivor", h.received[0].Text)
	assert.Empty(t, h.statuses)
}

func TestStream_OpenTimeout(t *testing.T) {
	h := newRecordingHandler(0)
	st := NewStream(StreamConfig{
		URL:         "ws://127.0.0.1:1/ws", // nothing listens here
		OpenTimeout: 50 * time.Millisecond,
	}, h)

	err := st.Run(context.Background())
	assert.ErrorIs(t, err, ErrStreamTimeout)
	assert.Zero(t, h.opened)
}

func TestStream_CancelBeforeOpenReturnsNil(t *testing.T) {
	h := newRecordingHandler(0)
	st := NewStream(StreamConfig{URL: "ws://127.0.0.1:1/ws", OpenTimeout: time.Hour}, h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, st.Run(ctx))
}

func TestStream_ReconnectsAfterDrop(t *testing.T) {
	var conns int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()
		if n == 1 {
			// First connection drops immediately to force a reconnect.
			conn.Close()
			return
		}
		defer conn.Close()
		require.NoError(t, conn.WriteMessage(websocket.TextMessage,
			mustFrame(t, protocol.EventMessageReceived, protocol.MessagePayload{SessionID: 1, Text: "after reconnect"})))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	h := newRecordingHandler(1)
	st := NewStream(StreamConfig{URL: wsURL(srv)}, h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- st.Run(ctx) }()

	select {
	case <-h.done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for reconnect")
	}
	cancel()
	require.NoError(t, <-errc)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, 2, h.opened, "StreamOpened fires on every reconnect")
	assert.GreaterOrEqual(t, h.closed, 1)
	require.Len(t, h.received, 1)
	assert.Equal(t, "after reconnect", h.received[0].Text)
}

func TestBackoff_Progression(t *testing.T) {
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 16*time.Second, backoff(5))
	assert.Equal(t, 30*time.Second, backoff(6))
	assert.Equal(t, 30*time.Second, backoff(40))
}
