package msglog

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/session"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/stats"
)

// RetentionCap is the fixed per-session message ceiling. Once exceeded, the
// oldest entries are evicted one-for-one with new appends.
const RetentionCap = 1000

// Sink is the render surface. The store keeps it in lockstep with the
// in-memory log: every append, truncation and clear is mirrored so the two
// never diverge.
type Sink interface {
	MessageAppended(sessionID int, m session.Message)
	MessagesTruncated(sessionID int, n int)
	MessagesCleared(sessionID int)
}

// Store owns message intake for all sessions. Messages live on the session
// they belong to; the store adds identity, timestamps, retention, the
// process-wide total counter, and render notification.
type Store struct {
	reg   *session.Registry
	cap   int
	total atomic.Uint64

	mu    sync.RWMutex
	sinks []Sink
}

// NewStore creates a store over the given registry with the default cap.
func NewStore(reg *session.Registry) *Store {
	return &Store{reg: reg, cap: RetentionCap}
}

// AddSink registers a render sink.
func (st *Store) AddSink(s Sink) {
	st.mu.Lock()
	st.sinks = append(st.sinks, s)
	st.mu.Unlock()
}

// Append attaches a message to its session. A zero timestamp means the entry
// originated locally and is stamped now; received traffic carries the
// bridge's timestamp. Returns the stored message.
func (st *Store) Append(sessionID int, text string, kind session.MessageKind, ts time.Time) (session.Message, error) {
	s, ok := st.reg.Get(sessionID)
	if !ok {
		return session.Message{}, fmt.Errorf("append to session %d: %w", sessionID, session.ErrNotFound)
	}

	if ts.IsZero() {
		ts = time.Now()
	}
	m := session.Message{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Text:      text,
		Kind:      kind,
	}

	evicted := s.AppendMessage(m, st.cap)
	st.total.Add(1)
	stats.IncMessage(string(kind))

	st.mu.RLock()
	sinks := st.sinks
	st.mu.RUnlock()
	for _, sink := range sinks {
		sink.MessageAppended(sessionID, m)
		if evicted > 0 {
			sink.MessagesTruncated(sessionID, evicted)
		}
	}
	return m, nil
}

// Clear empties one session's log. The total counter is not rolled back:
// messages already counted stay counted.
func (st *Store) Clear(sessionID int) error {
	s, ok := st.reg.Get(sessionID)
	if !ok {
		return fmt.Errorf("clear session %d: %w", sessionID, session.ErrNotFound)
	}
	s.ClearMessages()

	st.mu.RLock()
	sinks := st.sinks
	st.mu.RUnlock()
	for _, sink := range sinks {
		sink.MessagesCleared(sessionID)
	}
	return nil
}

// TotalMessages is the monotonic count of messages ever accepted by any
// session, including sessions since removed and logs since cleared.
func (st *Store) TotalMessages() uint64 {
	return st.total.Load()
}
