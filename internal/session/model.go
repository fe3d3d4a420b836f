package session

import (
	"sync"
	"time"
)

// ConnState is the local lifecycle state of a session. The error condition is
// not a distinct state: it is disconnected plus a status text.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// MessageKind classifies a log line.
type MessageKind string

const (
	KindSent     MessageKind = "sent"
	KindReceived MessageKind = "received"
	KindInfo     MessageKind = "info"
	KindWarning  MessageKind = "warning"
	KindError    MessageKind = "error"
)

// Message is one line of traffic or control-event text. ID is unique within
// the owning session and exists only for render reconciliation.
type Message struct {
	ID        string
	Timestamp time.Time
	Text      string
	Kind      MessageKind
}

// Counters tracks per-session traffic totals.
type Counters struct {
	BytesSent        uint64
	BytesReceived    uint64
	MessagesSent     uint64
	MessagesReceived uint64
	LastActivity     time.Time
}

const (
	DefaultBaudRate             = 115200
	DefaultMaxReconnectAttempts = 3
)

// Session is one logical UART endpoint managed by the monitor. All mutable
// fields are guarded; identity (ID) is fixed for the session's lifetime.
type Session struct {
	ID int

	mu                   sync.Mutex
	port                 string
	baudRate             int
	state                ConnState
	statusText           string
	reconnectAttempts    int
	maxReconnectAttempts int
	autoScroll           bool
	showTimestamps       bool
	echoCommands         bool
	messages             []Message
	counters             Counters
	connectedAt          time.Time
	reconnect            *time.Timer
	disconnecting        bool
}

// New creates a session with default configuration, disconnected.
func New(id int) *Session {
	return &Session{
		ID:                   id,
		baudRate:             DefaultBaudRate,
		state:                StateDisconnected,
		maxReconnectAttempts: DefaultMaxReconnectAttempts,
		autoScroll:           true,
		showTimestamps:       true,
	}
}

// View is an immutable snapshot of a session for rendering and export.
type View struct {
	ID                   int
	Port                 string
	BaudRate             int
	State                ConnState
	StatusText           string
	ReconnectAttempts    int
	MaxReconnectAttempts int
	AutoScroll           bool
	ShowTimestamps       bool
	EchoCommands         bool
	MessageCount         int
	ConnectedAt          time.Time
	Counters             Counters
}

// View returns a consistent snapshot of the session's state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:                   s.ID,
		Port:                 s.port,
		BaudRate:             s.baudRate,
		State:                s.state,
		StatusText:           s.statusText,
		ReconnectAttempts:    s.reconnectAttempts,
		MaxReconnectAttempts: s.maxReconnectAttempts,
		AutoScroll:           s.autoScroll,
		ShowTimestamps:       s.showTimestamps,
		EchoCommands:         s.echoCommands,
		MessageCount:         len(s.messages),
		ConnectedAt:          s.connectedAt,
		Counters:             s.counters,
	}
}

// --- configuration ---

func (s *Session) Port() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *Session) SetPort(port string) {
	s.mu.Lock()
	s.port = port
	s.mu.Unlock()
}

func (s *Session) BaudRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baudRate
}

func (s *Session) SetBaudRate(rate int) {
	s.mu.Lock()
	s.baudRate = rate
	s.mu.Unlock()
}

func (s *Session) EchoCommands() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.echoCommands
}

func (s *Session) SetEchoCommands(v bool) {
	s.mu.Lock()
	s.echoCommands = v
	s.mu.Unlock()
}

func (s *Session) SetAutoScroll(v bool) {
	s.mu.Lock()
	s.autoScroll = v
	s.mu.Unlock()
}

func (s *Session) SetShowTimestamps(v bool) {
	s.mu.Lock()
	s.showTimestamps = v
	s.mu.Unlock()
}

func (s *Session) SetMaxReconnectAttempts(n int) {
	s.mu.Lock()
	s.maxReconnectAttempts = n
	s.mu.Unlock()
}

// --- connection state ---

func (s *Session) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) StatusText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusText
}

// TryTransition moves from one state to another only when the session is
// currently in the expected state. This is the guard that keeps a second
// connect or disconnect from being issued while one is in flight.
func (s *Session) TryTransition(from, to ConnState, detail string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.applyState(to, detail)
	return true
}

// SetState applies a state unconditionally (authoritative bridge events) and
// reports whether the state actually changed.
func (s *Session) SetState(to ConnState, detail string) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed = s.state != to
	s.applyState(to, detail)
	return changed
}

func (s *Session) applyState(to ConnState, detail string) {
	s.state = to
	s.statusText = detail
	switch to {
	case StateConnected:
		s.reconnectAttempts = 0
		s.connectedAt = time.Now()
	case StateDisconnected:
		s.connectedAt = time.Time{}
	}
}

// TryBeginDisconnect marks a disconnect in flight. Returns false when the
// session is not connected or a disconnect is already in flight — there is no
// distinct "disconnecting" state, the local state stays connected until the
// bridge confirms.
func (s *Session) TryBeginDisconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.disconnecting {
		return false
	}
	s.disconnecting = true
	return true
}

// EndDisconnect clears the in-flight disconnect marker.
func (s *Session) EndDisconnect() {
	s.mu.Lock()
	s.disconnecting = false
	s.mu.Unlock()
}

// --- reconnection bookkeeping ---

func (s *Session) ReconnectAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnectAttempts
}

// NextReconnectAttempt consumes one reconnection attempt. It returns the new
// attempt number, or false when the ceiling has been reached.
func (s *Session) NextReconnectAttempt() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reconnectAttempts >= s.maxReconnectAttempts {
		return 0, false
	}
	s.reconnectAttempts++
	return s.reconnectAttempts, true
}

// SetReconnectTimer stores the pending reconnect timer handle, stopping any
// previous one so at most one attempt is ever scheduled per session.
func (s *Session) SetReconnectTimer(t *time.Timer) {
	s.mu.Lock()
	prev := s.reconnect
	s.reconnect = t
	s.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}
}

// CancelReconnect stops any pending reconnect attempt. Superseding actions
// (manual connect, authoritative connected event) call this so the scheduled
// attempt is positively cancelled rather than relying only on the fire-time
// state check.
func (s *Session) CancelReconnect() {
	s.SetReconnectTimer(nil)
}

// --- message log (owned by this session, mutated via msglog.Store) ---

// AppendMessage appends under the retention cap, evicting oldest-first.
// It returns the number of evicted messages (0 or 1 in steady state).
func (s *Session) AppendMessage(m Message, cap int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	evicted := 0
	if cap > 0 && len(s.messages) > cap {
		evicted = len(s.messages) - cap
		s.messages = append([]Message(nil), s.messages[evicted:]...)
	}
	return evicted
}

// Messages returns a copy of the session's log in append order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// MessageCount returns the number of stored messages.
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// ClearMessages empties the log and returns how many entries were dropped.
func (s *Session) ClearMessages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.messages)
	s.messages = nil
	return n
}

// --- traffic counters ---

func (s *Session) AddSent(bytes int) {
	s.mu.Lock()
	s.counters.MessagesSent++
	s.counters.BytesSent += uint64(bytes)
	s.counters.LastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) AddReceived(bytes int) {
	s.mu.Lock()
	s.counters.MessagesReceived++
	s.counters.BytesReceived += uint64(bytes)
	s.counters.LastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) CountersSnapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}
