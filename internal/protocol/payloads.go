package protocol

import (
	"math"
	"time"
)

// SessionStatus is the bridge's view of a session's connection state.
type SessionStatus string

const (
	StatusConnected    SessionStatus = "connected"
	StatusDisconnected SessionStatus = "disconnected"
	StatusError        SessionStatus = "error"
)

// HelloPayload accompanies the hello event on every stream open.
type HelloPayload struct {
	Status string `json:"status"`
}

// SessionStatusPayload is the payload of a session_status event. The bridge
// is authoritative: Detail carries the failure text for status "error".
type SessionStatusPayload struct {
	SessionID int           `json:"session_id"`
	Status    SessionStatus `json:"status"`
	Detail    string        `json:"message,omitempty"`
}

// MessagePayload is the payload of message_received and message_sent events.
// Timestamp is epoch seconds, assigned by the bridge.
type MessagePayload struct {
	SessionID int     `json:"session_id"`
	Text      string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

// Epoch converts a time to the epoch-seconds representation used on the wire.
func Epoch(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromEpoch converts epoch seconds back to a time. Zero maps to the zero time.
func FromEpoch(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	s, frac := math.Modf(sec)
	return time.Unix(int64(s), int64(frac*float64(time.Second)))
}
