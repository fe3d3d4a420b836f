package monitor

import (
	"log/slog"
	"time"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/protocol"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/session"
)

// The controller is the stream handler: push events from the bridge are
// applied here, in receipt order, and are authoritative over local state.

// StreamOpened fires on every (re)establishment of the push stream.
func (c *Controller) StreamOpened() {
	c.notify.Notify(NotifySuccess, "Connected to server")
	slog.Info("push stream opened")
}

// StreamClosed fires when the push stream drops; the transport reconnects on
// its own.
func (c *Controller) StreamClosed(err error) {
	c.notify.Notify(NotifyWarning, "Disconnected from server")
	slog.Warn("push stream closed", "error", err)
}

// SessionStatusChanged applies an authoritative status event. Events for
// unknown sessions are silently dropped.
func (c *Controller) SessionStatusChanged(ev protocol.SessionStatusPayload) {
	s, ok := c.reg.Get(ev.SessionID)
	if !ok {
		slog.Debug("dropping status event for unknown session", "session", ev.SessionID)
		return
	}
	c.applyStatus(s, ev)
}

func (c *Controller) applyStatus(s *session.Session, ev protocol.SessionStatusPayload) {
	switch ev.Status {
	case protocol.StatusConnected:
		s.SetState(session.StateConnected, "Connected")
		s.CancelReconnect()

	case protocol.StatusDisconnected:
		s.SetState(session.StateDisconnected, "Disconnected")

	case protocol.StatusError:
		// Always append the error message, even when the state is already
		// disconnected: the detail is new information.
		s.SetState(session.StateDisconnected, "Error")
		c.log.Append(s.ID, "Error: "+ev.Detail, session.KindError, time.Time{})

	default:
		slog.Warn("unknown session status", "session", s.ID, "status", ev.Status)
	}
}

// MessageReceived appends one line of device traffic to the owning session.
// Events for unknown sessions are silently dropped.
func (c *Controller) MessageReceived(ev protocol.MessagePayload) {
	s, ok := c.reg.Get(ev.SessionID)
	if !ok {
		slog.Debug("dropping message for unknown session", "session", ev.SessionID)
		return
	}
	c.log.Append(ev.SessionID, ev.Text, session.KindReceived, protocol.FromEpoch(ev.Timestamp))
	s.AddReceived(len(ev.Text))
}

// MessageSentAck confirms a send the bridge completed. The sent entry was
// already appended at send time, so this is informational only.
func (c *Controller) MessageSentAck(ev protocol.MessagePayload) {
	slog.Debug("send acknowledged", "session", ev.SessionID, "text", ev.Text)
}
