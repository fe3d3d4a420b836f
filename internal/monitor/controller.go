package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/msglog"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/protocol"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/session"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/stats"
)

// Bridge is the request/response surface the controller needs. Implemented by
// transport.Client; tests substitute fakes.
type Bridge interface {
	Connect(ctx context.Context, sessionID int, port string, baudRate int) error
	Disconnect(ctx context.Context, sessionID int) error
	Send(ctx context.Context, sessionID int, text string) error
	SessionStats(ctx context.Context, sessionID int) (protocol.SessionStats, error)
}

// Precondition failures. These never reach the transport and are returned to
// the caller directly; every other failure is translated into a state
// transition plus an appended message and does not propagate.
var (
	ErrNoPortSelected = errors.New("no port selected")
	ErrNotConnected   = errors.New("session not connected")
)

const (
	reconnectBackoffBase = time.Second
	reconnectBackoffMax  = 30 * time.Second

	// How long after a failed disconnect before asking the bridge for the
	// session's authoritative status.
	defaultReconcileDelay = 5 * time.Second
)

// reconnectDelay computes the backoff before automatic reconnection attempt
// n (1-based): min(1s * 2^n, 30s).
func reconnectDelay(attempt int) time.Duration {
	d := reconnectBackoffBase << uint(attempt)
	if d <= 0 || d > reconnectBackoffMax {
		return reconnectBackoffMax
	}
	return d
}

// Controller drives every session's connect/disconnect/reconnect lifecycle
// and message flow. It is the only writer of session connection state; all
// transitions go through the guards on the session itself, so a second
// connect or disconnect is never issued while one is in flight.
type Controller struct {
	reg    *session.Registry
	bridge Bridge
	log    *msglog.Store
	notify Notifier

	// afterFunc schedules deferred work; swapped out in tests.
	afterFunc      func(d time.Duration, f func()) *time.Timer
	reconcileDelay time.Duration
}

// Option customizes a Controller.
type Option func(*Controller)

// WithNotifier routes transient notifications to n.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

// WithAfterFunc substitutes the timer source (tests).
func WithAfterFunc(f func(time.Duration, func()) *time.Timer) Option {
	return func(c *Controller) { c.afterFunc = f }
}

// WithReconcileDelay overrides the delay before post-failure reconciliation.
func WithReconcileDelay(d time.Duration) Option {
	return func(c *Controller) { c.reconcileDelay = d }
}

// New wires a controller over the registry, bridge and message store.
func New(reg *session.Registry, bridge Bridge, log *msglog.Store, opts ...Option) *Controller {
	c := &Controller{
		reg:            reg,
		bridge:         bridge,
		log:            log,
		notify:         slogNotifier{},
		afterFunc:      time.AfterFunc,
		reconcileDelay: defaultReconcileDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddSession creates a session with default configuration.
func (c *Controller) AddSession() *session.Session {
	s := c.reg.Create()
	c.notify.Notify(NotifySuccess, fmt.Sprintf("Session %d created", s.ID))
	slog.Info("session created", "session", s.ID)
	return s
}

// RemoveSession destroys a session, forcing a disconnect first if needed.
func (c *Controller) RemoveSession(ctx context.Context, id int) error {
	s, ok := c.reg.Get(id)
	if !ok {
		return fmt.Errorf("remove session %d: %w", id, session.ErrNotFound)
	}
	if s.State() == session.StateConnected {
		c.Disconnect(ctx, id)
	}
	s.CancelReconnect()
	if err := c.reg.Remove(id); err != nil {
		return err
	}
	c.notify.Notify(NotifySuccess, fmt.Sprintf("Session %d removed", id))
	return nil
}

// Connect drives the session into the connected state. No-op when already
// connected or when a connect is in flight. Fails fast with
// ErrNoPortSelected before touching the transport. A transport failure is
// translated into disconnected-with-detail plus reconnection scheduling and
// is not returned.
func (c *Controller) Connect(ctx context.Context, id int) error {
	s, ok := c.reg.Get(id)
	if !ok {
		return fmt.Errorf("connect session %d: %w", id, session.ErrNotFound)
	}
	if s.State() == session.StateConnected {
		return nil
	}
	port := s.Port()
	if port == "" {
		c.notify.Notify(NotifyWarning, "Please select a port first")
		return ErrNoPortSelected
	}
	if !s.TryTransition(session.StateDisconnected, session.StateConnecting, "Connecting...") {
		// A connect is already in flight for this session.
		return nil
	}
	// A manual connect supersedes any pending automatic attempt.
	s.CancelReconnect()

	baud := s.BaudRate()
	slog.Info("connecting session", "session", id, "port", port, "baud", baud)

	if err := c.bridge.Connect(ctx, id, port, baud); err != nil {
		s.SetState(session.StateDisconnected, "Connection failed")
		c.notify.Notify(NotifyError, fmt.Sprintf("Failed to connect session %d: %v", id, err))
		slog.Warn("connect failed", "session", id, "port", port, "error", err)
		c.scheduleReconnect(s)
		return nil
	}

	s.SetState(session.StateConnected, "Connected")
	c.log.Append(id, fmt.Sprintf("Connected to %s at %d baud", port, baud), session.KindInfo, time.Time{})
	c.notify.Notify(NotifySuccess, fmt.Sprintf("Session %d connected to %s", id, port))
	return nil
}

// scheduleReconnect arms exactly one future connect attempt, bounded by the
// session's attempt ceiling. The timer handle lives on the session so a
// superseding action can positively cancel it; the closure re-checks the
// state at fire time as well.
func (c *Controller) scheduleReconnect(s *session.Session) {
	attempt, ok := s.NextReconnectAttempt()
	if !ok {
		slog.Warn("reconnect attempts exhausted", "session", s.ID)
		return
	}

	delay := reconnectDelay(attempt)
	max := s.View().MaxReconnectAttempts
	c.log.Append(s.ID, fmt.Sprintf("Reconnection attempt %d/%d in %ds", attempt, max, int(delay/time.Second)), session.KindWarning, time.Time{})
	stats.IncReconnectScheduled()

	id := s.ID
	timer := c.afterFunc(delay, func() {
		if s.State() != session.StateDisconnected {
			return
		}
		c.Connect(context.Background(), id)
	})
	s.SetReconnectTimer(timer)
}

// Disconnect asks the bridge to release the session's port. No-op when
// already disconnected. The local state flips only on confirmed success; on
// failure the session may still be connected server-side, so a
// reconciliation fetch is scheduled instead of guessing.
func (c *Controller) Disconnect(ctx context.Context, id int) error {
	s, ok := c.reg.Get(id)
	if !ok {
		return fmt.Errorf("disconnect session %d: %w", id, session.ErrNotFound)
	}
	if !s.TryBeginDisconnect() {
		// Already disconnected, or a disconnect is in flight.
		return nil
	}
	defer s.EndDisconnect()

	if err := c.bridge.Disconnect(ctx, id); err != nil {
		c.notify.Notify(NotifyError, fmt.Sprintf("Failed to disconnect session %d: %v", id, err))
		slog.Warn("disconnect failed, scheduling reconciliation", "session", id, "error", err)
		c.afterFunc(c.reconcileDelay, func() {
			c.Reconcile(context.Background(), id)
		})
		return nil
	}

	port := s.Port()
	s.SetState(session.StateDisconnected, "Disconnected")
	s.CancelReconnect()
	c.log.Append(id, fmt.Sprintf("Disconnected from %s", port), session.KindInfo, time.Time{})
	c.notify.Notify(NotifySuccess, fmt.Sprintf("Session %d disconnected", id))
	return nil
}

// Send writes one line to the session's port. It fails fast with
// ErrNotConnected before touching the transport. The returned flag reports
// whether the send succeeded — the UI boundary clears its input only then.
func (c *Controller) Send(ctx context.Context, id int, text string) (cleared bool, err error) {
	s, ok := c.reg.Get(id)
	if !ok {
		return false, fmt.Errorf("send to session %d: %w", id, session.ErrNotFound)
	}
	if s.State() != session.StateConnected {
		c.notify.Notify(NotifyWarning, "Session not connected")
		return false, ErrNotConnected
	}
	if text == "" {
		return false, nil
	}

	// With echo on, the command shows up in the log before the wire call.
	echo := s.EchoCommands()
	if echo {
		c.log.Append(id, text, session.KindSent, time.Time{})
	}

	if err := c.bridge.Send(ctx, id, text); err != nil {
		c.log.Append(id, "Failed to send: "+text, session.KindError, time.Time{})
		c.notify.Notify(NotifyError, fmt.Sprintf("Failed to send message to session %d", id))
		return false, nil
	}

	if !echo {
		c.log.Append(id, text, session.KindSent, time.Time{})
	}
	s.AddSent(len(text))
	return true, nil
}

// ClearMessages empties one session's log.
func (c *Controller) ClearMessages(id int) error {
	if err := c.log.Clear(id); err != nil {
		return err
	}
	c.notify.Notify(NotifySuccess, fmt.Sprintf("Session %d messages cleared", id))
	return nil
}

// --- bulk operations ---

// ConnectAll attempts a connect on every session that is disconnected and
// has a port assigned. Sessions proceed independently with no ordering
// guarantees between them.
func (c *Controller) ConnectAll(ctx context.Context) {
	c.forEachSession(func(s *session.Session) {
		if s.State() != session.StateConnected && s.Port() != "" {
			c.Connect(ctx, s.ID)
		}
	})
}

// DisconnectAll disconnects every connected session, independently.
func (c *Controller) DisconnectAll(ctx context.Context) {
	c.forEachSession(func(s *session.Session) {
		if s.State() == session.StateConnected {
			c.Disconnect(ctx, s.ID)
		}
	})
}

// ClearAll empties every session's log.
func (c *Controller) ClearAll() {
	for _, s := range c.reg.All() {
		c.log.Clear(s.ID)
	}
}

func (c *Controller) forEachSession(f func(*session.Session)) {
	done := make(chan struct{})
	sessions := c.reg.All()
	for _, s := range sessions {
		go func(s *session.Session) {
			defer func() { done <- struct{}{} }()
			f(s)
		}(s)
	}
	for range sessions {
		<-done
	}
}

// Reconcile fetches the bridge's authoritative view of one session and
// applies its status exactly like a pushed status event. This is how local
// state converges after a failed disconnect.
func (c *Controller) Reconcile(ctx context.Context, id int) error {
	s, ok := c.reg.Get(id)
	if !ok {
		return fmt.Errorf("reconcile session %d: %w", id, session.ErrNotFound)
	}
	st, err := c.bridge.SessionStats(ctx, id)
	if err != nil {
		slog.Warn("reconciliation fetch failed", "session", id, "error", err)
		return nil
	}
	slog.Debug("reconciling session", "session", id, "bridge_status", st.Status, "local_state", s.State())
	c.applyStatus(s, protocol.SessionStatusPayload{SessionID: id, Status: st.Status})
	return nil
}

// ReconcileAll reconciles every session; used by the periodic loop.
func (c *Controller) ReconcileAll(ctx context.Context) {
	for _, s := range c.reg.All() {
		c.Reconcile(ctx, s.ID)
	}
}
