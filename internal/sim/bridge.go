// Package sim is an in-process stand-in for the bridge service: it owns fake
// serial sessions, feeds them canned device chatter, and exposes the same
// REST + push-stream surface the real bridge does. Used by `uartmon sim`,
// `uartmon run --demo`, and the integration tests. It is a test double for
// the boundary, not a serial driver.
package sim

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/protocol"
)

// MockPorts is the canned device endpoint list.
var MockPorts = []string{
	"COM1", "COM3", "COM4", "COM5",
	"/dev/ttyUSB0", "/dev/ttyUSB1",
	"/dev/ttyACM0", "/dev/ttyACM1",
	"/dev/ttyS0", "/dev/ttyS1",
}

// deviceChatter is what a connected fake device emits, cycled in order.
var deviceChatter = []string{
	"System initialized",
	"Temperature: 24.5°C",
	"Voltage: 3.3V",
	"Memory usage: 42%",
	"Signal strength: -65dBm",
	"Sensor data: 123.45",
	"Status: OK",
	"Heartbeat",
	"Debug: Main loop iteration",
	"Info: WiFi connected",
	"Warning: Low battery",
	"Error: Sensor timeout",
}

const bufferCap = 1000

// Emitter receives the push events the bridge generates. Implemented by the
// sim server's websocket hub.
type Emitter interface {
	Emit(event protocol.EventName, payload any)
}

type bufferedMessage struct {
	timestamp float64
	text      string
	kind      string
}

// device is one fake serial session on the bridge side.
type device struct {
	id   int
	port string
	baud int

	mu           sync.Mutex
	connected    bool
	connectedAt  time.Time
	buffer       []bufferedMessage
	sentMsgs     uint64
	recvMsgs     uint64
	sentBytes    uint64
	recvBytes    uint64
	lastActivity time.Time
	chatterIndex int
	stop         chan struct{}
}

func (d *device) record(text, kind string, bytes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffer = append(d.buffer, bufferedMessage{
		timestamp: protocol.Epoch(time.Now()),
		text:      text,
		kind:      kind,
	})
	if len(d.buffer) > bufferCap {
		d.buffer = d.buffer[len(d.buffer)-bufferCap:]
	}
	switch kind {
	case "sent":
		d.sentMsgs++
		d.sentBytes += uint64(bytes)
	case "received":
		d.recvMsgs++
		d.recvBytes += uint64(bytes)
	}
	d.lastActivity = time.Now()
}

func (d *device) stats() protocol.SessionStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := protocol.StatusDisconnected
	var uptime float64
	if d.connected {
		status = protocol.StatusConnected
		uptime = time.Since(d.connectedAt).Seconds()
	}
	return protocol.SessionStats{
		Status:           status,
		Port:             d.port,
		BaudRate:         d.baud,
		MessagesSent:     d.sentMsgs,
		MessagesReceived: d.recvMsgs,
		BytesSent:        d.sentBytes,
		BytesReceived:    d.recvBytes,
		MessageCount:     len(d.buffer),
		LastActivity:     protocol.Epoch(d.lastActivity),
		UptimeSeconds:    uptime,
	}
}

func (d *device) recentMessages(limit int) []protocol.ExportedMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	msgs := d.buffer
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]protocol.ExportedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = protocol.ExportedMessage{
			Timestamp: m.timestamp,
			SessionID: d.id,
			Text:      m.text,
			Kind:      m.kind,
		}
	}
	return out
}

// Bridge owns all fake sessions and the global counters.
type Bridge struct {
	emitter  Emitter
	interval time.Duration
	ports    []string

	mu              sync.Mutex
	devices         map[int]*device
	totalMessages   uint64
	sessionsCreated int
	start           time.Time
}

// NewBridge creates an empty bridge. interval is the cadence of canned device
// chatter per connected session.
func NewBridge(emitter Emitter, interval time.Duration) *Bridge {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Bridge{
		emitter:  emitter,
		interval: interval,
		ports:    MockPorts,
		devices:  make(map[int]*device),
		start:    time.Now(),
	}
}

// Ports lists the fake device endpoints.
func (b *Bridge) Ports() []string {
	out := make([]string, len(b.ports))
	copy(out, b.ports)
	return out
}

func (b *Bridge) validPort(port string) bool {
	for _, p := range b.ports {
		if p == port {
			return true
		}
	}
	return false
}

// Connect opens a fake session on port and starts its chatter loop. Unknown
// ports are refused, which gives the monitor a failure path to exercise.
func (b *Bridge) Connect(sessionID int, port string, baud int) error {
	if !b.validPort(port) {
		return fmt.Errorf("invalid port: %s", port)
	}

	b.mu.Lock()
	d, ok := b.devices[sessionID]
	if !ok {
		d = &device{id: sessionID}
		b.devices[sessionID] = d
		b.sessionsCreated++
	}
	b.mu.Unlock()

	d.mu.Lock()
	if d.connected {
		d.mu.Unlock()
		return fmt.Errorf("session %d already connected", sessionID)
	}
	d.port = port
	d.baud = baud
	d.connected = true
	d.connectedAt = time.Now()
	d.stop = make(chan struct{})
	stop := d.stop
	d.mu.Unlock()

	slog.Info("sim: session connected", "session", sessionID, "port", port, "baud", baud)
	b.emitter.Emit(protocol.EventSessionStatus, protocol.SessionStatusPayload{
		SessionID: sessionID,
		Status:    protocol.StatusConnected,
		Detail:    fmt.Sprintf("Mock connected to %s", port),
	})

	go b.chatterLoop(d, stop)
	return nil
}

// chatterLoop cycles canned messages until the session disconnects.
func (b *Bridge) chatterLoop(d *device, stop chan struct{}) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.mu.Lock()
			text := deviceChatter[d.chatterIndex%len(deviceChatter)]
			d.chatterIndex++
			d.mu.Unlock()

			d.record(text, "received", len(text))
			b.mu.Lock()
			b.totalMessages++
			b.mu.Unlock()

			b.emitter.Emit(protocol.EventMessageReceived, protocol.MessagePayload{
				SessionID: d.id,
				Text:      text,
				Timestamp: protocol.Epoch(time.Now()),
			})
		}
	}
}

// Disconnect stops a fake session's chatter and marks it disconnected.
func (b *Bridge) Disconnect(sessionID int) error {
	b.mu.Lock()
	d, ok := b.devices[sessionID]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %d not connected", sessionID)
	}

	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return fmt.Errorf("session %d not connected", sessionID)
	}
	d.connected = false
	close(d.stop)
	d.mu.Unlock()

	slog.Info("sim: session disconnected", "session", sessionID)
	b.emitter.Emit(protocol.EventSessionStatus, protocol.SessionStatusPayload{
		SessionID: sessionID,
		Status:    protocol.StatusDisconnected,
		Detail:    "Disconnected",
	})
	return nil
}

// Send records one outbound line on the fake session and acks it.
func (b *Bridge) Send(sessionID int, text string) error {
	b.mu.Lock()
	d, ok := b.devices[sessionID]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %d not connected", sessionID)
	}
	d.mu.Lock()
	connected := d.connected
	d.mu.Unlock()
	if !connected {
		return fmt.Errorf("session %d not connected", sessionID)
	}

	b.mu.Lock()
	b.totalMessages++
	b.mu.Unlock()

	d.record(text, "sent", len(text))
	b.emitter.Emit(protocol.EventMessageSent, protocol.MessagePayload{
		SessionID: sessionID,
		Text:      text,
		Timestamp: protocol.Epoch(time.Now()),
	})
	return nil
}

// SessionStats returns one fake session's counters.
func (b *Bridge) SessionStats(sessionID int) (protocol.SessionStats, error) {
	b.mu.Lock()
	d, ok := b.devices[sessionID]
	b.mu.Unlock()
	if !ok {
		return protocol.SessionStats{}, fmt.Errorf("session %d not found", sessionID)
	}
	return d.stats(), nil
}

// GlobalStats returns the bridge-wide counters.
func (b *Bridge) GlobalStats() protocol.GlobalStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	gs := protocol.GlobalStats{
		TotalSessions: b.sessionsCreated,
		TotalMessages: b.totalMessages,
		StartTime:     protocol.Epoch(b.start),
		UptimeSeconds: time.Since(b.start).Seconds(),
	}
	for _, d := range b.devices {
		st := d.stats()
		if st.Status == protocol.StatusConnected {
			gs.ActiveSessions++
		}
		gs.MessagesSent += st.MessagesSent
		gs.MessagesReceived += st.MessagesReceived
		gs.BytesSent += st.BytesSent
		gs.BytesReceived += st.BytesReceived
	}
	return gs
}

// Export snapshots every fake session with its most recent limit messages.
func (b *Bridge) Export(limit int) protocol.ExportSnapshot {
	snap := protocol.ExportSnapshot{
		Timestamp:      protocol.Epoch(time.Now()),
		GlobalStats:    b.GlobalStats(),
		AvailablePorts: b.Ports(),
		Sessions:       make(map[string]protocol.SessionExport),
	}

	b.mu.Lock()
	devices := make([]*device, 0, len(b.devices))
	for _, d := range b.devices {
		devices = append(devices, d)
	}
	b.mu.Unlock()

	for _, d := range devices {
		snap.Sessions[fmt.Sprintf("%d", d.id)] = protocol.SessionExport{
			SessionID: d.id,
			Port:      d.port,
			BaudRate:  d.baud,
			Stats:     d.stats(),
			Messages:  d.recentMessages(limit),
		}
	}
	return snap
}

// Shutdown stops every chatter loop.
func (b *Bridge) Shutdown() {
	b.mu.Lock()
	devices := make([]*device, 0, len(b.devices))
	for _, d := range b.devices {
		devices = append(devices, d)
	}
	b.mu.Unlock()

	for _, d := range devices {
		d.mu.Lock()
		if d.connected {
			d.connected = false
			close(d.stop)
		}
		d.mu.Unlock()
	}
}
