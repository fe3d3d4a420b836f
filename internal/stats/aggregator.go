package stats

import (
	"time"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/session"
)

// TotalSource supplies the process-wide monotonic message counter.
type TotalSource interface {
	TotalMessages() uint64
}

// Snapshot is the derived, point-in-time view of the whole monitor.
type Snapshot struct {
	ActiveSessions int
	TotalSessions  int
	TotalMessages  uint64
	Uptime         time.Duration

	MessagesSent     uint64
	MessagesReceived uint64
	BytesSent        uint64
	BytesReceived    uint64
}

// Aggregator derives process-wide counters from the registry and the message
// store. Nothing is cached between calls except the monotonic counter held by
// the source itself.
type Aggregator struct {
	reg    *session.Registry
	totals TotalSource
	start  time.Time
}

// NewAggregator creates an aggregator anchored at the current time.
func NewAggregator(reg *session.Registry, totals TotalSource) *Aggregator {
	return &Aggregator{reg: reg, totals: totals, start: time.Now()}
}

// StartTime returns the process start anchor.
func (a *Aggregator) StartTime() time.Time {
	return a.start
}

// Snapshot recomputes the global view and refreshes the connected-sessions
// gauge as a side effect.
func (a *Aggregator) Snapshot() Snapshot {
	snap := Snapshot{
		TotalMessages: a.totals.TotalMessages(),
		Uptime:        time.Since(a.start),
	}

	for _, s := range a.reg.All() {
		snap.TotalSessions++
		if s.State() == session.StateConnected {
			snap.ActiveSessions++
		}
		c := s.CountersSnapshot()
		snap.MessagesSent += c.MessagesSent
		snap.MessagesReceived += c.MessagesReceived
		snap.BytesSent += c.BytesSent
		snap.BytesReceived += c.BytesReceived
	}

	ConnectedSessions.Set(float64(snap.ActiveSessions))
	return snap
}
