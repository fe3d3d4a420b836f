package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/session"
)

type fixedTotal uint64

func (f fixedTotal) TotalMessages() uint64 { return uint64(f) }

func TestSnapshot_DerivesFromRegistry(t *testing.T) {
	reg := session.NewRegistry()
	a := NewAggregator(reg, fixedTotal(42))

	connected := reg.Create()
	connected.SetState(session.StateConnected, "Connected")
	connected.AddSent(10)
	connected.AddSent(5)
	connected.AddReceived(100)

	idle := reg.Create()
	idle.AddReceived(7)

	snap := a.Snapshot()
	assert.Equal(t, 1, snap.ActiveSessions)
	assert.Equal(t, 2, snap.TotalSessions)
	assert.Equal(t, uint64(42), snap.TotalMessages)
	assert.Equal(t, uint64(2), snap.MessagesSent)
	assert.Equal(t, uint64(2), snap.MessagesReceived)
	assert.Equal(t, uint64(15), snap.BytesSent)
	assert.Equal(t, uint64(107), snap.BytesReceived)
	assert.GreaterOrEqual(t, snap.Uptime.Nanoseconds(), int64(0))
}

func TestSnapshot_EmptyRegistry(t *testing.T) {
	a := NewAggregator(session.NewRegistry(), fixedTotal(0))
	snap := a.Snapshot()
	assert.Zero(t, snap.ActiveSessions)
	assert.Zero(t, snap.TotalSessions)
	assert.Zero(t, snap.TotalMessages)
}

func TestSnapshot_RecomputesEachCall(t *testing.T) {
	reg := session.NewRegistry()
	a := NewAggregator(reg, fixedTotal(0))

	s := reg.Create()
	assert.Equal(t, 0, a.Snapshot().ActiveSessions)

	s.SetState(session.StateConnected, "Connected")
	assert.Equal(t, 1, a.Snapshot().ActiveSessions)

	s.SetState(session.StateDisconnected, "Disconnected")
	assert.Equal(t, 0, a.Snapshot().ActiveSessions)
}
