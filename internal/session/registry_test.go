package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateAssignsMonotonicIDs(t *testing.T) {
	reg := NewRegistry()
	s1 := reg.Create()
	s2 := reg.Create()
	assert.Equal(t, 1, s1.ID)
	assert.Equal(t, 2, s2.ID)
	assert.Equal(t, StateDisconnected, s1.State())
	assert.Equal(t, DefaultBaudRate, s1.BaudRate())
	assert.Equal(t, DefaultMaxReconnectAttempts, s1.View().MaxReconnectAttempts)
}

func TestRegistry_IDsNeverReused(t *testing.T) {
	reg := NewRegistry()
	s1 := reg.Create()
	require.NoError(t, reg.Remove(s1.ID))
	s2 := reg.Create()
	assert.Equal(t, 2, s2.ID) // id 1 is retired for the process lifetime
}

func TestRegistry_GetNotFound(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Get(42)
	assert.False(t, ok)
}

func TestRegistry_RemoveNotFound(t *testing.T) {
	reg := NewRegistry()
	err := reg.Remove(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_AllOrderedByID(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 5; i++ {
		reg.Create()
	}
	all := reg.All()
	require.Len(t, all, 5)
	for i, s := range all {
		assert.Equal(t, i+1, s.ID)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := reg.Create()
			s.SetPort("/dev/ttyUSB0")
			s.TryTransition(StateDisconnected, StateConnecting, "")
			reg.Get(s.ID)
			reg.All()
			reg.Remove(s.ID)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, reg.Len())
}

func TestSession_TryTransitionGuardsInFlight(t *testing.T) {
	s := New(1)
	assert.True(t, s.TryTransition(StateDisconnected, StateConnecting, ""))
	// A second connect while one is in flight must not pass the guard.
	assert.False(t, s.TryTransition(StateDisconnected, StateConnecting, ""))
	assert.Equal(t, StateConnecting, s.State())
}

func TestSession_SetStateReportsChange(t *testing.T) {
	s := New(1)
	changed := s.SetState(StateConnected, "")
	assert.True(t, changed)
	changed = s.SetState(StateConnected, "")
	assert.False(t, changed) // idempotent for repeated authoritative events
}

func TestSession_ReconnectAttemptsResetOnConnect(t *testing.T) {
	s := New(1)
	n, ok := s.NextReconnectAttempt()
	require.True(t, ok)
	assert.Equal(t, 1, n)
	n, ok = s.NextReconnectAttempt()
	require.True(t, ok)
	assert.Equal(t, 2, n)

	s.SetState(StateConnected, "")
	assert.Equal(t, 0, s.ReconnectAttempts())
}

func TestSession_NextReconnectAttemptCeiling(t *testing.T) {
	s := New(1)
	s.SetMaxReconnectAttempts(2)
	_, ok := s.NextReconnectAttempt()
	require.True(t, ok)
	_, ok = s.NextReconnectAttempt()
	require.True(t, ok)
	_, ok = s.NextReconnectAttempt()
	assert.False(t, ok) // ceiling reached, no further automatic attempts
	assert.Equal(t, 2, s.ReconnectAttempts())
}

func TestSession_AppendMessageEvictsOldestFirst(t *testing.T) {
	s := New(1)
	for i := 0; i < 4; i++ {
		evicted := s.AppendMessage(Message{ID: fmt.Sprintf("m%d", i), Text: fmt.Sprintf("line %d", i), Kind: KindReceived, Timestamp: time.Now()}, 3)
		if i < 3 {
			assert.Equal(t, 0, evicted)
		} else {
			assert.Equal(t, 1, evicted)
		}
	}
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "line 1", msgs[0].Text) // oldest entry was dropped
	assert.Equal(t, "line 3", msgs[2].Text)
}

func TestSession_ClearMessages(t *testing.T) {
	s := New(1)
	s.AppendMessage(Message{Text: "a", Kind: KindInfo}, 0)
	s.AppendMessage(Message{Text: "b", Kind: KindInfo}, 0)
	assert.Equal(t, 2, s.ClearMessages())
	assert.Equal(t, 0, s.MessageCount())
}

func TestSession_CancelReconnectStopsPendingTimer(t *testing.T) {
	s := New(1)
	fired := make(chan struct{}, 1)
	s.SetReconnectTimer(time.AfterFunc(20*time.Millisecond, func() { fired <- struct{}{} }))
	s.CancelReconnect()
	select {
	case <-fired:
		t.Fatal("cancelled reconnect timer still fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestSession_Counters(t *testing.T) {
	s := New(1)
	s.AddSent(5)
	s.AddReceived(11)
	s.AddReceived(3)
	c := s.CountersSnapshot()
	assert.Equal(t, uint64(1), c.MessagesSent)
	assert.Equal(t, uint64(5), c.BytesSent)
	assert.Equal(t, uint64(2), c.MessagesReceived)
	assert.Equal(t, uint64(14), c.BytesReceived)
	assert.False(t, c.LastActivity.IsZero())
}
