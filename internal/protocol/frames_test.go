package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	t.Run("unmarshal valid session_status event", func(t *testing.T) {
		input := []byte(`{"event":"session_status","payload":{"session_id":2,"status":"error","message":"device unplugged"}}`)
		evt, err := ParseEvent(input)
		require.NoError(t, err)
		assert.Equal(t, EventSessionStatus, evt.Event)

		var p SessionStatusPayload
		require.NoError(t, json.Unmarshal(evt.Payload, &p))
		assert.Equal(t, 2, p.SessionID)
		assert.Equal(t, StatusError, p.Status)
		assert.Equal(t, "device unplugged", p.Detail)
	})

	t.Run("unmarshal valid message_received event", func(t *testing.T) {
		input := []byte(`{"event":"message_received","payload":{"session_id":1,"message":"Temperature: 24.5C","timestamp":1700000000.5},"seq":7}`)
		evt, err := ParseEvent(input)
		require.NoError(t, err)
		assert.Equal(t, EventMessageReceived, evt.Event)
		require.NotNil(t, evt.Seq)
		assert.Equal(t, 7, *evt.Seq)

		var p MessagePayload
		require.NoError(t, json.Unmarshal(evt.Payload, &p))
		assert.Equal(t, "Temperature: 24.5C", p.Text)
		assert.Equal(t, 1700000000.5, p.Timestamp)
	})

	t.Run("should return error for bad json", func(t *testing.T) {
		evt, err := ParseEvent([]byte(`{broken json!!!`))
		assert.Error(t, err)
		assert.Nil(t, evt)
		assert.Contains(t, err.Error(), "INVALID_JSON")
	})

	t.Run("should return error for missing event name", func(t *testing.T) {
		evt, err := ParseEvent([]byte(`{"payload":{"session_id":1}}`))
		assert.Error(t, err)
		assert.Nil(t, evt)
		assert.Contains(t, err.Error(), "MISSING_FIELD")
	})
}

func TestMarshalEvent(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		data, err := MarshalEvent(EventMessageSent, MessagePayload{SessionID: 3, Text: "AT+RST", Timestamp: 1700000001})
		require.NoError(t, err)

		evt, err := ParseEvent(data)
		require.NoError(t, err)
		assert.Equal(t, EventMessageSent, evt.Event)

		var p MessagePayload
		require.NoError(t, json.Unmarshal(evt.Payload, &p))
		assert.Equal(t, 3, p.SessionID)
		assert.Equal(t, "AT+RST", p.Text)
	})

	t.Run("empty event name rejected", func(t *testing.T) {
		data, err := MarshalEvent("", nil)
		assert.Error(t, err)
		assert.Nil(t, data)
		assert.Contains(t, err.Error(), "MISSING_FIELD")
	})

	t.Run("nil payload omitted", func(t *testing.T) {
		data, err := MarshalEvent(EventHello, nil)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "payload")
	})
}

func TestEpochConversion(t *testing.T) {
	now := time.Unix(1700000000, 250_000_000)
	sec := Epoch(now)
	back := FromEpoch(sec)
	assert.WithinDuration(t, now, back, time.Millisecond)

	assert.Equal(t, float64(0), Epoch(time.Time{}))
	assert.True(t, FromEpoch(0).IsZero())
}
