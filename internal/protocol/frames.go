package protocol

import (
	"encoding/json"
	"fmt"
)

// FrameError carries structured context for observability.
type FrameError struct {
	Code    string // e.g. "INVALID_JSON", "MISSING_FIELD", "UNKNOWN_EVENT"
	Field   string // which field was the problem, if applicable
	Message string // human-readable detail
}

func (e *FrameError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("frame error [%s]: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("frame error [%s]: %s", e.Code, e.Message)
}

// EventName identifies a push event on the bridge stream.
type EventName string

const (
	// EventHello is sent by the bridge once per stream open.
	EventHello EventName = "hello"
	// EventSessionStatus reports an authoritative session state change.
	EventSessionStatus EventName = "session_status"
	// EventMessageReceived carries one line of device traffic.
	EventMessageReceived EventName = "message_received"
	// EventMessageSent acknowledges a message the bridge wrote to the device.
	EventMessageSent EventName = "message_sent"
)

// EventFrame is the envelope for every push event the bridge emits.
// Events are ordered per session as sent by the bridge; Seq is advisory.
type EventFrame struct {
	Event   EventName       `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Seq     *int            `json:"seq,omitempty"`
}

// ParseEvent decodes and validates a single event frame.
func ParseEvent(data []byte) (*EventFrame, error) {
	var evt EventFrame
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, &FrameError{Code: "INVALID_JSON", Message: fmt.Sprintf("invalid event frame JSON: %v", err)}
	}
	if evt.Event == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "event", Message: "event frame missing required \"event\" field"}
	}
	return &evt, nil
}

// MarshalEvent builds a JSON-encoded event frame.
func MarshalEvent(event EventName, payload any) ([]byte, error) {
	if event == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "event", Message: "event frame missing required \"event\" field"}
	}

	frame := EventFrame{Event: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, &FrameError{Code: "INVALID_JSON", Message: fmt.Sprintf("failed to marshal event payload: %v", err)}
		}
		frame.Payload = raw
	}

	return json.Marshal(frame)
}
