package msglog

import (
	"strconv"
	"time"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/protocol"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/session"
)

// Export builds the offline-inspection artifact from local state: one record
// per session with its configuration, counters and the most recent limit
// messages (limit <= 0 means the whole retained log), plus the supplied
// global stats and port list.
func (st *Store) Export(global protocol.GlobalStats, ports []string, limit int) protocol.ExportSnapshot {
	snap := protocol.ExportSnapshot{
		Timestamp:      protocol.Epoch(time.Now()),
		GlobalStats:    global,
		AvailablePorts: ports,
		Sessions:       make(map[string]protocol.SessionExport),
	}

	for _, s := range st.reg.All() {
		view := s.View()
		msgs := s.Messages()
		if limit > 0 && len(msgs) > limit {
			msgs = msgs[len(msgs)-limit:]
		}

		exported := make([]protocol.ExportedMessage, len(msgs))
		for i, m := range msgs {
			exported[i] = protocol.ExportedMessage{
				Timestamp: protocol.Epoch(m.Timestamp),
				SessionID: s.ID,
				Text:      m.Text,
				Kind:      string(m.Kind),
			}
		}

		snap.Sessions[strconv.Itoa(s.ID)] = protocol.SessionExport{
			SessionID: s.ID,
			Port:      view.Port,
			BaudRate:  view.BaudRate,
			Stats: protocol.SessionStats{
				Status:           localStatus(view.State),
				Port:             view.Port,
				BaudRate:         view.BaudRate,
				MessagesSent:     view.Counters.MessagesSent,
				MessagesReceived: view.Counters.MessagesReceived,
				BytesSent:        view.Counters.BytesSent,
				BytesReceived:    view.Counters.BytesReceived,
				MessageCount:     view.MessageCount,
				LastActivity:     protocol.Epoch(view.Counters.LastActivity),
			},
			Messages: exported,
		}
	}
	return snap
}

func localStatus(state session.ConnState) protocol.SessionStatus {
	switch state {
	case session.StateConnected:
		return protocol.StatusConnected
	default:
		return protocol.StatusDisconnected
	}
}
