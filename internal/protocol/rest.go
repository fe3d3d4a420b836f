package protocol

// REST payloads for the bridge's request/response API. Every response wraps
// its body in a success flag plus optional error detail, mirroring the
// bridge's JSON envelope.

// Envelope is the common part of every REST response.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ConnectRequest asks the bridge to open a serial port for a session.
type ConnectRequest struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate"`
}

// SendRequest asks the bridge to write one line to a session's port.
type SendRequest struct {
	Message string `json:"message"`
}

// PortsResponse lists the device endpoints discoverable on the bridge host.
type PortsResponse struct {
	Envelope
	Ports []string `json:"ports"`
}

// GlobalStats is the bridge-wide counter set.
type GlobalStats struct {
	ActiveSessions   int     `json:"active_sessions"`
	TotalSessions    int     `json:"total_sessions"`
	TotalMessages    uint64  `json:"total_messages_processed"`
	StartTime        float64 `json:"start_time"`
	UptimeSeconds    float64 `json:"uptime"`
	MessagesSent     uint64  `json:"total_messages_sent"`
	MessagesReceived uint64  `json:"total_messages_received"`
	BytesSent        uint64  `json:"total_bytes_sent"`
	BytesReceived    uint64  `json:"total_bytes_received"`
}

// SessionStats is the per-session counter set. Status doubles as the
// reconciliation source when local and bridge state disagree.
type SessionStats struct {
	Status           SessionStatus `json:"status"`
	Port             string        `json:"port"`
	BaudRate         int           `json:"baud_rate"`
	MessagesSent     uint64        `json:"messages_sent"`
	MessagesReceived uint64        `json:"messages_received"`
	BytesSent        uint64        `json:"bytes_sent"`
	BytesReceived    uint64        `json:"bytes_received"`
	MessageCount     int           `json:"message_count"`
	LastActivity     float64       `json:"last_activity,omitempty"`
	UptimeSeconds    float64       `json:"uptime,omitempty"`
}

// StatsResponse wraps GlobalStats.
type StatsResponse struct {
	Envelope
	Stats GlobalStats `json:"stats"`
}

// SessionStatsResponse wraps SessionStats.
type SessionStatsResponse struct {
	Envelope
	Stats SessionStats `json:"stats"`
}

// ExportedMessage is one log line inside an export snapshot.
type ExportedMessage struct {
	Timestamp float64 `json:"timestamp"`
	SessionID int     `json:"session_id"`
	Text      string  `json:"message"`
	Kind      string  `json:"message_type"`
}

// SessionExport is one session's record inside an export snapshot.
type SessionExport struct {
	SessionID int               `json:"session_id"`
	Port      string            `json:"port"`
	BaudRate  int               `json:"baud_rate"`
	Stats     SessionStats      `json:"stats"`
	Messages  []ExportedMessage `json:"messages"`
}

// ExportSnapshot is the offline-inspection artifact: one record per session
// plus the global counters and the port list at export time.
type ExportSnapshot struct {
	Timestamp      float64                  `json:"timestamp"`
	GlobalStats    GlobalStats              `json:"global_stats"`
	AvailablePorts []string                 `json:"available_ports"`
	Sessions       map[string]SessionExport `json:"sessions"`
}

// ExportResponse wraps an ExportSnapshot.
type ExportResponse struct {
	Envelope
	Data ExportSnapshot `json:"data"`
}
