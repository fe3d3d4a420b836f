package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/protocol"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/stats"
)

// Client wraps the bridge's request/response API. It is the only component
// that touches the network boundary; failures are surfaced to the caller and
// never retried here — retry policy belongs to the session controller.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client (tests, timeouts).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client for the bridge at baseURL, e.g.
// "http://127.0.0.1:5000".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ScanPorts fetches the bridge host's device endpoints.
func (c *Client) ScanPorts(ctx context.Context) ([]string, error) {
	var res protocol.PortsResponse
	if err := c.get(ctx, "scan", "/api/ports", &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, &TransportError{Op: "scan", Err: fmt.Errorf("bridge error: %s", res.Error)}
	}
	return res.Ports, nil
}

// Connect asks the bridge to open port at baudRate for the session.
func (c *Client) Connect(ctx context.Context, sessionID int, port string, baudRate int) error {
	var res protocol.Envelope
	body := protocol.ConnectRequest{Port: port, BaudRate: baudRate}
	path := fmt.Sprintf("/api/sessions/%d/connect", sessionID)
	if err := c.post(ctx, "connect", path, body, &res); err != nil {
		return err
	}
	if !res.Success {
		stats.IncTransportError("connect")
		return &ConnectError{Reason: orUnknown(res.Error)}
	}
	return nil
}

// Disconnect asks the bridge to close the session's port.
func (c *Client) Disconnect(ctx context.Context, sessionID int) error {
	var res protocol.Envelope
	path := fmt.Sprintf("/api/sessions/%d/disconnect", sessionID)
	if err := c.post(ctx, "disconnect", path, nil, &res); err != nil {
		return err
	}
	if !res.Success {
		stats.IncTransportError("disconnect")
		return &DisconnectError{Reason: orUnknown(res.Error)}
	}
	return nil
}

// Send asks the bridge to write one line to the session's port.
func (c *Client) Send(ctx context.Context, sessionID int, text string) error {
	var res protocol.Envelope
	path := fmt.Sprintf("/api/sessions/%d/send", sessionID)
	if err := c.post(ctx, "send", path, protocol.SendRequest{Message: text}, &res); err != nil {
		return err
	}
	if !res.Success {
		stats.IncTransportError("send")
		return &SendError{Reason: orUnknown(res.Error)}
	}
	return nil
}

// GlobalStats fetches the bridge-wide counters.
func (c *Client) GlobalStats(ctx context.Context) (protocol.GlobalStats, error) {
	var res protocol.StatsResponse
	if err := c.get(ctx, "stats", "/api/stats", &res); err != nil {
		return protocol.GlobalStats{}, err
	}
	if !res.Success {
		return protocol.GlobalStats{}, &TransportError{Op: "stats", Err: fmt.Errorf("bridge error: %s", res.Error)}
	}
	return res.Stats, nil
}

// SessionStats fetches one session's counters and authoritative status.
func (c *Client) SessionStats(ctx context.Context, sessionID int) (protocol.SessionStats, error) {
	var res protocol.SessionStatsResponse
	path := fmt.Sprintf("/api/sessions/%d/stats", sessionID)
	if err := c.get(ctx, "stats", path, &res); err != nil {
		return protocol.SessionStats{}, err
	}
	if !res.Success {
		return protocol.SessionStats{}, &TransportError{Op: "stats", Err: fmt.Errorf("bridge error: %s", res.Error)}
	}
	return res.Stats, nil
}

// Export fetches the bridge-side export snapshot, bounded to the most recent
// limit messages per session.
func (c *Client) Export(ctx context.Context, limit int) (protocol.ExportSnapshot, error) {
	var res protocol.ExportResponse
	path := fmt.Sprintf("/api/export?message_count=%d", limit)
	if err := c.get(ctx, "export", path, &res); err != nil {
		return protocol.ExportSnapshot{}, err
	}
	if !res.Success {
		return protocol.ExportSnapshot{}, &TransportError{Op: "export", Err: fmt.Errorf("bridge error: %s", res.Error)}
	}
	return res.Data, nil
}

// --- request plumbing ---

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return c.do(op, req, out)
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return &TransportError{Op: op, Err: err}
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		stats.IncTransportError(op)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	// The bridge uses the envelope's success flag for operation failures and
	// non-2xx codes only for transport-shaped problems; decode either way.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		stats.IncTransportError(op)
		return &TransportError{Op: op, Err: fmt.Errorf("decoding response (http %d): %w", resp.StatusCode, err)}
	}
	return nil
}

func orUnknown(reason string) string {
	if reason == "" {
		return "unknown error"
	}
	return reason
}
