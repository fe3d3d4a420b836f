package sim

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/protocol"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/stats"
)

// Server exposes the fake bridge over the same HTTP surface as the real one:
// the REST API, the /ws push stream, and /metrics.
type Server struct {
	bridge *Bridge
	echo   *echo.Echo

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewServer builds the sim server. interval is the canned-chatter cadence.
func NewServer(interval time.Duration) *Server {
	s := &Server{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.bridge = NewBridge(s, interval)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/api/ports", s.handlePorts)
	e.POST("/api/sessions/:id/connect", s.handleConnect)
	e.POST("/api/sessions/:id/disconnect", s.handleDisconnect)
	e.POST("/api/sessions/:id/send", s.handleSend)
	e.GET("/api/sessions/:id/stats", s.handleSessionStats)
	e.GET("/api/stats", s.handleStats)
	e.GET("/api/export", s.handleExport)
	e.GET("/ws", s.handleStream)
	e.GET("/metrics", echo.WrapHandler(stats.MetricsHandler()))

	s.echo = e
	return s
}

// Handler exposes the server as an http.Handler (tests run it under httptest).
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	slog.Info("sim bridge listening", "addr", addr)
	return s.echo.Start(addr)
}

// Serve accepts connections on an existing listener. Lets callers bind first
// so the address is known before anything dials it.
func (s *Server) Serve(l net.Listener) error {
	slog.Info("sim bridge listening", "addr", l.Addr())
	s.echo.Listener = l
	return s.echo.Start("")
}

// Shutdown stops the chatter loops and closes the listener.
func (s *Server) Shutdown() error {
	s.bridge.Shutdown()
	s.mu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()
	return s.echo.Close()
}

// Emit broadcasts one push event to every connected stream client.
func (s *Server) Emit(event protocol.EventName, payload any) {
	data, err := protocol.MarshalEvent(event, payload)
	if err != nil {
		slog.Error("sim: marshal event failed", "event", event, "error", err)
		return
	}

	s.mu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			s.drop(c)
		}
	}
}

func (s *Server) drop(c *wsClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.conn.Close()
}

// --- REST handlers ---

func sessionID(c echo.Context) (int, error) {
	return strconv.Atoi(c.Param("id"))
}

func fail(c echo.Context, reason string) error {
	return c.JSON(http.StatusOK, protocol.Envelope{Success: false, Error: reason})
}

func (s *Server) handlePorts(c echo.Context) error {
	return c.JSON(http.StatusOK, protocol.PortsResponse{
		Envelope: protocol.Envelope{Success: true},
		Ports:    s.bridge.Ports(),
	})
}

func (s *Server) handleConnect(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return fail(c, "invalid session id")
	}
	var req protocol.ConnectRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, "invalid request body")
	}
	if req.BaudRate <= 0 {
		req.BaudRate = 115200
	}
	if err := s.bridge.Connect(id, req.Port, req.BaudRate); err != nil {
		return fail(c, err.Error())
	}
	return c.JSON(http.StatusOK, protocol.Envelope{Success: true})
}

func (s *Server) handleDisconnect(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return fail(c, "invalid session id")
	}
	if err := s.bridge.Disconnect(id); err != nil {
		return fail(c, err.Error())
	}
	return c.JSON(http.StatusOK, protocol.Envelope{Success: true})
}

func (s *Server) handleSend(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return fail(c, "invalid session id")
	}
	var req protocol.SendRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, "invalid request body")
	}
	if req.Message == "" {
		return fail(c, "empty message")
	}
	if err := s.bridge.Send(id, req.Message); err != nil {
		return fail(c, err.Error())
	}
	return c.JSON(http.StatusOK, protocol.Envelope{Success: true})
}

func (s *Server) handleSessionStats(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return fail(c, "invalid session id")
	}
	st, err := s.bridge.SessionStats(id)
	if err != nil {
		return fail(c, err.Error())
	}
	return c.JSON(http.StatusOK, protocol.SessionStatsResponse{
		Envelope: protocol.Envelope{Success: true},
		Stats:    st,
	})
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, protocol.StatsResponse{
		Envelope: protocol.Envelope{Success: true},
		Stats:    s.bridge.GlobalStats(),
	})
}

func (s *Server) handleExport(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("message_count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fail(c, "invalid message_count")
		}
		limit = n
	}
	return c.JSON(http.StatusOK, protocol.ExportResponse{
		Envelope: protocol.Envelope{Success: true},
		Data:     s.bridge.Export(limit),
	})
}

// handleStream upgrades to the push stream and greets with a hello event.
func (s *Server) handleStream(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := &wsClient{conn: conn}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	slog.Info("sim: stream client connected", "clients", n)

	hello, err := protocol.MarshalEvent(protocol.EventHello, protocol.HelloPayload{Status: "connected"})
	if err == nil {
		client.write(hello)
	}

	// The monitor never sends on the stream; read only to detect close.
	go func() {
		defer s.drop(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}
