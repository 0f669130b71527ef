package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/songquiz/go/internal/events"
	"github.com/mcdev12/songquiz/go/internal/session"
	"github.com/mcdev12/songquiz/go/internal/timer"
)

// SessionFactory builds the session owned by one connection. sink delivers
// events back to that connection.
type SessionFactory func(loop *timer.Loop, sink events.Sink) *session.Machine

// SessionGauge tracks how many sessions are attached.
type SessionGauge interface {
	SessionOpened()
	SessionClosed()
}

// ConnectionManager manages WebSocket connections, one game session each
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	config  ConnectionConfig
	factory SessionFactory
	gauge   SessionGauge
	clock   clockwork.Clock
}

// Connection represents a WebSocket connection to a client and the session
// it drives
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	loop    *timer.Loop
	machine *session.Machine
	stop    context.CancelFunc

	sendMu sync.Mutex
	closed bool

	// Connection metadata
	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, factory SessionFactory, gauge SessionGauge) *ConnectionManager {
	if config.SendBuffer <= 0 {
		config.SendBuffer = 256
	}
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:  config,
		factory: factory,
		gauge:   gauge,
		clock:   clockwork.NewRealClock(),
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts its session
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		ConnectedAt: cm.clock.Now(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection.stop = cancel
	connection.loop = timer.NewLoop(cm.clock)
	connection.machine = cm.factory(connection.loop, events.SinkFunc(connection.deliver))

	cm.registerConnection(connection)

	go func() {
		if err := connection.loop.Run(ctx); err != nil {
			log.Error().Err(err).Str("connection_id", connection.ID).Msg("session loop stopped")
		}
	}()
	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	cm.connections[conn.ID] = conn
	total := len(cm.connections)
	cm.mu.Unlock()

	if cm.gauge != nil {
		cm.gauge.SessionOpened()
	}
	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", total).
		Msg("connection registered")
}

// unregisterConnection removes a connection and tears its session down. Safe
// to call more than once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	_, exists := cm.connections[conn.ID]
	delete(cm.connections, conn.ID)
	cm.mu.Unlock()
	if !exists {
		return
	}

	conn.sendMu.Lock()
	conn.closed = true
	close(conn.Send)
	conn.sendMu.Unlock()

	// Close runs on the loop; the loop stops once it has.
	conn.loop.Post(func() {
		conn.machine.Close()
		conn.stop()
	})

	if cm.gauge != nil {
		cm.gauge.SessionClosed()
	}
	log.Info().
		Str("connection_id", conn.ID).
		Dur("connected_for", cm.clock.Since(conn.ConnectedAt)).
		Msg("connection unregistered")
}

// CloseAll disconnects every client.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for _, c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		cm.unregisterConnection(c)
		c.Conn.Close()
	}
}

// ConnectionStats describes the active connections
type ConnectionStats struct {
	TotalConnections int              `json:"total_connections"`
	Connections      []ConnectionInfo `json:"connections"`
}

type ConnectionInfo struct {
	ID          string    `json:"id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		TotalConnections: len(cm.connections),
		Connections:      make([]ConnectionInfo, 0, len(cm.connections)),
	}
	for _, c := range cm.connections {
		stats.Connections = append(stats.Connections, ConnectionInfo{ID: c.ID, ConnectedAt: c.ConnectedAt})
	}
	return stats
}

// deliver is the session's event sink. It runs on the session loop.
func (c *Connection) deliver(ev events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("failed to marshal event")
		return
	}
	c.enqueue(data)
}

func (c *Connection) enqueue(data []byte) {
	c.sendMu.Lock()
	if c.closed {
		c.sendMu.Unlock()
		return
	}
	select {
	case c.Send <- data:
		c.sendMu.Unlock()
	default:
		c.sendMu.Unlock()
		// Connection is slow/dead, close it
		log.Warn().Str("connection_id", c.ID).Msg("connection send buffer full, closing connection")
		go func() {
			c.Manager.unregisterConnection(c)
			c.Conn.Close()
		}()
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads client commands and posts them into the session loop
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage decodes a command and runs it on the session loop
func (c *Connection) handleClientMessage(message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("malformed client message")
		c.loop.Post(func() {
			c.deliver(errorEvent(c.machine.Snapshot().GameID, c.loop.Now(), CodeBadCommand, "malformed command"))
		})
		return
	}

	c.loop.Post(func() {
		if ev, ok := Dispatch(c.machine, c.loop.Now(), cmd); ok {
			c.deliver(ev)
		}
	})
}
