// Package hub implements the push channel that streams job events to
// browser tabs over websockets.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/textstream/textstream/pkg/event"
	"github.com/textstream/textstream/pkg/server/jobs"
	"github.com/textstream/textstream/pkg/version"
)

// EventConnected is the first frame sent on every connection.
const EventConnected = "Connected"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var (
	// ErrConnectionNotFound is returned by Notify for unknown or closed connections.
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrHubClosed is returned once Close has been called.
	ErrHubClosed = errors.New("hub closed")
)

// Frame is the JSON envelope of every message sent to a client.
type Frame struct {
	Event string `json:"event"`
	TabID string `json:"tabId,omitempty"`
	JobID string `json:"jobId,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// ConnectedData is the payload of the Connected frame.
type ConnectedData struct {
	ConnectionID string `json:"connectionId"`
	Version      string `json:"version"`
}

// Config configures a Hub.
type Config struct {
	// AllowedOrigins lists browser origins allowed to connect. Requests
	// without an Origin header are always accepted. "*" allows any origin.
	AllowedOrigins []string
	// SendBuffer is the number of frames queued per connection.
	SendBuffer int
}

// Hub tracks live connections and delivers job events to them.
type Hub struct {
	upgrader websocket.Upgrader
	bus      event.EventBus
	logger   zerolog.Logger
	buffer   int

	mu     sync.RWMutex
	conns  map[string]*conn
	closed bool
	wg     sync.WaitGroup
}

type conn struct {
	id        string
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Hub. bus may be nil; when set, EventConnectionClosed is
// published with the connection id whenever a connection goes away.
func New(cfg Config, bus event.EventBus) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	h := &Hub{
		bus:    bus,
		logger: log.With().Str("component", "hub").Logger(),
		buffer: cfg.SendBuffer,
		conns:  make(map[string]*conn),
	}
	origins := slices.Clone(cfg.AllowedOrigins)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
		},
	}
	return h
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("Websocket upgrade failed")
		return
	}

	c := &conn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, h.buffer),
		done: make(chan struct{}),
	}
	if err := h.register(c); err != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}

	h.logger.Info().Str("connection_id", c.id).Str("remote", r.RemoteAddr).Msg("Client connected")

	_ = h.enqueue(context.Background(), c, Frame{
		Event: EventConnected,
		Data:  ConnectedData{ConnectionID: c.id, Version: version.Version},
	})

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.writePump(c)
	}()
	h.readPump(c)
}

// Notify implements jobs.Notifier. It blocks while the connection's send
// buffer is full so that events for a job are never dropped or reordered.
func (h *Hub) Notify(ctx context.Context, session jobs.Session, ev jobs.Event) error {
	h.mu.RLock()
	c, ok := h.conns[session.ConnectionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, session.ConnectionID)
	}
	return h.enqueue(ctx, c, Frame{
		Event: string(ev.Name),
		TabID: session.TabID,
		JobID: ev.JobID,
		Data:  ev.Data,
	})
}

func (h *Hub) enqueue(ctx context.Context, c *conn, f Frame) error {
	msg, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, c.id)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close sends a going-away close frame to every client, disconnects them
// and waits for their writers to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		h.disconnect(c)
	}
	h.wg.Wait()
}

func (h *Hub) register(c *conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.conns[c.id] = c
	return nil
}

// disconnect tears the connection down once and reports it on the bus.
func (h *Hub) disconnect(c *conn) {
	c.closeOnce.Do(func() {
		h.mu.Lock()
		delete(h.conns, c.id)
		h.mu.Unlock()

		close(c.done)
		_ = c.ws.Close()

		h.logger.Info().Str("connection_id", c.id).Msg("Client disconnected")
		if h.bus != nil {
			h.bus.Publish(context.Background(), jobs.EventConnectionClosed, c.id)
		}
	})
}

// readPump drains client frames so control messages are processed. Clients
// have nothing to say on this channel; any data frame is ignored.
func (h *Hub) readPump(c *conn) {
	defer h.disconnect(c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("connection_id", c.id).Msg("Unexpected close")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.disconnect(c)
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug().Err(err).Str("connection_id", c.id).Msg("Write failed")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

var _ jobs.Notifier = (*Hub)(nil)
