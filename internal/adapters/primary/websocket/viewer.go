package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lorrc/donor-display-backend/internal/core/domain"
	apperrors "github.com/lorrc/donor-display-backend/internal/core/errors"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	DefaultPongWait       = 60 * time.Second
	DefaultSendBufferSize = 256
)

// ViewerConfig tunes a viewer's liveness checks and outbound buffer.
type ViewerConfig struct {
	// PingInterval must be less than PongWait. Zero derives it from PongWait.
	PingInterval   time.Duration
	PongWait       time.Duration
	SendBufferSize int
}

func (c ViewerConfig) withDefaults() ViewerConfig {
	if c.PongWait <= 0 {
		c.PongWait = DefaultPongWait
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = (c.PongWait * 9) / 10
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = DefaultSendBufferSize
	}
	return c
}

// Viewer is a display client connected over a websocket.
// Outbound messages go through a bounded buffer drained by WritePump.
type Viewer struct {
	id       string
	conn     *websocket.Conn
	registry *Registry
	cfg      ViewerConfig

	// Buffered channel of outbound messages.
	send chan []byte

	// done is closed once the viewer is closed
	done      chan struct{}
	closeOnce sync.Once

	logger *slog.Logger
}

var _ Conn = (*Viewer)(nil)

// NewViewer wraps an upgraded websocket connection
func NewViewer(conn *websocket.Conn, registry *Registry, cfg ViewerConfig, logger *slog.Logger) *Viewer {
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	return &Viewer{
		id:       id,
		conn:     conn,
		registry: registry,
		cfg:      cfg,
		send:     make(chan []byte, cfg.SendBufferSize),
		done:     make(chan struct{}),
		logger:   logger.With("viewer_id", id),
	}
}

// ID returns the viewer's connection id
func (v *Viewer) ID() string {
	return v.id
}

// Send queues msg for delivery. It never blocks.
func (v *Viewer) Send(msg []byte) error {
	select {
	case <-v.done:
		return apperrors.ErrViewerClosed
	default:
	}

	select {
	case v.send <- msg:
		return nil
	default:
		return apperrors.ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and closes the socket.
// It is safe to call more than once.
func (v *Viewer) Close() error {
	v.closeOnce.Do(func() {
		close(v.done)
	})
	return nil
}

// ReadPump reads client frames until the connection fails, then removes the
// viewer from the registry. This method runs in its own goroutine.
func (v *Viewer) ReadPump() {
	defer func() {
		v.registry.Unregister(v)
		_ = v.Close()
		_ = v.conn.Close()
	}()

	v.conn.SetReadLimit(maxMessageSize)
	if err := v.conn.SetReadDeadline(time.Now().Add(v.cfg.PongWait)); err != nil {
		v.logger.Error("failed to set read deadline", "error", err)
		return
	}

	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(v.cfg.PongWait))
	})

	for {
		_, message, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				v.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		// Any client frame counts as a sign of life.
		if err := v.conn.SetReadDeadline(time.Now().Add(v.cfg.PongWait)); err != nil {
			v.logger.Error("failed to extend read deadline", "error", err)
			return
		}
		v.handleIncomingMessage(message)
	}
}

// WritePump drains the send buffer to the websocket connection and keeps
// the peer alive with pings. This method runs in its own goroutine.
func (v *Viewer) WritePump() {
	ticker := time.NewTicker(v.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = v.conn.Close()
	}()

	for {
		select {
		case msg := <-v.send:
			if err := v.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				v.logger.Error("failed to set write deadline", "error", err)
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				v.logger.Debug("failed to write message", "error", err)
				v.registry.Unregister(v)
				_ = v.Close()
				return
			}

		case <-ticker.C:
			if err := v.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				v.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				v.logger.Debug("failed to send ping", "error", err)
				return
			}

		case <-v.done:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
				v.logger.Debug("failed to send close message", "error", err)
			}
			return
		}
	}
}

// clientMessage is the structure for messages sent from the client.
type clientMessage struct {
	Type string `json:"type"`
}

// handleIncomingMessage answers application-level keep-alives. Other client
// messages are ignored.
func (v *Viewer) handleIncomingMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		v.logger.Debug("ignoring non-JSON client message", "error", err)
		return
	}

	switch msg.Type {
	case "PING":
		v.sendPong()
	default:
		v.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (v *Viewer) sendPong() {
	pong, err := json.Marshal(domain.Event{Type: domain.EventPong})
	if err != nil {
		return
	}
	// dropped when the buffer is full
	_ = v.Send(pong)
}
