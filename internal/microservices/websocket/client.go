package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"rheumactive/internal/microservices/tcp"
)

// Individual subscriber connection, one push loop per client

const ( // ping pong(2-way heartbeat) to keep connection alive
	WriteWait      = 10 * time.Second    // max time write a message to the peer
	PongWait       = 60 * time.Second    // max time to wait for pong from peer => no pong = no connection
	PingPeriod     = (PongWait * 9) / 10 // 90% of pong wait time => room for network jitter
	MaxMessageSize = 512                 // maximum message size allowed from peer
)

// AngleSource is polled by each client on its own ticker.
type AngleSource interface {
	Snapshot() tcp.Snapshot
}

type Client struct {
	ID       string          // unique client ID
	Conn     *websocket.Conn // WebSocket connection
	Source   AngleSource
	Interval time.Duration // poll interval of the push loop
	Logger   *slog.Logger

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

// constructor new client
func NewClient(conn *websocket.Conn, source AngleSource, interval time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		ID:       uuid.NewString(),
		Conn:     conn,
		Source:   source,
		Interval: interval,
		Logger:   logger,
		done:     make(chan struct{}),
	}
}

// Run blocks until the peer goes away or ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	c.Logger.Info("angle_subscriber_connected", "client_id", c.ID, "remote_addr", c.Conn.RemoteAddr().String())
	go c.ReadPump()
	c.WritePump(ctx)
	c.Close()
	c.Logger.Info("angle_subscriber_disconnected", "client_id", c.ID)
}

// ReadPump: drains control frames so pong handlers fire, closes on any read error
func (c *Client) ReadPump() {
	defer c.Close()
	c.Conn.SetReadLimit(MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(PongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(PongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Logger.Warn("angle_subscriber_read_error", "client_id", c.ID, "error", err.Error())
			}
			return
		}
	}
}

// WritePump: pushes the angle whenever the frame sequence moves, pings on PingPeriod
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	ping := time.NewTicker(PingPeriod)
	defer ping.Stop()

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-c.done:
			return
		case <-ping.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ticker.C:
			snap := c.Source.Snapshot()
			if snap.Empty() || snap.Seq == lastSeq {
				continue
			}
			lastSeq = snap.Seq
			payload, err := NewAngleMessage(snap).Encode()
			if err != nil {
				c.Logger.Error("angle_encode_failed", "client_id", c.ID, "error", err.Error())
				continue
			}
			if err := c.SendMessage(payload); err != nil {
				return
			}
		}
	}
}

// SendMessage writes one text frame under the write lock.
func (c *Client) SendMessage(message []byte) error {
	return c.write(websocket.TextMessage, message)
}

func (c *Client) write(messageType int, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
	if err := c.Conn.WriteMessage(messageType, payload); err != nil {
		if !errors.Is(err, websocket.ErrCloseSent) {
			c.Logger.Debug("angle_subscriber_write_failed", "client_id", c.ID, "error", err.Error())
		}
		return err
	}
	return nil
}

// Close is safe to call from both pumps.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.Conn.Close()
	})
	return err
}
