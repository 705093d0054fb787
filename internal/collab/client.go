package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
	sendBuffer = 256
	// frameBacklog is the queue depth past which timeupdates are skipped,
	// keeping the rest of the buffer for state changes.
	frameBacklog = sendBuffer / 2
)

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	logger *slog.Logger

	mu      sync.Mutex
	send    chan []byte
	closed  bool
	skipped int // timeupdates skipped since the last one queued

	ViewerID    string
	DisplayName string
	TrackID     string
	ClientID    string
	// CanControl is set for viewers holding a control token for the track.
	CanControl bool
}

func NewClient(hub *Hub, conn *websocket.Conn, viewerID, displayName, trackID, clientID string, canControl bool) *Client {
	logger := slog.Default()
	if hub != nil {
		logger = hub.logger
	}
	return &Client{
		hub:         hub,
		conn:        conn,
		logger:      logger.With("viewer", viewerID, "track", trackID),
		send:        make(chan []byte, sendBuffer),
		ViewerID:    viewerID,
		DisplayName: displayName,
		TrackID:     trackID,
		ClientID:    clientID,
		CanControl:  canControl,
	}
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			c.logger.Debug("read error", "error", err)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("invalid message", "error", err)
			continue
		}

		msg.ViewerID = c.ViewerID
		msg.ClientID = c.ClientID
		msg.TrackID = c.TrackID

		c.hub.handleMessage(c, &msg)
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.logger.Debug("write error", "error", err)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Send queues msg without blocking. Messages to a full or closed client are
// dropped.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("marshal message", "error", err)
		return
	}
	c.enqueue(data)
}

func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("client send buffer full, dropping message")
	}
}

// enqueueFrame queues a timeupdate unless frameBacklog messages are already
// waiting. Each timeupdate supersedes the last, so a skipped one loses nothing
// the next does not carry.
func (c *Client) enqueueFrame(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if len(c.send) >= frameBacklog {
		c.skipped++
		return
	}
	if c.skipped > 0 {
		c.logger.Debug("client caught up", "skipped_frames", c.skipped)
		c.skipped = 0
	}
	c.send <- data
}

// close ends the write pump once queued messages are flushed.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
