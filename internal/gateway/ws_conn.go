package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/eleven-am/voice-scribe/internal/scribe"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024
	sendBufferSize = 128
)

var ErrConnectionClosed = errors.New("connection closed")

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type frame struct {
	messageType int
	data        []byte
}

// ClientConnection is one browser WebSocket. Text frames carry JSON
// messages and binary frames carry audio in both directions.
type ClientConnection struct {
	ws     *websocket.Conn
	userID string
	logger *slog.Logger
	send   chan frame
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewClientConnection(ws *websocket.Conn, userID string, logger *slog.Logger) *ClientConnection {
	return &ClientConnection{
		ws:     ws,
		userID: userID,
		logger: logger.With("user_id", userID),
		send:   make(chan frame, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *ClientConnection) UserID() string {
	return c.userID
}

func (c *ClientConnection) Done() <-chan struct{} {
	return c.done
}

func (c *ClientConnection) Send(msg *ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.enqueue(frame{messageType: websocket.TextMessage, data: data})
}

func (c *ClientConnection) SendBinary(data []byte) error {
	return c.enqueue(frame{messageType: websocket.BinaryMessage, data: data})
}

func (c *ClientConnection) enqueue(f frame) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrConnectionClosed
	}

	timer := time.NewTimer(writeWait)
	defer timer.Stop()
	select {
	case c.send <- f:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-timer.C:
		c.logger.Warn("send buffer full, dropping frame")
		return ErrConnectionClosed
	}
}

// Close stops the connection. The write pump flushes queued frames and
// closes the socket.
func (c *ClientConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return nil
}

// Playback output goes straight to the socket.

func (c *ClientConnection) PlaybackStarted(source scribe.Source, mimeType string) {
	_ = c.Send(&ServerMessage{Type: MsgPlaybackStart, Source: source, MIMEType: mimeType})
}

func (c *ClientConnection) PlaybackChunk(data []byte) error {
	return c.SendBinary(data)
}

func (c *ClientConnection) PlaybackEnded(source scribe.Source, interrupted bool) {
	_ = c.Send(&ServerMessage{Type: MsgPlaybackEnd, Source: source, Interrupted: interrupted})
}

func (c *ClientConnection) readPump(ctx context.Context, handle func(ctx context.Context, messageType int, data []byte)) {
	defer func() {
		c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}

		handle(ctx, messageType, data)
	}
}

func (c *ClientConnection) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(f.messageType, f.data); err != nil {
				c.logger.Error("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.flush()
			return
		}
	}
}

// flush writes frames already queued, then a close frame.
func (c *ClientConnection) flush() {
	for {
		select {
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(f.messageType, f.data); err != nil {
				return
			}
		default:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
