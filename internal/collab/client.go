package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/siteshift/siteshift/internal/errors"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
)

// Client is one websocket watcher of one document.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	UserID      string
	DisplayName string
	DocumentID  string
	ClientID    string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, displayName, documentID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		UserID:      userID,
		DisplayName: displayName,
		DocumentID:  documentID,
		ClientID:    clientID,
	}
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
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
			slog.Debug("read error", "error", err, "user", c.UserID)
			return
		}

		msg, err := c.decodeFrame(data)
		if err != nil {
			slog.Warn("rejected frame", "error", err, "user", c.UserID, "document", c.DocumentID)
			c.SendError(errors.GetCode(err), errors.UserMessage(err))
			continue
		}

		c.hub.handleMessage(ctx, c, msg)
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
				slog.Debug("write error", "error", err, "user", c.UserID)
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

func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "user", c.UserID)
	}
}

// SendError reports a failure to this client only.
func (c *Client) SendError(code errors.Code, message string) {
	payload, _ := json.Marshal(ErrorPayload{Code: string(code), Message: message})
	c.Send(&Message{Type: TypeError, DocumentID: c.DocumentID, Payload: payload})
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// decodeFrame parses one inbound frame and stamps it with this watcher's
// identity. A frame may only address the document the socket was opened on.
func (c *Client) decodeFrame(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid frame")
	}
	if msg.Type == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "frame has no type")
	}
	if msg.DocumentID != "" && msg.DocumentID != c.DocumentID {
		return nil, errors.New(errors.ErrCodeInvalidInput, "frame addressed to document %s on a %s channel", msg.DocumentID, c.DocumentID)
	}
	msg.UserID = c.UserID
	msg.ClientID = c.ClientID
	msg.DocumentID = c.DocumentID
	return &msg, nil
}
