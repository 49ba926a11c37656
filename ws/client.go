package ws

import (
	"context"
	"encoding/json"
	"time"

	"nutriplan_backend/internal/logger"
	"nutriplan_backend/pkg/apperrors"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

type IncomingWSMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type OutgoingWSMessage struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type Client struct {
	UserID  string
	IsAdmin bool
	Conn    *websocket.Conn
	Send    chan []byte
	Ctx     context.Context

	Manager *WebSocketManager
}

func newClient(manager *WebSocketManager, conn *websocket.Conn, ctx context.Context, userID string, isAdmin bool) *Client {
	return &Client{
		UserID:  userID,
		IsAdmin: isAdmin,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		Ctx:     ctx,
		Manager: manager,
	}
}

func (c *Client) readPump() {
	defer func() {
		c.Manager.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msgBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.CtxWithError(c.Ctx, "WebSocket read error", err)
			}
			return
		}

		var msg IncomingWSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			c.reply(OutgoingWSMessage{Type: "error", Error: "invalid message format"})
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// менеджер закрыл канал
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.CtxWithError(c.Ctx, "WebSocket write error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Централизованный обработчик
func (c *Client) handleMessage(msg IncomingWSMessage) {
	switch msg.Action {
	case "ping":
		c.reply(OutgoingWSMessage{Type: "pong"})

	case "mark_read":
		var payload struct {
			SessionID string `json:"session_id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.SessionID == "" {
			c.reply(OutgoingWSMessage{Type: "error", Error: "session_id is required"})
			return
		}
		if c.Manager.chatService == nil {
			c.reply(OutgoingWSMessage{Type: "error", Error: "chat is unavailable"})
			return
		}

		result, err := c.Manager.chatService.MarkRead(c.Manager.db.WithContext(c.Ctx), c.UserID, c.IsAdmin, payload.SessionID)
		if err != nil {
			message := "internal error"
			if appErr, ok := apperrors.AsAppError(err); ok && appErr.HTTPCode < 500 {
				message = appErr.Message
			} else {
				logger.CtxWithError(c.Ctx, "WebSocket mark_read failed", err)
			}
			c.reply(OutgoingWSMessage{Type: "error", Error: message})
			return
		}
		c.reply(OutgoingWSMessage{Type: "chat.read", Data: result})

	default:
		c.reply(OutgoingWSMessage{Type: "error", Error: "unknown action: " + msg.Action})
	}
}

func (c *Client) reply(msg OutgoingWSMessage) {
	payload, ok := encodeEvent(msg)
	if !ok {
		return
	}

	c.Manager.mu.RLock()
	defer c.Manager.mu.RUnlock()
	if _, registered := c.Manager.clients[c.UserID][c]; registered {
		c.Manager.trySend(c, payload)
	}
}
