package websocket

import (
	"fmt"
	"sync"
	"time"

	"telechat/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Buffer size for client send channel
	sendBufferSize = 256

	// Messages allowed per client per minute
	messageRateLimit = 120
)

var newline = []byte{'\n'}

// Client represents one WebSocket connection bound to a user
type Client struct {
	Conn *websocket.Conn
	Hub  *Hub

	// Buffered channel of outbound messages
	Send chan []byte

	UserID   string
	Username string
	roomID   string

	ConnectedAt time.Time
	LastPong    time.Time

	// Rate limiting
	messageCount int
	windowStart  time.Time

	mu sync.RWMutex
}

// NewClient creates a client for an upgraded connection
func NewClient(conn *websocket.Conn, hub *Hub, userID, username string) *Client {
	now := time.Now()
	return &Client{
		Conn:        conn,
		Hub:         hub,
		Send:        make(chan []byte, sendBufferSize),
		UserID:      userID,
		Username:    username,
		ConnectedAt: now,
		LastPong:    now,
	}
}

// ReadPump pumps events from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
		c.logDisconnection()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.LastPong = time.Now()
		c.mu.Unlock()
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	logger.LogUserAction(c.UserID, "websocket_connected", nil)

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithFields(map[string]interface{}{
					"user_id": c.UserID,
					"error":   err.Error(),
				}).Error("WebSocket read error")
			}
			break
		}

		if !c.checkRateLimit() {
			c.sendError("Rate limit exceeded")
			continue
		}

		event, err := ParseEvent(data)
		if err != nil {
			c.sendError(fmt.Sprintf("Invalid event format: %v", err))
			continue
		}

		event.SetFrom(c.UserID)

		if err := event.Validate(); err != nil {
			c.sendError(err.Error())
			continue
		}

		c.handleEvent(event)
	}
}

// WritePump pumps events from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same frame
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleEvent re-broadcasts a client-originated event to its audience.
// Persistence happens through the REST layer; the socket only mirrors.
func (c *Client) handleEvent(event *Event) {
	switch event.Name {
	case EventJoinChat:
		c.Hub.JoinRoom(c, event.ChatID)

	case EventLeaveChat:
		c.Hub.LeaveRoom(c)

	case EventSendMessage:
		out := NewEvent(EventNewMessage, event.Data)
		out.SetFrom(c.UserID)
		c.Hub.BroadcastToRoomExcept(event.ChatID, c.UserID, out)

		ack := NewEvent(EventMessageSent, event.Data)
		ack.SetChatID(event.ChatID)
		c.SendEvent(ack)

	case EventTyping:
		c.Hub.BroadcastTyping(event.ChatID, c.UserID, event.BoolData("is_typing"), event.Timestamp)

	case EventMessageRead:
		out := NewEvent(EventMessageReadReceipt, event.Data)
		out.SetFrom(c.UserID)
		c.Hub.BroadcastToRoomExcept(event.ChatID, c.UserID, out)

	case EventMessageReaction:
		out := NewEvent(EventReactionUpdate, event.Data)
		out.SetFrom(c.UserID)
		c.Hub.BroadcastToRoomExcept(event.ChatID, c.UserID, out)

	case EventMessagePin:
		out := NewEvent(EventPinUpdate, event.Data)
		out.SetFrom(c.UserID)
		c.Hub.BroadcastToRoomExcept(event.ChatID, c.UserID, out)

	case EventMessageForward:
		c.handleForward(event)

	case EventStatusUpdate:
		out := NewEvent(EventUserStatusUpdate, map[string]interface{}{
			"user_id": c.UserID,
			"status":  event.StringData("status"),
		})
		c.Hub.Broadcast <- out

	case EventThemeUpdate:
		out := NewEvent(EventChatThemeUpdate, map[string]interface{}{
			"theme": event.StringData("theme"),
		})
		out.SetFrom(c.UserID)
		c.Hub.BroadcastToRoomExcept(event.ChatID, c.UserID, out)

	default:
		c.sendError(fmt.Sprintf("Unknown event: %s", event.Name))
	}
}

// handleForward mirrors a forward to each target chat room
func (c *Client) handleForward(event *Event) {
	targets, _ := event.Data["targets"].([]interface{})
	for _, t := range targets {
		chatID, ok := t.(string)
		if !ok || chatID == "" {
			continue
		}
		out := NewEvent(EventNewMessage, event.Data)
		out.SetFrom(c.UserID)
		c.Hub.BroadcastToRoomExcept(chatID, c.UserID, out)
	}
}

// checkRateLimit enforces the per-minute inbound event budget
func (c *Client) checkRateLimit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.windowStart) > time.Minute {
		c.windowStart = now
		c.messageCount = 0
	}

	c.messageCount++
	return c.messageCount <= messageRateLimit
}

// SendEvent queues an event for delivery to this client. Delivery is
// at-most-once; a full buffer drops the event.
func (c *Client) SendEvent(event *Event) error {
	data, err := event.ToJSON()
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// sendError sends an error event to the client
func (c *Client) sendError(message string) {
	c.SendEvent(NewEvent(EventError, map[string]interface{}{
		"message": message,
	}))
}

// SetRoomID sets the room the client has joined
func (c *Client) SetRoomID(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// GetRoomID returns the room the client has joined
func (c *Client) GetRoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

// logDisconnection logs client disconnection
func (c *Client) logDisconnection() {
	logger.LogUserAction(c.UserID, "websocket_disconnected", map[string]interface{}{
		"duration_seconds": time.Since(c.ConnectedAt).Seconds(),
		"message_count":    c.messageCount,
	})
}
