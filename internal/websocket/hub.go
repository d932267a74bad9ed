package websocket

import (
	"sync"
	"time"

	"telechat/pkg/logger"
)

// Hub maintains the set of active clients and routes events to them.
// Registry state is process-local; every user appears offline after a
// restart until their client reconnects.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Active connection per user. At most one handle per user; a
	// second connection replaces the tracking of the first without
	// closing it.
	userClients map[string]*Client

	// Clients that joined a chat room
	roomClients map[string]map[*Client]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Broadcast events to all clients
	Broadcast chan *Event

	// Broadcast events to a chat room
	RoomBroadcast chan *RoomEvent

	// Broadcast events to a single user
	UserBroadcast chan *UserEvent

	// OnPresenceChange is invoked outside the registry lock when a
	// user's connection state flips. Used to persist presence.
	OnPresenceChange func(userID string, online bool)

	mu sync.RWMutex
}

// RoomEvent represents an event addressed to a chat room
type RoomEvent struct {
	ChatID  string
	Event   *Event
	Exclude string // User ID to exclude from broadcast
}

// UserEvent represents an event addressed to a single user
type UserEvent struct {
	UserID string
	Event  *Event
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		userClients:   make(map[string]*Client),
		roomClients:   make(map[string]map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		Broadcast:     make(chan *Event),
		RoomBroadcast: make(chan *RoomEvent),
		UserBroadcast: make(chan *UserEvent),
	}
}

// Run starts the hub event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.Broadcast:
			h.broadcastToAll(event, "")

		case roomEvent := <-h.RoomBroadcast:
			h.broadcastToRoom(roomEvent)

		case userEvent := <-h.UserBroadcast:
			h.broadcastToUser(userEvent)
		}
	}
}

// registerClient registers a new client and announces presence
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true

	// A newer connection for the same user evicts tracking of the
	// prior one. The prior connection is not closed here; its own
	// teardown is a no-op against the registry.
	replaced := h.userClients[client.UserID] != nil
	h.userClients[client.UserID] = client
	total := len(h.clients)
	h.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"user_id":       client.UserID,
		"total_clients": total,
		"replaced":      replaced,
	}).Info("Client registered")

	h.broadcastToAll(NewEvent(EventUserOnline, map[string]interface{}{
		"user_id": client.UserID,
	}), client.UserID)

	if h.OnPresenceChange != nil && !replaced {
		h.OnPresenceChange(client.UserID, true)
	}
}

// unregisterClient tears a client down. The user mapping is removed
// only when it still points at this client, so a late disconnect from
// a replaced connection cannot evict a newer one.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}

	delete(h.clients, client)
	h.removeClientFromRoom(client)
	close(client.Send)

	wasCurrent := h.userClients[client.UserID] == client
	if wasCurrent {
		delete(h.userClients, client.UserID)
	}
	total := len(h.clients)
	h.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"user_id":       client.UserID,
		"total_clients": total,
	}).Info("Client unregistered")

	if wasCurrent {
		h.broadcastToAll(NewEvent(EventUserOffline, map[string]interface{}{
			"user_id": client.UserID,
		}), client.UserID)

		if h.OnPresenceChange != nil {
			h.OnPresenceChange(client.UserID, false)
		}
	}
}

// JoinRoom moves a client into a chat room, leaving any previous one
func (h *Hub) JoinRoom(client *Client, chatID string) {
	h.mu.Lock()
	h.removeClientFromRoom(client)

	if h.roomClients[chatID] == nil {
		h.roomClients[chatID] = make(map[*Client]bool)
	}
	h.roomClients[chatID][client] = true
	client.SetRoomID(chatID)
	size := len(h.roomClients[chatID])
	h.mu.Unlock()

	logger.LogChatEvent("room_joined", chatID, client.UserID, map[string]interface{}{
		"room_size": size,
	})
}

// LeaveRoom removes a client from its current room
func (h *Hub) LeaveRoom(client *Client) {
	h.mu.Lock()
	h.removeClientFromRoom(client)
	h.mu.Unlock()
}

// removeClientFromRoom removes a client from its room. Caller holds the lock.
func (h *Hub) removeClientFromRoom(client *Client) {
	roomID := client.GetRoomID()
	if roomID == "" {
		return
	}

	if room, exists := h.roomClients[roomID]; exists {
		delete(room, client)
		if len(room) == 0 {
			delete(h.roomClients, roomID)
		}
	}

	client.SetRoomID("")

	logger.LogChatEvent("room_left", roomID, client.UserID, nil)
}

// broadcastToAll sends an event to every connected client except one user
func (h *Hub) broadcastToAll(event *Event, excludeUserID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := event.ToJSON()
	if err != nil {
		logger.WithError(err).Error("Failed to marshal broadcast event")
		return
	}

	for client := range h.clients {
		if excludeUserID != "" && client.UserID == excludeUserID {
			continue
		}
		select {
		case client.Send <- data:
		default:
			// Slow consumer; delivery is at-most-once, drop it
		}
	}
}

// broadcastToRoom sends an event to all clients that joined a room
func (h *Hub) broadcastToRoom(roomEvent *RoomEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.roomClients[roomEvent.ChatID]
	if !exists {
		return
	}

	data, err := roomEvent.Event.ToJSON()
	if err != nil {
		logger.WithError(err).Error("Failed to marshal room event")
		return
	}

	for client := range room {
		if roomEvent.Exclude != "" && client.UserID == roomEvent.Exclude {
			continue
		}
		select {
		case client.Send <- data:
		default:
		}
	}
}

// broadcastToUser sends an event to a single user. A user with no live
// connection is a no-op, not an error.
func (h *Hub) broadcastToUser(userEvent *UserEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.userClients[userEvent.UserID]
	if !exists {
		return
	}

	data, err := userEvent.Event.ToJSON()
	if err != nil {
		logger.WithError(err).Error("Failed to marshal user event")
		return
	}

	select {
	case client.Send <- data:
	default:
	}
}

// Public methods for broadcasting

// BroadcastToRoom broadcasts an event to a chat room
func (h *Hub) BroadcastToRoom(chatID string, event *Event) {
	event.SetChatID(chatID)
	h.RoomBroadcast <- &RoomEvent{ChatID: chatID, Event: event}
}

// BroadcastToRoomExcept broadcasts an event to a chat room except one user
func (h *Hub) BroadcastToRoomExcept(chatID, excludeUserID string, event *Event) {
	event.SetChatID(chatID)
	h.RoomBroadcast <- &RoomEvent{ChatID: chatID, Event: event, Exclude: excludeUserID}
}

// BroadcastToUser broadcasts an event to a single user
func (h *Hub) BroadcastToUser(userID string, event *Event) {
	h.UserBroadcast <- &UserEvent{UserID: userID, Event: event}
}

// BroadcastToAll broadcasts an event to every connected client
func (h *Hub) BroadcastToAll(event *Event) {
	h.Broadcast <- event
}

// BroadcastTyping broadcasts a typing indicator to a chat room
func (h *Hub) BroadcastTyping(chatID, userID string, isTyping bool, at time.Time) {
	event := NewEvent(EventUserTyping, map[string]interface{}{
		"user_id":   userID,
		"is_typing": isTyping,
		"at":        at,
	})
	event.SetFrom(userID)
	h.BroadcastToRoomExcept(chatID, userID, event)
}

// Lookup returns the active client for a user, if any
func (h *Hub) Lookup(userID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.userClients[userID]
	return client, exists
}

// IsUserOnline reports whether a user has a live connection
func (h *Hub) IsUserOnline(userID string) bool {
	_, exists := h.Lookup(userID)
	return exists
}

// OnlineUsers returns the ids of all connected users
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

// RoomUsers returns the ids of users that joined a chat room
func (h *Hub) RoomUsers(chatID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.roomClients[chatID]
	if !exists {
		return []string{}
	}

	users := make([]string, 0, len(room))
	for client := range room {
		users = append(users, client.UserID)
	}
	return users
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
