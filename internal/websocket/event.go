package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventName identifies a realtime event kind
type EventName string

// Client-originated events
const (
	EventJoinChat        EventName = "joinChat"
	EventLeaveChat       EventName = "leaveChat"
	EventSendMessage     EventName = "sendMessage"
	EventTyping          EventName = "typing"
	EventMessageRead     EventName = "messageRead"
	EventMessageReaction EventName = "messageReaction"
	EventMessagePin      EventName = "messagePin"
	EventMessageForward  EventName = "messageForward"
	EventStatusUpdate    EventName = "statusUpdate"
	EventThemeUpdate     EventName = "themeUpdate"
)

// Server-originated events
const (
	EventNewMessage         EventName = "newMessage"
	EventMessageSent        EventName = "messageSent"
	EventUserTyping         EventName = "userTyping"
	EventMessageReadReceipt EventName = "messageReadReceipt"
	EventReactionUpdate     EventName = "messageReactionUpdate"
	EventPinUpdate          EventName = "messagePinUpdate"
	EventMessageDeleted     EventName = "messageDeleted"
	EventMessageEdited      EventName = "messageEdited"
	EventUserOnline         EventName = "userOnline"
	EventUserOffline        EventName = "userOffline"
	EventUserStatusUpdate   EventName = "userStatusUpdate"
	EventChatThemeUpdate    EventName = "chatThemeUpdate"
	EventGroupUpdated       EventName = "groupUpdated"
	EventError              EventName = "error"
)

// Event is the wire format for realtime messages in both directions
type Event struct {
	ID        string                 `json:"id,omitempty"`
	Name      EventName              `json:"event"`
	ChatID    string                 `json:"chat_id,omitempty"`
	From      string                 `json:"from,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates a server-originated event
func NewEvent(name EventName, data map[string]interface{}) *Event {
	return &Event{
		ID:        primitive.NewObjectID().Hex(),
		Name:      name,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEvent creates an event from JSON bytes
func ParseEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return &ev, nil
}

// SetChatID sets the chat the event is scoped to
func (e *Event) SetChatID(chatID string) {
	e.ChatID = chatID
}

// SetFrom sets the originating user
func (e *Event) SetFrom(userID string) {
	e.From = userID
}

// AddData adds a data field to the event
func (e *Event) AddData(key string, value interface{}) {
	if e.Data == nil {
		e.Data = make(map[string]interface{})
	}
	e.Data[key] = value
}

// StringData returns a string-valued data field
func (e *Event) StringData(key string) string {
	if e.Data == nil {
		return ""
	}
	if s, ok := e.Data[key].(string); ok {
		return s
	}
	return ""
}

// BoolData returns a bool-valued data field
func (e *Event) BoolData(key string) bool {
	if e.Data == nil {
		return false
	}
	b, _ := e.Data[key].(bool)
	return b
}

// Validate checks the structural requirements of an inbound event
func (e *Event) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("event name is required")
	}

	switch e.Name {
	case EventJoinChat, EventLeaveChat, EventSendMessage, EventTyping,
		EventMessageRead, EventMessageReaction, EventMessagePin,
		EventMessageForward, EventThemeUpdate:
		if e.ChatID == "" {
			return fmt.Errorf("chat_id is required for %s", e.Name)
		}
	}

	return nil
}
