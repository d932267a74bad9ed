package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat types
const (
	ChatTypeDirect = "direct"
	ChatTypeGroup  = "group"
)

// Message types
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
	MessageTypeVoice = "voice"
)

// Chat themes
var chatThemes = map[string]bool{
	"default": true,
	"dark":    true,
	"blue":    true,
	"green":   true,
	"purple":  true,
	"red":     true,
}

// ValidTheme reports whether t is an accepted chat theme
func ValidTheme(t string) bool {
	return chatThemes[t]
}

// Reaction groups the users who reacted with one emoji. Count is kept
// equal to len(Users) on every toggle.
type Reaction struct {
	Emoji string               `bson:"emoji" json:"emoji"`
	Users []primitive.ObjectID `bson:"users" json:"users"`
	Count int                  `bson:"count" json:"count"`
}

// ReadReceipt records that a user has read a message. At most one entry
// per reader exists on a message.
type ReadReceipt struct {
	User   primitive.ObjectID `bson:"user" json:"user"`
	ReadAt time.Time          `bson:"read_at" json:"read_at"`
}

// ForwardInfo carries the provenance of a forwarded message
type ForwardInfo struct {
	OriginChat   primitive.ObjectID `bson:"origin_chat" json:"origin_chat"`
	OriginSender primitive.ObjectID `bson:"origin_sender" json:"origin_sender"`
	OriginTime   time.Time          `bson:"origin_time" json:"origin_time"`
}

// TypingEntry is a transient marker for a participant who is typing.
// Entries are never expired in the store; readers filter by timestamp.
type TypingEntry struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// Message is embedded in its owning Chat document and never exists
// outside one. Soft-deleted messages stay in the sequence.
type Message struct {
	ID        primitive.ObjectID  `bson:"_id" json:"id"`
	Sender    primitive.ObjectID  `bson:"sender" json:"sender"`
	Text      string              `bson:"text" json:"text"`
	Type      string              `bson:"type" json:"type"`
	FileURL   string              `bson:"file_url,omitempty" json:"file_url,omitempty"`
	FileName  string              `bson:"file_name,omitempty" json:"file_name,omitempty"`
	FileSize  int64               `bson:"file_size,omitempty" json:"file_size,omitempty"`
	ReplyTo   *primitive.ObjectID `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	Reactions []Reaction          `bson:"reactions" json:"reactions"`
	Forwarded *ForwardInfo        `bson:"forwarded,omitempty" json:"forwarded,omitempty"`
	IsPinned  bool                `bson:"is_pinned" json:"is_pinned"`
	PinnedBy  *primitive.ObjectID `bson:"pinned_by,omitempty" json:"pinned_by,omitempty"`
	PinnedAt  *time.Time          `bson:"pinned_at,omitempty" json:"pinned_at,omitempty"`
	ReadBy    []ReadReceipt       `bson:"read_by" json:"read_by"`
	IsEdited  bool                `bson:"is_edited" json:"is_edited"`
	EditedAt  *time.Time          `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
	IsDeleted bool                `bson:"is_deleted" json:"is_deleted"`
	DeletedAt *time.Time          `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}

// NewMessage creates a text message ready to append to a chat
func NewMessage(sender primitive.ObjectID, text, msgType string) *Message {
	return &Message{
		ID:        primitive.NewObjectID(),
		Sender:    sender,
		Text:      text,
		Type:      msgType,
		Reactions: []Reaction{},
		ReadBy:    []ReadReceipt{},
		CreatedAt: time.Now(),
	}
}

// ToggleReaction adds the user to the emoji's reactor set, or removes
// them if already present. An emptied reaction entry is deleted.
// Returns true if the user is a reactor after the toggle.
func (m *Message) ToggleReaction(user primitive.ObjectID, emoji string) bool {
	for i := range m.Reactions {
		if m.Reactions[i].Emoji != emoji {
			continue
		}
		r := &m.Reactions[i]
		for j, u := range r.Users {
			if u == user {
				r.Users = append(r.Users[:j], r.Users[j+1:]...)
				r.Count = len(r.Users)
				if r.Count == 0 {
					m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
				}
				return false
			}
		}
		r.Users = append(r.Users, user)
		r.Count = len(r.Users)
		return true
	}

	m.Reactions = append(m.Reactions, Reaction{
		Emoji: emoji,
		Users: []primitive.ObjectID{user},
		Count: 1,
	})
	return true
}

// MarkReadBy appends a read receipt unless the user already has one or
// is the sender. Returns true if a receipt was added.
func (m *Message) MarkReadBy(user primitive.ObjectID, at time.Time) bool {
	if m.Sender == user {
		return false
	}
	for _, r := range m.ReadBy {
		if r.User == user {
			return false
		}
	}
	m.ReadBy = append(m.ReadBy, ReadReceipt{User: user, ReadAt: at})
	return true
}

// Chat is a direct or group conversation owning its message sequence
type Chat struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Type           string               `bson:"type" json:"type"`
	Name           string               `bson:"name,omitempty" json:"name,omitempty"`
	Avatar         string               `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Admin          primitive.ObjectID   `bson:"admin,omitempty" json:"admin,omitempty"`
	Participants   []primitive.ObjectID `bson:"participants" json:"participants"`
	Messages       []Message            `bson:"messages" json:"messages"`
	LastMessage    *Message             `bson:"last_message,omitempty" json:"last_message,omitempty"`
	LastActivity   time.Time            `bson:"last_activity" json:"last_activity"`
	PinnedMessages []primitive.ObjectID `bson:"pinned_messages" json:"pinned_messages"`
	Theme          string               `bson:"theme" json:"theme"`
	TypingUsers    []TypingEntry        `bson:"typing_users" json:"typing_users"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`

	// msgIndex maps message id to its position in Messages. Built
	// lazily on first lookup; kept current by AppendMessage.
	msgIndex map[primitive.ObjectID]int `bson:"-" json:"-"`
}

// NewDirectChat creates a two-participant conversation
func NewDirectChat(a, b primitive.ObjectID) *Chat {
	now := time.Now()
	return &Chat{
		ID:             primitive.NewObjectID(),
		Type:           ChatTypeDirect,
		Participants:   []primitive.ObjectID{a, b},
		Messages:       []Message{},
		LastActivity:   now,
		PinnedMessages: []primitive.ObjectID{},
		Theme:          "default",
		TypingUsers:    []TypingEntry{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewGroupChat creates a group conversation. The creator becomes admin
// and is always included in the participant list.
func NewGroupChat(name string, admin primitive.ObjectID, participants []primitive.ObjectID) *Chat {
	now := time.Now()
	members := []primitive.ObjectID{admin}
	for _, p := range participants {
		if p != admin {
			members = append(members, p)
		}
	}
	return &Chat{
		ID:             primitive.NewObjectID(),
		Type:           ChatTypeGroup,
		Name:           name,
		Admin:          admin,
		Participants:   members,
		Messages:       []Message{},
		LastActivity:   now,
		PinnedMessages: []primitive.ObjectID{},
		Theme:          "default",
		TypingUsers:    []TypingEntry{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsGroup reports whether the chat is a group conversation
func (c *Chat) IsGroup() bool {
	return c.Type == ChatTypeGroup
}

// HasParticipant reports whether user is a current participant
func (c *Chat) HasParticipant(user primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == user {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not user. Only
// meaningful for direct chats.
func (c *Chat) OtherParticipant(user primitive.ObjectID) (primitive.ObjectID, bool) {
	for _, p := range c.Participants {
		if p != user {
			return p, true
		}
	}
	return primitive.NilObjectID, false
}

func (c *Chat) buildIndex() {
	c.msgIndex = make(map[primitive.ObjectID]int, len(c.Messages))
	for i := range c.Messages {
		c.msgIndex[c.Messages[i].ID] = i
	}
}

// FindMessage returns a pointer to the message with the given id
func (c *Chat) FindMessage(id primitive.ObjectID) (*Message, bool) {
	if c.msgIndex == nil || len(c.msgIndex) != len(c.Messages) {
		c.buildIndex()
	}
	i, ok := c.msgIndex[id]
	if !ok || i >= len(c.Messages) || c.Messages[i].ID != id {
		return nil, false
	}
	return &c.Messages[i], true
}

// AppendMessage appends msg and refreshes the denormalized
// last-message and last-activity fields
func (c *Chat) AppendMessage(msg *Message) {
	c.Messages = append(c.Messages, *msg)
	if c.msgIndex == nil {
		c.buildIndex()
	} else {
		c.msgIndex[msg.ID] = len(c.Messages) - 1
	}
	last := c.Messages[len(c.Messages)-1]
	c.LastMessage = &last
	c.LastActivity = msg.CreatedAt
	c.UpdatedAt = msg.CreatedAt
}

// VisibleMessages returns the message sequence with soft-deleted
// entries filtered out
func (c *Chat) VisibleMessages() []Message {
	visible := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if !m.IsDeleted {
			visible = append(visible, m)
		}
	}
	return visible
}

// TogglePin pins or unpins the message with the given id, keeping the
// chat's pinned set consistent with the message's pin fields.
// Returns the message's pin state after the toggle.
func (c *Chat) TogglePin(messageID, user primitive.ObjectID, at time.Time) (bool, bool) {
	msg, ok := c.FindMessage(messageID)
	if !ok {
		return false, false
	}

	if msg.IsPinned {
		msg.IsPinned = false
		msg.PinnedBy = nil
		msg.PinnedAt = nil
		for i, id := range c.PinnedMessages {
			if id == messageID {
				c.PinnedMessages = append(c.PinnedMessages[:i], c.PinnedMessages[i+1:]...)
				break
			}
		}
		return false, true
	}

	msg.IsPinned = true
	msg.PinnedBy = &user
	pinnedAt := at
	msg.PinnedAt = &pinnedAt
	c.PinnedMessages = append(c.PinnedMessages, messageID)
	return true, true
}

// MarkRead adds read receipts for user on the given messages, or on
// every message when messageIDs is empty. Returns the ids of messages
// that gained a receipt.
func (c *Chat) MarkRead(user primitive.ObjectID, messageIDs []primitive.ObjectID, at time.Time) []primitive.ObjectID {
	var updated []primitive.ObjectID

	if len(messageIDs) == 0 {
		for i := range c.Messages {
			if c.Messages[i].MarkReadBy(user, at) {
				updated = append(updated, c.Messages[i].ID)
			}
		}
		return updated
	}

	for _, id := range messageIDs {
		if msg, ok := c.FindMessage(id); ok {
			if msg.MarkReadBy(user, at) {
				updated = append(updated, id)
			}
		}
	}
	return updated
}

// SetTyping adds or refreshes the user's typing entry, or removes it
// when typing is false
func (c *Chat) SetTyping(user primitive.ObjectID, typing bool, at time.Time) {
	for i := range c.TypingUsers {
		if c.TypingUsers[i].User == user {
			if typing {
				c.TypingUsers[i].Timestamp = at
			} else {
				c.TypingUsers = append(c.TypingUsers[:i], c.TypingUsers[i+1:]...)
			}
			return
		}
	}
	if typing {
		c.TypingUsers = append(c.TypingUsers, TypingEntry{User: user, Timestamp: at})
	}
}

// CurrentlyTyping returns typing entries newer than the staleness
// threshold. Stale entries are filtered, not removed.
func (c *Chat) CurrentlyTyping(threshold time.Duration, now time.Time) []TypingEntry {
	active := make([]TypingEntry, 0, len(c.TypingUsers))
	for _, t := range c.TypingUsers {
		if now.Sub(t.Timestamp) <= threshold {
			active = append(active, t)
		}
	}
	return active
}

// AddParticipant adds user to the participant list if not present.
// Returns true if the roster changed.
func (c *Chat) AddParticipant(user primitive.ObjectID) bool {
	if c.HasParticipant(user) {
		return false
	}
	c.Participants = append(c.Participants, user)
	c.UpdatedAt = time.Now()
	return true
}

// RemoveParticipant removes user from the roster. If the removed user
// was the group admin, admin moves to the first remaining participant;
// an emptied group is left adminless.
func (c *Chat) RemoveParticipant(user primitive.ObjectID) bool {
	for i, p := range c.Participants {
		if p != user {
			continue
		}
		c.Participants = append(c.Participants[:i], c.Participants[i+1:]...)
		if c.IsGroup() && c.Admin == user {
			if len(c.Participants) > 0 {
				c.Admin = c.Participants[0]
			} else {
				c.Admin = primitive.NilObjectID
			}
		}
		c.UpdatedAt = time.Now()
		return true
	}
	return false
}
