package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewDirectChatHasTwoParticipants(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	chat := NewDirectChat(a, b)

	assert.Equal(t, ChatTypeDirect, chat.Type)
	assert.Len(t, chat.Participants, 2)
	assert.True(t, chat.HasParticipant(a))
	assert.True(t, chat.HasParticipant(b))
	assert.False(t, chat.IsGroup())
}

func TestNewGroupChatIncludesAdminOnce(t *testing.T) {
	admin := primitive.NewObjectID()
	other := primitive.NewObjectID()

	chat := NewGroupChat("team", admin, []primitive.ObjectID{admin, other})

	assert.Equal(t, admin, chat.Admin)
	assert.Len(t, chat.Participants, 2)
	assert.True(t, chat.HasParticipant(admin))
	assert.True(t, chat.HasParticipant(other))
}

func TestOtherParticipant(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	chat := NewDirectChat(a, b)

	got, ok := chat.OtherParticipant(a)
	require.True(t, ok)
	assert.Equal(t, b, got)
}

func TestAppendMessageUpdatesLastMessageAndActivity(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	chat := NewDirectChat(a, b)

	msg := NewMessage(a, "hi", MessageTypeText)
	chat.AppendMessage(msg)

	require.NotNil(t, chat.LastMessage)
	assert.Equal(t, "hi", chat.LastMessage.Text)
	assert.Equal(t, msg.ID, chat.LastMessage.ID)
	assert.Equal(t, msg.CreatedAt, chat.LastActivity)

	second := NewMessage(b, "hello", MessageTypeText)
	chat.AppendMessage(second)

	assert.Equal(t, "hello", chat.LastMessage.Text)
	assert.Equal(t, second.CreatedAt, chat.LastActivity)
	assert.Len(t, chat.Messages, 2)
}

func TestFindMessageByID(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	chat := NewDirectChat(a, b)

	first := NewMessage(a, "one", MessageTypeText)
	second := NewMessage(b, "two", MessageTypeText)
	chat.AppendMessage(first)
	chat.AppendMessage(second)

	got, ok := chat.FindMessage(second.ID)
	require.True(t, ok)
	assert.Equal(t, "two", got.Text)

	_, ok = chat.FindMessage(primitive.NewObjectID())
	assert.False(t, ok)
}

func TestToggleReactionAddAndRemove(t *testing.T) {
	sender, reactor := primitive.NewObjectID(), primitive.NewObjectID()
	msg := NewMessage(sender, "hi", MessageTypeText)

	added := msg.ToggleReaction(reactor, "👍")
	assert.True(t, added)
	require.Len(t, msg.Reactions, 1)
	assert.Equal(t, 1, msg.Reactions[0].Count)
	assert.Equal(t, len(msg.Reactions[0].Users), msg.Reactions[0].Count)

	// Second toggle removes the reactor and the emptied entry
	added = msg.ToggleReaction(reactor, "👍")
	assert.False(t, added)
	assert.Empty(t, msg.Reactions)
}

func TestToggleReactionCountTracksUsers(t *testing.T) {
	sender := primitive.NewObjectID()
	u1, u2 := primitive.NewObjectID(), primitive.NewObjectID()
	msg := NewMessage(sender, "hi", MessageTypeText)

	msg.ToggleReaction(u1, "❤️")
	msg.ToggleReaction(u2, "❤️")
	require.Len(t, msg.Reactions, 1)
	assert.Equal(t, 2, msg.Reactions[0].Count)
	assert.Equal(t, len(msg.Reactions[0].Users), msg.Reactions[0].Count)

	msg.ToggleReaction(u1, "❤️")
	require.Len(t, msg.Reactions, 1)
	assert.Equal(t, 1, msg.Reactions[0].Count)
	assert.Equal(t, u2, msg.Reactions[0].Users[0])
}

func TestToggleReactionDistinctEmojis(t *testing.T) {
	sender, reactor := primitive.NewObjectID(), primitive.NewObjectID()
	msg := NewMessage(sender, "hi", MessageTypeText)

	msg.ToggleReaction(reactor, "👍")
	msg.ToggleReaction(reactor, "❤️")
	assert.Len(t, msg.Reactions, 2)

	msg.ToggleReaction(reactor, "👍")
	require.Len(t, msg.Reactions, 1)
	assert.Equal(t, "❤️", msg.Reactions[0].Emoji)
}

func TestTogglePinMaintainsPinnedSet(t *testing.T) {
	admin, other := primitive.NewObjectID(), primitive.NewObjectID()
	chat := NewGroupChat("team", admin, []primitive.ObjectID{other})
	msg := NewMessage(other, "important", MessageTypeText)
	chat.AppendMessage(msg)

	now := time.Now()
	pinned, ok := chat.TogglePin(msg.ID, admin, now)
	require.True(t, ok)
	assert.True(t, pinned)

	got, _ := chat.FindMessage(msg.ID)
	assert.True(t, got.IsPinned)
	require.NotNil(t, got.PinnedBy)
	assert.Equal(t, admin, *got.PinnedBy)
	require.NotNil(t, got.PinnedAt)
	assert.Contains(t, chat.PinnedMessages, msg.ID)

	// Unpin clears everything
	pinned, ok = chat.TogglePin(msg.ID, admin, now)
	require.True(t, ok)
	assert.False(t, pinned)

	got, _ = chat.FindMessage(msg.ID)
	assert.False(t, got.IsPinned)
	assert.Nil(t, got.PinnedBy)
	assert.Nil(t, got.PinnedAt)
	assert.NotContains(t, chat.PinnedMessages, msg.ID)
}

func TestPinnedSetIsSubsetOfMessages(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	chat := NewDirectChat(a, b)

	for i := 0; i < 3; i++ {
		msg := NewMessage(a, "msg", MessageTypeText)
		chat.AppendMessage(msg)
		chat.TogglePin(msg.ID, a, time.Now())
	}

	for _, id := range chat.PinnedMessages {
		_, ok := chat.FindMessage(id)
		assert.True(t, ok)
	}

	// Pinning an unknown id is rejected, preserving the subset invariant
	_, ok := chat.TogglePin(primitive.NewObjectID(), a, time.Now())
	assert.False(t, ok)
}

func TestMarkReadByDedupesAndSkipsSender(t *testing.T) {
	sender, reader := primitive.NewObjectID(), primitive.NewObjectID()
	msg := NewMessage(sender, "hi", MessageTypeText)
	now := time.Now()

	assert.False(t, msg.MarkReadBy(sender, now))
	assert.True(t, msg.MarkReadBy(reader, now))
	assert.False(t, msg.MarkReadBy(reader, now))
	assert.Len(t, msg.ReadBy, 1)
}

func TestMarkReadBulkAndSingle(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	chat := NewDirectChat(a, b)

	m1 := NewMessage(a, "one", MessageTypeText)
	m2 := NewMessage(a, "two", MessageTypeText)
	m3 := NewMessage(b, "three", MessageTypeText)
	chat.AppendMessage(m1)
	chat.AppendMessage(m2)
	chat.AppendMessage(m3)

	// Single message
	updated := chat.MarkRead(b, []primitive.ObjectID{m1.ID}, time.Now())
	assert.Equal(t, []primitive.ObjectID{m1.ID}, updated)

	// Empty set marks everything unread by b, skipping b's own message
	updated = chat.MarkRead(b, nil, time.Now())
	assert.Equal(t, []primitive.ObjectID{m2.ID}, updated)

	// All read now
	updated = chat.MarkRead(b, nil, time.Now())
	assert.Empty(t, updated)
}

func TestSetTypingAddRefreshRemove(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	chat := NewDirectChat(a, b)

	t0 := time.Now()
	chat.SetTyping(a, true, t0)
	require.Len(t, chat.TypingUsers, 1)

	t1 := t0.Add(2 * time.Second)
	chat.SetTyping(a, true, t1)
	require.Len(t, chat.TypingUsers, 1)
	assert.Equal(t, t1, chat.TypingUsers[0].Timestamp)

	chat.SetTyping(a, false, t1)
	assert.Empty(t, chat.TypingUsers)

	// Clearing an absent entry is a no-op
	chat.SetTyping(b, false, t1)
	assert.Empty(t, chat.TypingUsers)
}

func TestCurrentlyTypingFiltersStaleEntries(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	chat := NewDirectChat(a, b)

	now := time.Now()
	chat.SetTyping(a, true, now.Add(-10*time.Second))
	chat.SetTyping(b, true, now)

	active := chat.CurrentlyTyping(5*time.Second, now)
	require.Len(t, active, 1)
	assert.Equal(t, b, active[0].User)

	// Stale entries remain stored
	assert.Len(t, chat.TypingUsers, 2)
}

func TestVisibleMessagesExcludesDeleted(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	chat := NewDirectChat(a, b)

	keep := NewMessage(a, "keep", MessageTypeText)
	gone := NewMessage(a, "gone", MessageTypeText)
	chat.AppendMessage(keep)
	chat.AppendMessage(gone)

	msg, _ := chat.FindMessage(gone.ID)
	now := time.Now()
	msg.IsDeleted = true
	msg.DeletedAt = &now

	visible := chat.VisibleMessages()
	require.Len(t, visible, 1)
	assert.Equal(t, "keep", visible[0].Text)

	// Soft-deleted messages stay in the sequence
	assert.Len(t, chat.Messages, 2)
}

func TestRemoveParticipantReassignsAdmin(t *testing.T) {
	admin := primitive.NewObjectID()
	second := primitive.NewObjectID()
	third := primitive.NewObjectID()
	chat := NewGroupChat("team", admin, []primitive.ObjectID{second, third})

	require.True(t, chat.RemoveParticipant(admin))
	assert.Equal(t, second, chat.Admin)
	assert.False(t, chat.HasParticipant(admin))
}

func TestRemoveLastParticipantLeavesAdminless(t *testing.T) {
	admin := primitive.NewObjectID()
	chat := NewGroupChat("solo", admin, nil)

	require.True(t, chat.RemoveParticipant(admin))
	assert.Empty(t, chat.Participants)
	assert.Equal(t, primitive.NilObjectID, chat.Admin)
}

func TestRemoveParticipantUnknownUser(t *testing.T) {
	admin := primitive.NewObjectID()
	chat := NewGroupChat("team", admin, nil)

	assert.False(t, chat.RemoveParticipant(primitive.NewObjectID()))
	assert.True(t, chat.HasParticipant(admin))
}

func TestAddParticipantIsIdempotent(t *testing.T) {
	admin := primitive.NewObjectID()
	member := primitive.NewObjectID()
	chat := NewGroupChat("team", admin, nil)

	assert.True(t, chat.AddParticipant(member))
	assert.False(t, chat.AddParticipant(member))
	assert.Len(t, chat.Participants, 2)
}

func TestValidTheme(t *testing.T) {
	assert.True(t, ValidTheme("default"))
	assert.True(t, ValidTheme("dark"))
	assert.True(t, ValidTheme("red"))
	assert.False(t, ValidTheme("pink"))
	assert.False(t, ValidTheme("neon"))
	assert.False(t, ValidTheme(""))
}
