package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventSetsTimestamp(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"event":"typing","chat_id":"c1","data":{"is_typing":true}}`))
	require.NoError(t, err)

	assert.Equal(t, EventTyping, ev.Name)
	assert.Equal(t, "c1", ev.ChatID)
	assert.True(t, ev.BoolData("is_typing"))
	assert.False(t, ev.Timestamp.IsZero())
}

func TestParseEventRejectsGarbage(t *testing.T) {
	_, err := ParseEvent([]byte(`{not json`))
	assert.Error(t, err)
}

func TestValidateRequiresName(t *testing.T) {
	ev := &Event{}
	assert.Error(t, ev.Validate())
}

func TestValidateRequiresChatIDForChatScopedEvents(t *testing.T) {
	for _, name := range []EventName{
		EventJoinChat, EventSendMessage, EventTyping,
		EventMessageRead, EventMessageReaction, EventMessagePin,
	} {
		ev := &Event{Name: name}
		assert.Error(t, ev.Validate(), string(name))

		ev.ChatID = "c1"
		assert.NoError(t, ev.Validate(), string(name))
	}
}

func TestValidateStatusUpdateNeedsNoChatID(t *testing.T) {
	ev := &Event{Name: EventStatusUpdate}
	assert.NoError(t, ev.Validate())
}

func TestEventDataHelpers(t *testing.T) {
	ev := NewEvent(EventNewMessage, nil)
	ev.AddData("text", "hi")
	ev.AddData("flag", true)

	assert.Equal(t, "hi", ev.StringData("text"))
	assert.True(t, ev.BoolData("flag"))
	assert.Equal(t, "", ev.StringData("missing"))
	assert.False(t, ev.BoolData("missing"))
}

func TestEventJSONRoundTrip(t *testing.T) {
	ev := NewEvent(EventNewMessage, map[string]interface{}{"text": "hello"})
	ev.SetChatID("c1")
	ev.SetFrom("u1")

	data, err := ev.ToJSON()
	require.NoError(t, err)

	parsed, err := ParseEvent(data)
	require.NoError(t, err)
	assert.Equal(t, EventNewMessage, parsed.Name)
	assert.Equal(t, "c1", parsed.ChatID)
	assert.Equal(t, "u1", parsed.From)
	assert.Equal(t, "hello", parsed.StringData("text"))
}
