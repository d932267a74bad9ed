package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID string) *Client {
	return NewClient(nil, hub, userID, "user-"+userID)
}

// receiveEvent pops one queued event off the client's send channel
func receiveEvent(t *testing.T, c *Client) *Event {
	t.Helper()
	select {
	case data := <-c.Send:
		ev, err := ParseEvent(data)
		require.NoError(t, err)
		return ev
	default:
		t.Fatal("expected a queued event")
		return nil
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}

func TestRegisterTracksUser(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "u1")

	hub.registerClient(client)

	got, ok := hub.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, client, got)
	assert.True(t, hub.IsUserOnline("u1"))
	assert.Equal(t, 1, hub.ClientCount())
}

func TestRegisterReplacesPriorHandleWithoutClosing(t *testing.T) {
	hub := NewHub()
	first := newTestClient(hub, "u1")
	second := newTestClient(hub, "u1")

	hub.registerClient(first)
	hub.registerClient(second)

	got, ok := hub.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, second, got)

	// The first connection is evicted from tracking but not closed
	assert.Equal(t, 2, hub.ClientCount())
	assert.NotPanics(t, func() {
		first.Send <- []byte("still open")
	})
}

func TestStaleUnregisterDoesNotEvictNewerConnection(t *testing.T) {
	hub := NewHub()
	first := newTestClient(hub, "u1")
	second := newTestClient(hub, "u1")

	hub.registerClient(first)
	hub.registerClient(second)

	// The replaced connection tears down late
	hub.unregisterClient(first)

	got, ok := hub.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.True(t, hub.IsUserOnline("u1"))
	assert.Equal(t, 1, hub.ClientCount())
}

func TestUnregisterRemovesCurrentConnection(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "u1")

	hub.registerClient(client)
	hub.unregisterClient(client)

	assert.False(t, hub.IsUserOnline("u1"))
	assert.Equal(t, 0, hub.ClientCount())

	// Send channel is closed on teardown
	_, open := <-client.Send
	for open {
		_, open = <-client.Send
	}
}

func TestUnregisterUnknownClientIsNoop(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "u1")

	assert.NotPanics(t, func() {
		hub.unregisterClient(client)
	})
}

func TestPresenceBroadcastOnRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	observer := newTestClient(hub, "observer")
	hub.registerClient(observer)
	drain(observer)

	joiner := newTestClient(hub, "joiner")
	hub.registerClient(joiner)

	ev := receiveEvent(t, observer)
	assert.Equal(t, EventUserOnline, ev.Name)
	assert.Equal(t, "joiner", ev.Data["user_id"])

	// The joiner does not receive its own presence event
	select {
	case <-joiner.Send:
		t.Fatal("joiner should not receive its own presence event")
	default:
	}

	hub.unregisterClient(joiner)

	ev = receiveEvent(t, observer)
	assert.Equal(t, EventUserOffline, ev.Name)
	assert.Equal(t, "joiner", ev.Data["user_id"])
}

func TestStaleUnregisterEmitsNoOfflineEvent(t *testing.T) {
	hub := NewHub()
	observer := newTestClient(hub, "observer")
	hub.registerClient(observer)

	first := newTestClient(hub, "u1")
	second := newTestClient(hub, "u1")
	hub.registerClient(first)
	hub.registerClient(second)
	drain(observer)

	hub.unregisterClient(first)

	select {
	case data := <-observer.Send:
		ev, err := ParseEvent(data)
		require.NoError(t, err)
		t.Fatalf("unexpected event %s after stale unregister", ev.Name)
	default:
	}
}

func TestOnPresenceChangeCallback(t *testing.T) {
	hub := NewHub()

	type change struct {
		userID string
		online bool
	}
	var changes []change
	hub.OnPresenceChange = func(userID string, online bool) {
		changes = append(changes, change{userID, online})
	}

	first := newTestClient(hub, "u1")
	second := newTestClient(hub, "u1")

	hub.registerClient(first)
	hub.registerClient(second) // replacement, user already online
	hub.unregisterClient(first)
	hub.unregisterClient(second)

	require.Len(t, changes, 2)
	assert.Equal(t, change{"u1", true}, changes[0])
	assert.Equal(t, change{"u1", false}, changes[1])
}

func TestJoinRoomMovesClientBetweenRooms(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "u1")
	hub.registerClient(client)

	hub.JoinRoom(client, "chat-a")
	assert.Equal(t, "chat-a", client.GetRoomID())
	assert.Equal(t, []string{"u1"}, hub.RoomUsers("chat-a"))

	hub.JoinRoom(client, "chat-b")
	assert.Equal(t, "chat-b", client.GetRoomID())
	assert.Empty(t, hub.RoomUsers("chat-a"))
	assert.Equal(t, []string{"u1"}, hub.RoomUsers("chat-b"))

	hub.LeaveRoom(client)
	assert.Equal(t, "", client.GetRoomID())
	assert.Empty(t, hub.RoomUsers("chat-b"))
}

func TestRoomBroadcastReachesJoinedClientsOnly(t *testing.T) {
	hub := NewHub()
	inRoom := newTestClient(hub, "u1")
	connected := newTestClient(hub, "u2")
	hub.registerClient(inRoom)
	hub.registerClient(connected)
	hub.JoinRoom(inRoom, "chat-a")
	drain(inRoom)
	drain(connected)

	hub.broadcastToRoom(&RoomEvent{
		ChatID: "chat-a",
		Event:  NewEvent(EventNewMessage, map[string]interface{}{"text": "hi"}),
	})

	ev := receiveEvent(t, inRoom)
	assert.Equal(t, EventNewMessage, ev.Name)

	// A connected participant that never joined the room gets nothing
	select {
	case <-connected.Send:
		t.Fatal("client outside the room should not receive room events")
	default:
	}
}

func TestRoomBroadcastExcludesSender(t *testing.T) {
	hub := NewHub()
	sender := newTestClient(hub, "u1")
	other := newTestClient(hub, "u2")
	hub.registerClient(sender)
	hub.registerClient(other)
	hub.JoinRoom(sender, "chat-a")
	hub.JoinRoom(other, "chat-a")
	drain(sender)
	drain(other)

	hub.broadcastToRoom(&RoomEvent{
		ChatID:  "chat-a",
		Event:   NewEvent(EventUserTyping, map[string]interface{}{"is_typing": true}),
		Exclude: "u1",
	})

	ev := receiveEvent(t, other)
	assert.Equal(t, EventUserTyping, ev.Name)

	select {
	case <-sender.Send:
		t.Fatal("excluded sender should not receive the event")
	default:
	}
}

func TestUserBroadcastOfflineIsNoop(t *testing.T) {
	hub := NewHub()

	assert.NotPanics(t, func() {
		hub.broadcastToUser(&UserEvent{
			UserID: "ghost",
			Event:  NewEvent(EventNewMessage, nil),
		})
	})
}

func TestUserBroadcastDeliversToActiveConnection(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "u1")
	hub.registerClient(client)
	drain(client)

	hub.broadcastToUser(&UserEvent{
		UserID: "u1",
		Event:  NewEvent(EventNewMessage, map[string]interface{}{"text": "hi"}),
	})

	ev := receiveEvent(t, client)
	assert.Equal(t, EventNewMessage, ev.Name)
	assert.Equal(t, "hi", ev.Data["text"])
}

func TestSlowConsumerDropsEvents(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "u1")
	hub.registerClient(client)
	hub.JoinRoom(client, "chat-a")
	drain(client)

	// Fill the send buffer past capacity; extra events are dropped,
	// never blocking the broadcast path
	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBufferSize+10; i++ {
			hub.broadcastToRoom(&RoomEvent{
				ChatID: "chat-a",
				Event:  NewEvent(EventNewMessage, nil),
			})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow consumer")
	}

	assert.Equal(t, sendBufferSize, len(client.Send))
}

func TestOnlineUsers(t *testing.T) {
	hub := NewHub()
	hub.registerClient(newTestClient(hub, "u1"))
	hub.registerClient(newTestClient(hub, "u2"))

	users := hub.OnlineUsers()
	assert.ElementsMatch(t, []string{"u1", "u2"}, users)
}
