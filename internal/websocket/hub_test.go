package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/isdelr/pinboard-be/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return Message{}
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRoutesEventsByPin(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	pinA, pinB := primitive.NewObjectID(), primitive.NewObjectID()
	global := NewClient(hub, nil, "")
	followerA := NewClient(hub, nil, pinA.Hex())
	hub.Join(global)
	hub.Join(followerA)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, events.New(events.PinLiked, pinA, primitive.NilObjectID, nil)))

	msg := receive(t, global)
	assert.Equal(t, events.PinLiked, msg.Action)
	msg = receive(t, followerA)
	assert.Equal(t, events.PinLiked, msg.Action)

	require.NoError(t, hub.Publish(ctx, events.New(events.CommentCreated, pinB, primitive.NilObjectID, nil)))
	assert.Equal(t, events.CommentCreated, receive(t, global).Action)
	assertNothing(t, followerA)
}

func TestHubLeaveClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := NewClient(hub, nil, "")
	hub.Join(c)
	hub.Leave(c)

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHubStopReleasesCallers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	c := NewClient(hub, nil, "")
	hub.Join(c)
	hub.Leave(c)
	assert.NoError(t, hub.Publish(context.Background(), events.Event{Type: events.PinCreated}))
}

func TestNewErrorMessage(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal(NewErrorMessage("bad"), &msg))
	assert.Equal(t, "error", msg.Action)
}

func TestSendToTargetsOneClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a := NewClient(hub, nil, "")
	b := NewClient(hub, nil, "")
	hub.Join(a)
	hub.Join(b)

	hub.SendTo(a, NewErrorMessage("only a"))
	assert.Equal(t, "error", receive(t, a).Action)
	assertNothing(t, b)

	hub.Leave(a)
	hub.SendTo(a, NewErrorMessage("gone"))
	assertNothing(t, b)
}
