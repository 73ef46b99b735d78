package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSendConfirmed(t *testing.T) {
	local := newFakeLocal("ada-id")
	chat := NewChat(newFakeTransport(local), "ada-id", "Ada")

	require.NoError(t, chat.Send(context.Background(), "  hello  "))

	msgs := chat.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, OriginLocalConfirmed, msgs[0].Origin)
	assert.Equal(t, DeliverySent, msgs[0].Delivery)

	published := local.Published()
	require.Len(t, published, 1)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(published[0], &wire))
	assert.Equal(t, "chat", wire["type"])
	assert.Equal(t, "hello", wire["message"])
	assert.Equal(t, "Ada", wire["senderName"])
	assert.Equal(t, "ada-id", wire["senderIdentity"])
	_, err := time.Parse(time.RFC3339, wire["timestamp"].(string))
	assert.NoError(t, err)
}

func TestChatSendRollbackOnFailure(t *testing.T) {
	local := newFakeLocal("ada-id")
	local.publishErr = errors.New("dc closed")
	chat := NewChat(newFakeTransport(local), "ada-id", "Ada")

	var optimistic []Message
	chat.OnAppend(func(m Message) { optimistic = append(optimistic, m) })

	err := chat.Send(context.Background(), "hello")
	require.ErrorIs(t, err, ErrSend)

	// The optimistic append happened, then the rollback removed it.
	require.Len(t, optimistic, 1)
	assert.Equal(t, OriginLocalOptimistic, optimistic[0].Origin)
	assert.Empty(t, chat.Messages())
}

func TestChatSendBlankDropped(t *testing.T) {
	local := newFakeLocal("ada-id")
	chat := NewChat(newFakeTransport(local), "ada-id", "Ada")

	require.NoError(t, chat.Send(context.Background(), "   "))
	assert.Empty(t, chat.Messages())
	assert.Empty(t, local.Published())
}

func TestChatReceiveRemote(t *testing.T) {
	chat := NewChat(newFakeTransport(newFakeLocal("ada-id")), "ada-id", "Ada")

	chat.Receive(wirePayload(t, "m1", "grace-id", "Grace", "hi"))
	chat.Receive(wirePayload(t, "m2", "grace-id", "Grace", "there"))

	msgs := chat.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, "there", msgs[1].Text)
	assert.Equal(t, OriginRemote, msgs[0].Origin)
	assert.Equal(t, DeliverySent, msgs[0].Delivery)
}

func TestChatReceiveOwnEchoSuppressed(t *testing.T) {
	local := newFakeLocal("ada-id")
	chat := NewChat(newFakeTransport(local), "ada-id", "Ada")
	require.NoError(t, chat.Send(context.Background(), "hello"))

	chat.Receive(wirePayload(t, chat.Messages()[0].ID, "ada-id", "Ada", "hello"))

	assert.Len(t, chat.Messages(), 1)
}

func TestChatReceiveDuplicateDropped(t *testing.T) {
	chat := NewChat(newFakeTransport(newFakeLocal("ada-id")), "ada-id", "Ada")

	payload := wirePayload(t, "m1", "grace-id", "Grace", "hi")
	chat.Receive(payload)
	chat.Receive(payload)

	assert.Len(t, chat.Messages(), 1)
}

func TestChatReceiveMalformedIgnored(t *testing.T) {
	chat := NewChat(newFakeTransport(newFakeLocal("ada-id")), "ada-id", "Ada")

	chat.Receive([]byte("not json"))
	chat.Receive([]byte(`{"type":"presence","id":"x"}`))
	chat.Receive([]byte(`{}`))

	assert.Empty(t, chat.Messages())
}

func TestChatInterleavedArrivalOrder(t *testing.T) {
	local := newFakeLocal("ada-id")
	chat := NewChat(newFakeTransport(local), "ada-id", "Ada")

	require.NoError(t, chat.Send(context.Background(), "one"))
	chat.Receive(wirePayload(t, "m1", "grace-id", "Grace", "two"))
	require.NoError(t, chat.Send(context.Background(), "three"))

	msgs := chat.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "two", msgs[1].Text)
	assert.Equal(t, "three", msgs[2].Text)
}

func wirePayload(t *testing.T, id, identity, name, text string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]string{
		"type":           "chat",
		"id":             id,
		"senderName":     name,
		"senderIdentity": identity,
		"message":        text,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	return payload
}
