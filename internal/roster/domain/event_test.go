package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeMessageEvent(t *testing.T) {
	payload := json.RawMessage(`{"conversation_id":"c1","message_id":"m1","sender_id":"u1","body":"hi","created_at":100}`)
	ev, err := DecodeMessageEvent(payload)
	assert.NoError(t, err)
	assert.Equal(t, "c1", ev.ConversationID)
	assert.Equal(t, int64(100), ev.CreatedAt)
}

func TestDecodeMessageEvent_MissingIdentifiers(t *testing.T) {
	payload := json.RawMessage(`{"message_id":"m1","body":"hi","created_at":100}`)
	_, err := DecodeMessageEvent(payload)
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestDecodeReceiptEvent(t *testing.T) {
	payload := json.RawMessage(`{"message_id":"m1","user_id":"u1","delivered_at":150}`)
	ev, err := DecodeReceiptEvent(payload)
	assert.NoError(t, err)
	assert.Equal(t, "m1", ev.MessageID)
	assert.Equal(t, int64(150), *ev.DeliveredAt)
	assert.Nil(t, ev.ReadAt)

	_, err = DecodeReceiptEvent(json.RawMessage(`{"user_id":"u1"}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestDecodePresenceEvent_Removed(t *testing.T) {
	payload := json.RawMessage(`{"user_id":"u1","status":"online","updated_at":100}`)

	ev, err := DecodePresenceEvent(payload, false)
	assert.NoError(t, err)
	assert.False(t, ev.Removed)

	ev, err = DecodePresenceEvent(payload, true)
	assert.NoError(t, err)
	assert.True(t, ev.Removed)

	_, err = DecodePresenceEvent(json.RawMessage(`{"status":"online"}`), false)
	assert.ErrorIs(t, err, ErrMalformedEvent)
}
