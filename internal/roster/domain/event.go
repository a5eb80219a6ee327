package domain

import (
	"encoding/json"
	"errors"
)

// EventKind discriminator of the live change event union
type EventKind string

const (
	// EventNewMessage a message row was inserted
	EventNewMessage EventKind = "new_message"
	// EventReceiptUpdated a receipt row was inserted or updated
	EventReceiptUpdated EventKind = "receipt_updated"
	// EventPresenceChanged a presence row was inserted, updated or deleted
	EventPresenceChanged EventKind = "presence_changed"
)

// feed table names, suffix of the pub/sub channel the row arrived on
const (
	// TableMessages message insert channel
	TableMessages = "messages"
	// TableReceipts receipt upsert channel
	TableReceipts = "receipts"
	// TablePresence presence change channel
	TablePresence = "presence"
)

// FeedItem one raw item from the live change feed
type FeedItem struct {
	Table   string          `json:"table"`
	Op      string          `json:"op"` // insert / update / delete
	Payload json.RawMessage `json:"payload"`
}

// OpDelete delete operation tag on a feed item
const OpDelete = "delete"

// NewMessageEvent a freshly inserted message
type NewMessageEvent struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	Body           string `json:"body"`
	CreatedAt      int64  `json:"created_at"`
}

// ReceiptUpdatedEvent a receipt row change. The raw row only carries message
// and user ids; ConversationID and SenderID are resolved out-of-band by the
// subscription manager before the merger sees the event.
type ReceiptUpdatedEvent struct {
	MessageID   string `json:"message_id"`
	UserID      string `json:"user_id"`
	DeliveredAt *int64 `json:"delivered_at"`
	ReadAt      *int64 `json:"read_at"`

	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
}

// PresenceChangedEvent a presence row change. Removed marks a row delete,
// which drops the user back to unknown (offline).
type PresenceChangedEvent struct {
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	UpdatedAt int64  `json:"updated_at"`
	Removed   bool   `json:"removed,omitempty"`
}

// RosterEvent tagged union over the three merger inputs
type RosterEvent struct {
	Kind       EventKind
	NewMessage *NewMessageEvent
	Receipt    *ReceiptUpdatedEvent
	Presence   *PresenceChangedEvent
}

// decode errors, malformed payloads are logged and dropped by the caller
var (
	// ErrMalformedEvent payload is missing required identifiers
	ErrMalformedEvent = errors.New("malformed feed payload")
	// ErrUnknownTable feed item from a table this core does not consume
	ErrUnknownTable = errors.New("unknown feed table")
)

// DecodeMessageEvent parse and validate a message row payload
func DecodeMessageEvent(payload json.RawMessage) (*NewMessageEvent, error) {
	var ev NewMessageEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	if ev.ConversationID == "" || ev.MessageID == "" || ev.SenderID == "" || ev.CreatedAt == 0 {
		return nil, ErrMalformedEvent
	}
	return &ev, nil
}

// DecodeReceiptEvent parse and validate a receipt row payload
func DecodeReceiptEvent(payload json.RawMessage) (*ReceiptUpdatedEvent, error) {
	var ev ReceiptUpdatedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	if ev.MessageID == "" || ev.UserID == "" {
		return nil, ErrMalformedEvent
	}
	return &ev, nil
}

// DecodePresenceEvent parse and validate a presence row payload
func DecodePresenceEvent(payload json.RawMessage, removed bool) (*PresenceChangedEvent, error) {
	var ev PresenceChangedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	if ev.UserID == "" {
		return nil, ErrMalformedEvent
	}
	ev.Removed = removed
	return &ev, nil
}
