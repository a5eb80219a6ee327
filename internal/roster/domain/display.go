package domain

import "sort"

// ConversationDisplayRecord the roster entry handed to the presentation
// layer. The only aggregate this core exposes; everything else is a working
// representation used to compute it.
type ConversationDisplayRecord struct {
	ConversationID  string           `json:"conversation_id"`
	Type            ConversationType `json:"type"`
	DisplayName     string           `json:"display_name"`
	DisplaySubtitle string           `json:"display_subtitle,omitempty"`
	AvatarRef       string           `json:"avatar_ref,omitempty"`

	LastMessage         string `json:"last_message,omitempty"`
	LastMessageID       string `json:"last_message_id,omitempty"`
	LastMessageAt       int64  `json:"last_message_at,omitempty"`
	LastMessageSenderID string `json:"last_message_sender_id,omitempty"`

	LastReceiptStatus ReceiptStatus `json:"last_receipt_status,omitempty"`
	UnreadCount       int           `json:"unread_count"`
	Presence          PresenceState `json:"presence,omitempty"`

	JoinedAt int64 `json:"joined_at"`
}

// SortDisplayRecords order by last message time descending, falling back to
// join time when a conversation has no messages yet.
func SortDisplayRecords(records []ConversationDisplayRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		at, bt := a.LastMessageAt, b.LastMessageAt
		if at == 0 {
			at = a.JoinedAt
		}
		if bt == 0 {
			bt = b.JoinedAt
		}
		if at != bt {
			return at > bt
		}
		return a.ConversationID < b.ConversationID
	})
}
