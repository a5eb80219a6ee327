package domain

// MessageSummary the most recent message of a conversation.
// Only the latest summary per conversation is kept; messages are immutable.
type MessageSummary struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Body           string `json:"body"`
	CreatedAt      int64  `json:"created_at"`
}

// ReceiptRecord one row per (message, recipient)
type ReceiptRecord struct {
	MessageID   string `json:"message_id"`
	UserID      string `json:"user_id"`
	DeliveredAt *int64 `json:"delivered_at"`
	ReadAt      *int64 `json:"read_at"`
}

// ReceiptStatus display status of the last message the current user sent
type ReceiptStatus string

const (
	// ReceiptNone no status, group conversation or last sender is not me
	ReceiptNone ReceiptStatus = ""
	// ReceiptSent message exists but no receipt row yet
	ReceiptSent ReceiptStatus = "sent"
	// ReceiptDelivered deliveredAt set, readAt still null
	ReceiptDelivered ReceiptStatus = "delivered"
	// ReceiptRead readAt set, supersedes delivered
	ReceiptRead ReceiptStatus = "read"
)

// receiptRank read > delivered > sent > none, used for the monotonic merge
func receiptRank(s ReceiptStatus) int {
	switch s {
	case ReceiptRead:
		return 3
	case ReceiptDelivered:
		return 2
	case ReceiptSent:
		return 1
	}
	return 0
}

// MaxReceiptStatus keep the higher of two statuses, never regress
func MaxReceiptStatus(a, b ReceiptStatus) ReceiptStatus {
	if receiptRank(b) > receiptRank(a) {
		return b
	}
	return a
}

// ResolveReceiptStatus map the receipt row of my last outgoing 1:1 message
// to a display status. readAt implies delivered, regardless of which field
// arrived first.
func ResolveReceiptStatus(last *MessageSummary, currentUserID string, convType ConversationType, rec *ReceiptRecord) ReceiptStatus {
	if last == nil || convType == ConversationGroup || last.SenderID != currentUserID {
		return ReceiptNone
	}
	if rec == nil {
		return ReceiptSent
	}
	if rec.ReadAt != nil {
		return ReceiptRead
	}
	if rec.DeliveredAt != nil {
		return ReceiptDelivered
	}
	return ReceiptSent
}
