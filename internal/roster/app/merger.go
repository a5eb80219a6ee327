package app

import (
	"time"

	"chat_roster_service/internal/roster/domain"
	"chat_roster_service/pkg/logger"

	"go.uber.org/zap"
)

// EventMerger the reconciliation engine: one event at a time against the
// current roster entries, strictly in the order the caller hands them over.
// Timestamp monotonicity is enforced here so arrival order does not have to
// equal causal order for lastMessage* and presence fields. Not safe for
// concurrent use, the store serializes calls.
type EventMerger struct {
	userID string
	nowFn  func() int64
}

// NewEventMerger create EventMerger for the given current user
func NewEventMerger(userID string) *EventMerger {
	return &EventMerger{
		userID: userID,
		nowFn:  func() int64 { return time.Now().Unix() },
	}
}

// Apply merge one event into entries. Returns the entries it changed and the
// matching update reason; an empty slice means the event was dropped or had
// no effect.
func (m *EventMerger) Apply(entries map[string]*RosterEntry, ev domain.RosterEvent) ([]*RosterEntry, UpdateReason) {
	switch ev.Kind {
	case domain.EventNewMessage:
		return m.applyNewMessage(entries, ev.NewMessage), UpdateMessage
	case domain.EventReceiptUpdated:
		return m.applyReceipt(entries, ev.Receipt), UpdateReceipt
	case domain.EventPresenceChanged:
		return m.applyPresence(entries, ev.Presence), UpdatePresence
	}
	logger.Log.Debug("unhandled event kind, dropped", zap.String("kind", string(ev.Kind)))
	return nil, ""
}

func (m *EventMerger) applyNewMessage(entries map[string]*RosterEntry, ev *domain.NewMessageEvent) []*RosterEntry {
	e, ok := entries[ev.ConversationID]
	if !ok {
		// not a member, benign cross-talk on the shared channel
		logger.Log.Debug("message event for unknown conversation, dropped",
			zap.String("conversation_id", ev.ConversationID))
		return nil
	}

	// monotonic last-writer-wins, reordered delivery must not regress
	if ev.CreatedAt < e.Record.LastMessageAt {
		return nil
	}

	e.Record.LastMessage = ev.Body
	e.Record.LastMessageID = ev.MessageID
	e.Record.LastMessageAt = ev.CreatedAt
	e.Record.LastMessageSenderID = ev.SenderID

	if ev.SenderID == m.userID {
		// a freshly sent message has no receipt yet
		if e.Record.Type == domain.ConversationPrivate {
			e.Record.LastReceiptStatus = domain.ReceiptSent
		}
		return []*RosterEntry{e}
	}

	e.Record.LastReceiptStatus = domain.ReceiptNone
	if _, counted := e.countedUnread[ev.MessageID]; !counted {
		e.countedUnread[ev.MessageID] = struct{}{}
		e.Record.UnreadCount++
	}
	return []*RosterEntry{e}
}

func (m *EventMerger) applyReceipt(entries map[string]*RosterEntry, ev *domain.ReceiptUpdatedEvent) []*RosterEntry {
	e, ok := entries[ev.ConversationID]
	if !ok {
		logger.Log.Debug("receipt event for unknown conversation, dropped",
			zap.String("message_id", ev.MessageID))
		return nil
	}

	if ev.UserID == m.userID {
		// I read a message that was sent to me, settle the unread counter.
		// The counted set guarantees at most one decrement per message.
		if ev.ReadAt == nil {
			return nil
		}
		if _, counted := e.countedUnread[ev.MessageID]; !counted {
			return nil
		}
		delete(e.countedUnread, ev.MessageID)
		if e.Record.UnreadCount > 0 {
			e.Record.UnreadCount--
		}
		return []*RosterEntry{e}
	}

	// the peer acknowledged a message I sent
	if ev.SenderID != m.userID || e.Record.Type != domain.ConversationPrivate {
		return nil
	}
	if ev.MessageID != e.Record.LastMessageID {
		// receipt for a superseded message, no regression
		return nil
	}

	resolved := domain.ResolveReceiptStatus(
		&domain.MessageSummary{ID: ev.MessageID, SenderID: ev.SenderID},
		m.userID,
		e.Record.Type,
		&domain.ReceiptRecord{
			MessageID:   ev.MessageID,
			UserID:      ev.UserID,
			DeliveredAt: ev.DeliveredAt,
			ReadAt:      ev.ReadAt,
		},
	)
	merged := domain.MaxReceiptStatus(e.Record.LastReceiptStatus, resolved)
	if merged == e.Record.LastReceiptStatus {
		return nil
	}
	e.Record.LastReceiptStatus = merged
	return []*RosterEntry{e}
}

func (m *EventMerger) applyPresence(entries map[string]*RosterEntry, ev *domain.PresenceChangedEvent) []*RosterEntry {
	now := m.nowFn()

	var changed []*RosterEntry
	for _, e := range entries {
		if e.Record.Type != domain.ConversationPrivate || e.PeerID != ev.UserID {
			continue
		}
		// latest wins by updatedAt; a record-derived value is never replaced
		// by an older event, an inferred one always yields. A row delete has
		// no meaningful timestamp and always applies: the presence is gone.
		if !ev.Removed && e.presenceFromRecord && ev.UpdatedAt < e.presenceUpdatedAt {
			continue
		}

		if ev.Removed {
			e.Record.Presence = domain.PresenceOffline
		} else {
			e.Record.Presence = domain.ClassifyPresence(&domain.PresenceRecord{
				UserID:    ev.UserID,
				Status:    ev.Status,
				UpdatedAt: ev.UpdatedAt,
			}, now)
		}
		e.presenceFromRecord = true
		e.presenceUpdatedAt = ev.UpdatedAt
		changed = append(changed, e)
	}
	return changed
}
