package app

import (
	"context"
	"sync"
	"time"

	"chat_roster_service/internal/roster/domain"
	"chat_roster_service/internal/roster/repository"
	errprocess "chat_roster_service/pkg/err"
	"chat_roster_service/pkg/logger"

	"go.uber.org/zap"
)

type messageRef struct {
	conversationID string
	senderID       string
}

// SubscriptionManager owns the lifetime of the live event feed: opens it
// once, translates inbound items into merger events, resubscribes after a
// disconnect. One instance per roster store.
type SubscriptionManager struct {
	feed     repository.FeedRepository
	store    *RosterStore
	bulkRepo repository.BulkReadRepository

	retryInterval time.Duration
	retryCount    int

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	runCtx  context.Context

	refMu sync.Mutex
	refs  map[string]messageRef
}

// NewSubscriptionManager create SubscriptionManager
func NewSubscriptionManager(
	feed repository.FeedRepository,
	store *RosterStore,
	bulkRepo repository.BulkReadRepository,
	retryInterval time.Duration,
	retryCount int,
) *SubscriptionManager {
	return &SubscriptionManager{
		feed:          feed,
		store:         store,
		bulkRepo:      bulkRepo,
		retryInterval: retryInterval,
		retryCount:    retryCount,
		refs:          make(map[string]messageRef),
	}
}

// PrimeMessageIndex seed the message index from the bulk-loaded roster so
// receipts for the currently displayed messages resolve without a lookup
func (sm *SubscriptionManager) PrimeMessageIndex(records []domain.ConversationDisplayRecord) {
	sm.refMu.Lock()
	defer sm.refMu.Unlock()
	for _, rec := range records {
		if rec.LastMessageID == "" {
			continue
		}
		sm.refs[rec.LastMessageID] = messageRef{
			conversationID: rec.ConversationID,
			senderID:       rec.LastMessageSenderID,
		}
	}
}

// Start open the feed. Guarded against double-start.
func (sm *SubscriptionManager) Start() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.started {
		return errprocess.Set("subscription manager already started")
	}
	sm.started = true

	ctx, cancel := context.WithCancel(context.Background())
	sm.cancel = cancel
	sm.runCtx = ctx

	go sm.run(ctx)
	return nil
}

// Stop close the feed and stop delivering events to the merger
func (sm *SubscriptionManager) Stop() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.started {
		return
	}
	sm.started = false
	sm.cancel()
}

func (sm *SubscriptionManager) run(ctx context.Context) {
	failures := 0
	ready := func() {
		failures = 0
		// feed re-established, the stale indicator can clear
		if sm.store.State() == StateStale {
			sm.store.SetState(StateReady)
		}
	}

	for {
		err := sm.feed.Listen(ctx, ready, sm.handleItem)
		if ctx.Err() != nil {
			return
		}

		failures++
		logger.Log.Warn("live feed dropped, resubscribing",
			zap.Int("failures", failures), zap.Error(err))
		if failures > sm.retryCount && sm.store.State() == StateReady {
			// keep the roster, stale-but-present beats empty
			sm.store.SetState(StateStale)
		}

		select {
		case <-time.After(sm.retryInterval):
		case <-ctx.Done():
			return
		}
	}
}

// handleItem translate one feed item into a merger event and apply it.
// Malformed or unresolvable items are logged and dropped, never surfaced.
func (sm *SubscriptionManager) handleItem(item domain.FeedItem) {
	switch item.Table {
	case domain.TableMessages:
		ev, err := domain.DecodeMessageEvent(item.Payload)
		if err != nil {
			logger.Log.Warn("bad message payload, dropped", zap.Error(err))
			return
		}
		sm.remember(ev.MessageID, messageRef{ev.ConversationID, ev.SenderID})
		sm.store.Apply(domain.RosterEvent{Kind: domain.EventNewMessage, NewMessage: ev})

	case domain.TableReceipts:
		ev, err := domain.DecodeReceiptEvent(item.Payload)
		if err != nil {
			logger.Log.Warn("bad receipt payload, dropped", zap.Error(err))
			return
		}
		ref, err := sm.resolveMessage(ev.MessageID)
		if err != nil {
			// receipt for a message we never saw, benign race
			logger.Log.Debug("receipt for unknown message, dropped",
				zap.String("message_id", ev.MessageID), zap.Error(err))
			return
		}
		ev.ConversationID = ref.conversationID
		ev.SenderID = ref.senderID
		sm.store.Apply(domain.RosterEvent{Kind: domain.EventReceiptUpdated, Receipt: ev})

	case domain.TablePresence:
		ev, err := domain.DecodePresenceEvent(item.Payload, item.Op == domain.OpDelete)
		if err != nil {
			logger.Log.Warn("bad presence payload, dropped", zap.Error(err))
			return
		}
		sm.store.Apply(domain.RosterEvent{Kind: domain.EventPresenceChanged, Presence: ev})

	default:
		logger.Log.Debug("feed item from unknown table, dropped", zap.String("table", item.Table))
	}
}

func (sm *SubscriptionManager) remember(messageID string, ref messageRef) {
	sm.refMu.Lock()
	sm.refs[messageID] = ref
	sm.refMu.Unlock()
}

// resolveMessage find the conversation and sender a receipt refers to, from
// the index first and the store as fallback
func (sm *SubscriptionManager) resolveMessage(messageID string) (messageRef, error) {
	sm.refMu.Lock()
	ref, ok := sm.refs[messageID]
	sm.refMu.Unlock()
	if ok {
		return ref, nil
	}

	ctx := sm.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	msg, err := sm.bulkRepo.FindMessage(ctx, messageID)
	if err != nil {
		return messageRef{}, err
	}

	ref = messageRef{conversationID: msg.ConversationID, senderID: msg.SenderID}
	sm.remember(messageID, ref)
	return ref, nil
}
