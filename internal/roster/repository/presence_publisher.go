package repository

import (
	"encoding/json"
	"sync"
	"time"

	"chat_roster_service/internal/roster/domain"
	"chat_roster_service/pkg/logger"

	"go.uber.org/zap"
)

// PresencePublisher publishes the current user's own liveness with trailing
// debounce semantics: concurrent calls collapse into the most recent pending
// value, one write goes out per quiet window. Decoupled from the
// reconciliation engine, single writer.
type PresencePublisher struct {
	feed     FeedPublisher
	debounce time.Duration

	mu      sync.Mutex
	pending *domain.PresenceRecord
	timer   *time.Timer
	closed  bool
}

// NewPresencePublisher create PresencePublisher
func NewPresencePublisher(feed FeedPublisher, debounce time.Duration) *PresencePublisher {
	return &PresencePublisher{
		feed:     feed,
		debounce: debounce,
	}
}

// Publish queue a liveness write, replacing any pending one
func (p *PresencePublisher) Publish(userID, status string, updatedAt int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.pending = &domain.PresenceRecord{
		UserID:    userID,
		Status:    status,
		UpdatedAt: updatedAt,
	}

	if p.timer == nil {
		p.timer = time.AfterFunc(p.debounce, p.flush)
	} else {
		p.timer.Reset(p.debounce)
	}
}

// Flush write any pending value immediately
func (p *PresencePublisher) Flush() {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()
	p.flush()
}

// Close stop the publisher, flushing the last pending write
func (p *PresencePublisher) Close() {
	p.Flush()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *PresencePublisher) flush() {
	p.mu.Lock()
	rec := p.pending
	p.pending = nil
	p.mu.Unlock()

	if rec == nil {
		return
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		logger.Log.Errorf("presence encode err:", err)
		return
	}

	item := domain.FeedItem{
		Table:   domain.TablePresence,
		Op:      "update",
		Payload: payload,
	}
	if err := p.feed.Publish(domain.TablePresence, item); err != nil {
		logger.Log.Warn("presence publish failed", zap.String("user_id", rec.UserID), zap.Error(err))
	}
}
