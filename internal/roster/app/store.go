package app

import (
	"sync"

	"chat_roster_service/internal/roster/domain"
)

// LoadState roster lifecycle as seen by the presentation layer. It only ever
// observes a populated roster, an explicit failure with retry, or a
// populated-but-possibly-stale roster; never a partial one.
type LoadState string

const (
	// StateLoading bulk load in flight
	StateLoading LoadState = "loading"
	// StateReady roster populated and live
	StateReady LoadState = "ready"
	// StateFailed memberships could not be enumerated, roster unavailable
	StateFailed LoadState = "failed"
	// StateStale feed resubscription keeps failing, roster kept but may lag
	StateStale LoadState = "stale"
)

// UpdateReason discriminates what a published update carries
type UpdateReason string

const (
	// UpdateReplace the whole roster was replaced by a bulk load
	UpdateReplace UpdateReason = "replace"
	// UpdateMessage a last-message change on one record
	UpdateMessage UpdateReason = "message"
	// UpdateReceipt a receipt status or unread change on one record
	UpdateReceipt UpdateReason = "receipt"
	// UpdatePresence a presence change on one record
	UpdatePresence UpdateReason = "presence"
	// UpdateState the load state changed, Record is nil
	UpdateState UpdateReason = "state"
)

// Update one change notification pushed to subscribers
type Update struct {
	Reason UpdateReason
	Record *domain.ConversationDisplayRecord
	State  LoadState
}

// RosterEntry one conversation in the store: the exposed display record plus
// the working state the merger needs (peer identity, counted-unread message
// ids, presence provenance)
type RosterEntry struct {
	Record domain.ConversationDisplayRecord
	PeerID string

	countedUnread      map[string]struct{}
	presenceFromRecord bool
	presenceUpdatedAt  int64
}

// NewRosterEntry create an entry with its working state initialized
func NewRosterEntry() *RosterEntry {
	return &RosterEntry{countedUnread: make(map[string]struct{})}
}

// RosterStore holds the authoritative in-memory roster, keyed by conversation
// id. All mutation goes through ReplaceAll and Apply; Apply is meant to be
// called from a single goroutine (the subscription manager), the lock exists
// so Snapshot and Subscribe are safe from the delivery goroutines.
type RosterStore struct {
	userID string
	merger *EventMerger

	mu      sync.RWMutex
	entries map[string]*RosterEntry
	state   LoadState

	subMu   sync.Mutex
	subs    map[int]func(Update)
	nextSub int
}

// NewRosterStore create RosterStore for the given current user
func NewRosterStore(userID string) *RosterStore {
	return &RosterStore{
		userID:  userID,
		merger:  NewEventMerger(userID),
		entries: make(map[string]*RosterEntry),
		state:   StateLoading,
		subs:    make(map[int]func(Update)),
	}
}

// UserID current user this store belongs to
func (s *RosterStore) UserID() string {
	return s.userID
}

// ReplaceAll install the result of a bulk load, replacing whatever was held.
// Idempotent: replacing with the same entries yields the same snapshot.
func (s *RosterStore) ReplaceAll(entries []*RosterEntry) {
	s.mu.Lock()
	s.entries = make(map[string]*RosterEntry, len(entries))
	for _, e := range entries {
		s.entries[e.Record.ConversationID] = e
	}
	s.mu.Unlock()

	s.publish(Update{Reason: UpdateReplace})
}

// Apply merge one live event and publish the resulting per-record updates
func (s *RosterStore) Apply(ev domain.RosterEvent) {
	s.mu.Lock()
	changed, reason := s.merger.Apply(s.entries, ev)
	updates := make([]Update, 0, len(changed))
	for _, e := range changed {
		rec := e.Record
		updates = append(updates, Update{Reason: reason, Record: &rec})
	}
	s.mu.Unlock()

	for _, u := range updates {
		s.publish(u)
	}
}

// Snapshot the ordered roster, latest activity first
func (s *RosterStore) Snapshot() []domain.ConversationDisplayRecord {
	s.mu.RLock()
	records := make([]domain.ConversationDisplayRecord, 0, len(s.entries))
	for _, e := range s.entries {
		records = append(records, e.Record)
	}
	s.mu.RUnlock()

	domain.SortDisplayRecords(records)
	return records
}

// Subscribe register a listener invoked on every change; the returned
// function unsubscribes it
func (s *RosterStore) Subscribe(fn func(Update)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// State current load state
func (s *RosterStore) State() LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState move the load state and notify subscribers on change
func (s *RosterStore) SetState(state LoadState) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()

	s.publish(Update{Reason: UpdateState, State: state})
}

func (s *RosterStore) publish(u Update) {
	s.subMu.Lock()
	fns := make([]func(Update), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}
