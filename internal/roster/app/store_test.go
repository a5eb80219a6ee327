package app

import (
	"testing"

	"chat_roster_service/internal/roster/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStore_ReplaceAllIdempotent(t *testing.T) {
	me := uuid.NewString()
	s := NewRosterStore(me)

	build := func() []*RosterEntry {
		a := newTestEntry("conv-a", "peer-a", domain.ConversationPrivate)
		a.Record.LastMessageAt = testNow - 10
		b := newTestEntry("conv-b", "peer-b", domain.ConversationPrivate)
		b.Record.LastMessageAt = testNow - 20
		return []*RosterEntry{a, b}
	}

	s.ReplaceAll(build())
	first := s.Snapshot()
	s.ReplaceAll(build())
	second := s.Snapshot()

	assert.Equal(t, first, second)
	assert.Len(t, second, 2)
}

func TestStore_SnapshotOrdering(t *testing.T) {
	me := uuid.NewString()
	s := NewRosterStore(me)

	active := newTestEntry("conv-active", "p1", domain.ConversationPrivate)
	active.Record.LastMessageAt = testNow - 10
	quiet := newTestEntry("conv-quiet", "p2", domain.ConversationPrivate)
	quiet.Record.LastMessageAt = testNow - 500
	// no messages yet, ordered by join time instead
	empty := newTestEntry("conv-empty", "p3", domain.ConversationPrivate)
	empty.Record.JoinedAt = testNow - 100

	s.ReplaceAll([]*RosterEntry{quiet, empty, active})

	got := s.Snapshot()
	assert.Len(t, got, 3)
	assert.Equal(t, "conv-active", got[0].ConversationID)
	assert.Equal(t, "conv-empty", got[1].ConversationID)
	assert.Equal(t, "conv-quiet", got[2].ConversationID)
}

func TestStore_ApplyPublishesChangedRecord(t *testing.T) {
	me := uuid.NewString()
	peer := uuid.NewString()
	convID := uuid.NewString()

	s := NewRosterStore(me)
	s.ReplaceAll([]*RosterEntry{newTestEntry(convID, peer, domain.ConversationPrivate)})

	var got []Update
	unsubscribe := s.Subscribe(func(u Update) { got = append(got, u) })

	s.Apply(messageEvent(convID, "m1", peer, testNow-5))

	assert.Len(t, got, 1)
	assert.Equal(t, UpdateMessage, got[0].Reason)
	assert.NotNil(t, got[0].Record)
	assert.Equal(t, convID, got[0].Record.ConversationID)
	assert.Equal(t, 1, got[0].Record.UnreadCount)

	// dropped event publishes nothing
	s.Apply(messageEvent(uuid.NewString(), "m2", peer, testNow))
	assert.Len(t, got, 1)

	unsubscribe()
	s.Apply(messageEvent(convID, "m3", peer, testNow-1))
	assert.Len(t, got, 1)
}

func TestStore_SetStateNotifiesOnChange(t *testing.T) {
	s := NewRosterStore(uuid.NewString())
	assert.Equal(t, StateLoading, s.State())

	var got []Update
	s.Subscribe(func(u Update) { got = append(got, u) })

	s.SetState(StateReady)
	assert.Equal(t, StateReady, s.State())
	assert.Len(t, got, 1)
	assert.Equal(t, UpdateState, got[0].Reason)
	assert.Equal(t, StateReady, got[0].State)

	// same state again is silent
	s.SetState(StateReady)
	assert.Len(t, got, 1)

	s.SetState(StateStale)
	assert.Len(t, got, 2)
	assert.Equal(t, StateStale, got[1].State)
}
