package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPresence_Thresholds(t *testing.T) {
	now := time.Now().Unix()

	rec := &PresenceRecord{UserID: "peer-1", Status: "online", UpdatedAt: now - 2*60}
	assert.Equal(t, PresenceOnline, ClassifyPresence(rec, now))

	rec.UpdatedAt = now - 30*60
	assert.Equal(t, PresenceRecent, ClassifyPresence(rec, now))

	rec.UpdatedAt = now - 90*60
	assert.Equal(t, PresenceOffline, ClassifyPresence(rec, now))
}

func TestClassifyPresence_AwayStatus(t *testing.T) {
	now := time.Now().Unix()

	// away only matters inside the online window
	rec := &PresenceRecord{UserID: "peer-1", Status: StatusAway, UpdatedAt: now - 60}
	assert.Equal(t, PresenceAway, ClassifyPresence(rec, now))

	rec.UpdatedAt = now - 30*60
	assert.Equal(t, PresenceRecent, ClassifyPresence(rec, now))
}

func TestClassifyPresence_NoRecord(t *testing.T) {
	now := time.Now().Unix()
	assert.Equal(t, PresenceOffline, ClassifyPresence(nil, now))
}

func TestInferPresenceFromActivity(t *testing.T) {
	now := time.Now().Unix()

	assert.Equal(t, PresenceOnline, InferPresenceFromActivity(now-60, now))
	assert.Equal(t, PresenceRecent, InferPresenceFromActivity(now-10*60, now))
	assert.Equal(t, PresenceOffline, InferPresenceFromActivity(now-2*60*60, now))
	assert.Equal(t, PresenceOffline, InferPresenceFromActivity(0, now))
}
