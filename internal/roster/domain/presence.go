package domain

// PresenceRecord the most recent liveness signal known for a user
type PresenceRecord struct {
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	UpdatedAt int64  `json:"updated_at"`
}

// PresenceState coarse liveness bucket shown next to a 1:1 peer
type PresenceState string

const (
	// PresenceOffline no badge, record missing or older than an hour
	PresenceOffline PresenceState = ""
	// PresenceOnline seen within the last five minutes
	PresenceOnline PresenceState = "online"
	// PresenceAway seen within five minutes but marked away
	PresenceAway PresenceState = "away"
	// PresenceRecent seen between five and sixty minutes ago
	PresenceRecent PresenceState = "recent"
)

// StatusAway raw status value that downgrades online to away
const StatusAway = "away"

const (
	onlineWindowSec = 5 * 60
	recentWindowSec = 60 * 60
)

// ClassifyPresence map a presence record to a display state. Pure and total,
// a nil record classifies as offline.
func ClassifyPresence(rec *PresenceRecord, now int64) PresenceState {
	if rec == nil {
		return PresenceOffline
	}
	age := now - rec.UpdatedAt
	if age > recentWindowSec {
		return PresenceOffline
	}
	if age <= onlineWindowSec {
		if rec.Status == StatusAway {
			return PresenceAway
		}
		return PresenceOnline
	}
	return PresenceRecent
}

// InferPresenceFromActivity fallback for 1:1 peers with no presence row,
// same thresholds applied to the recency of their last message. An inferred
// state must never overwrite a record-derived one.
func InferPresenceFromActivity(lastMessageAt, now int64) PresenceState {
	if lastMessageAt == 0 {
		return PresenceOffline
	}
	return ClassifyPresence(&PresenceRecord{UpdatedAt: lastMessageAt}, now)
}
