package domain

// ConversationType definition conversation type
type ConversationType string

const (
	// ConversationPrivate definition conversation 1 on 1
	ConversationPrivate ConversationType = "private"
	// ConversationGroup definition conversation group
	ConversationGroup ConversationType = "group"
)

// Membership links a user to a conversation
type Membership struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Role           string `json:"role"`
	JoinedAt       int64  `json:"joined_at"`
}

// ParticipantSet every membership row of one conversation
type ParticipantSet struct {
	ConversationID string
	Members        []Membership
}

// Type more than two members means a group conversation
func (p ParticipantSet) Type() ConversationType {
	if len(p.Members) > 2 {
		return ConversationGroup
	}
	return ConversationPrivate
}

// OtherParticipant resolve the peer of a 1:1 conversation.
// Returns "" for groups or when the set only holds the current user.
func (p ParticipantSet) OtherParticipant(currentUserID string) string {
	if p.Type() == ConversationGroup {
		return ""
	}
	for _, m := range p.Members {
		if m.UserID != currentUserID {
			return m.UserID
		}
	}
	return ""
}

// Profile display info of a peer from the contacts store
type Profile struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	AvatarRef string `json:"avatar_ref"`
}

// ProfileOverride per-user nickname/title override for one peer
type ProfileOverride struct {
	Name  string `json:"name,omitempty"`
	Title string `json:"title,omitempty"`
}
