package app

import (
	"context"
	"fmt"
	"time"

	"chat_roster_service/internal/roster/domain"
	"chat_roster_service/internal/roster/repository"
	"chat_roster_service/pkg"
	errprocess "chat_roster_service/pkg/err"
	"chat_roster_service/pkg/logger"

	"go.uber.org/zap"
)

// BuildRosterUseCase one-shot bulk load producing the initial roster. The
// only place a full unread recount happens; everything after it is the
// merger's incremental accounting.
type BuildRosterUseCase struct {
	bulkRepo    repository.BulkReadRepository
	contactRepo repository.ContactRepository
	nowFn       func() int64
}

// NewBuildRosterUseCase init create roster build use case
func NewBuildRosterUseCase(
	bulkRepo repository.BulkReadRepository,
	contactRepo repository.ContactRepository,
) *BuildRosterUseCase {
	return &BuildRosterUseCase{
		bulkRepo:    bulkRepo,
		contactRepo: contactRepo,
		nowFn:       func() int64 { return time.Now().Unix() },
	}
}

// Execute build the full initial roster for userID. Failing to enumerate
// memberships is fatal; every enrichment lookup degrades to a fallback.
func (uc *BuildRosterUseCase) Execute(ctx context.Context, userID string) ([]*RosterEntry, error) {
	memberships, err := uc.bulkRepo.ListMemberships(ctx, userID)
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("roster unavailable, list memberships failed: %v", err))
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	convIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		convIDs = append(convIDs, m.ConversationID)
	}

	// participant sets decide group vs 1:1 and identify the peer
	sets := make(map[string]domain.ParticipantSet, len(convIDs))
	participants, err := uc.bulkRepo.ListParticipants(ctx, convIDs)
	if err != nil {
		logger.Log.Warn("participant fetch failed, records degrade to fallback labels", zap.Error(err))
	}
	for _, p := range participants {
		set := sets[p.ConversationID]
		set.ConversationID = p.ConversationID
		set.Members = append(set.Members, p)
		sets[p.ConversationID] = set
	}

	names, err := uc.bulkRepo.ConversationNames(ctx, convIDs)
	if err != nil {
		logger.Log.Warn("conversation name fetch failed, using fallback labels", zap.Error(err))
		names = nil
	}

	// latest message per conversation; a failure degrades every record to
	// "no messages yet" but the roster still builds
	lastByConv := make(map[string]*domain.MessageSummary)
	msgs, err := uc.bulkRepo.LatestMessagePerConversation(ctx, convIDs)
	if err != nil {
		logger.Log.Warn("latest message fetch failed, roster degrades to empty conversations", zap.Error(err))
	}
	for i := range msgs {
		m := msgs[i]
		lastByConv[m.ConversationID] = &m
	}

	peerByConv := make(map[string]string, len(convIDs))
	var peerIDs []string
	for _, id := range convIDs {
		if peer := sets[id].OtherParticipant(userID); peer != "" {
			peerByConv[id] = peer
			peerIDs = append(peerIDs, peer)
		}
	}

	receipts := uc.fetchReceipts(ctx, userID, convIDs, peerByConv, lastByConv, sets)
	presenceByUser := uc.fetchPresence(ctx, peerIDs)
	profiles, overrides := uc.fetchContacts(ctx, userID, peerIDs)

	now := uc.nowFn()

	entries := make([]*RosterEntry, 0, len(memberships))
	for _, membership := range memberships {
		convID := membership.ConversationID
		set := sets[convID]
		convType := set.Type()
		peer := peerByConv[convID]
		last := lastByConv[convID]

		e := NewRosterEntry()
		e.PeerID = peer
		rec := &e.Record
		rec.ConversationID = convID
		rec.Type = convType
		rec.JoinedAt = membership.JoinedAt

		uc.fillIdentity(rec, set, peer, names[convID], profiles, overrides)

		if last != nil {
			rec.LastMessage = last.Body
			rec.LastMessageID = last.ID
			rec.LastMessageAt = last.CreatedAt
			rec.LastMessageSenderID = last.SenderID

			if last.SenderID != userID {
				// initial unread count: latest inbound message without a
				// read receipt for me
				myReceipt := receipts[receiptKey{last.ID, userID}]
				if myReceipt == nil || myReceipt.ReadAt == nil {
					e.countedUnread[last.ID] = struct{}{}
					rec.UnreadCount = 1
				}
			} else if peer != "" {
				rec.LastReceiptStatus = domain.ResolveReceiptStatus(last, userID, convType, receipts[receiptKey{last.ID, peer}])
			}
		}

		if peer != "" {
			if p, ok := presenceByUser[peer]; ok {
				rec.Presence = domain.ClassifyPresence(p, now)
				e.presenceFromRecord = true
				e.presenceUpdatedAt = p.UpdatedAt
			} else if last != nil {
				// inferred from activity, yields to any real record later
				rec.Presence = domain.InferPresenceFromActivity(last.CreatedAt, now)
			}
		}

		entries = append(entries, e)
	}

	return entries, nil
}

type receiptKey struct {
	messageID string
	userID    string
}

func (uc *BuildRosterUseCase) fetchReceipts(
	ctx context.Context,
	userID string,
	convIDs []string,
	peerByConv map[string]string,
	lastByConv map[string]*domain.MessageSummary,
	sets map[string]domain.ParticipantSet,
) map[receiptKey]*domain.ReceiptRecord {
	var messageIDs, recipientIDs []string
	for _, convID := range convIDs {
		last := lastByConv[convID]
		if last == nil {
			continue
		}
		if last.SenderID == userID {
			// receipt from the peer upgrades sent -> delivered -> read
			if peer := peerByConv[convID]; peer != "" && sets[convID].Type() == domain.ConversationPrivate {
				messageIDs = append(messageIDs, last.ID)
				if !pkg.Contains(recipientIDs, peer) {
					recipientIDs = append(recipientIDs, peer)
				}
			}
			continue
		}
		// my own receipt decides whether the latest inbound message counts
		// as unread
		messageIDs = append(messageIDs, last.ID)
		if !pkg.Contains(recipientIDs, userID) {
			recipientIDs = append(recipientIDs, userID)
		}
	}

	result := make(map[receiptKey]*domain.ReceiptRecord)
	if len(messageIDs) == 0 {
		return result
	}

	recs, err := uc.bulkRepo.ReceiptsForMessages(ctx, messageIDs, recipientIDs)
	if err != nil {
		logger.Log.Warn("receipt fetch failed, records degrade to no receipt icon", zap.Error(err))
		return result
	}
	for i := range recs {
		r := recs[i]
		result[receiptKey{r.MessageID, r.UserID}] = &r
	}
	return result
}

func (uc *BuildRosterUseCase) fetchPresence(ctx context.Context, peerIDs []string) map[string]*domain.PresenceRecord {
	result := make(map[string]*domain.PresenceRecord)
	if len(peerIDs) == 0 {
		return result
	}

	recs, err := uc.bulkRepo.PresenceForUsers(ctx, peerIDs)
	if err != nil {
		logger.Log.Warn("presence fetch failed, records degrade to no badge", zap.Error(err))
		return result
	}
	for i := range recs {
		r := recs[i]
		result[r.UserID] = &r
	}
	return result
}

func (uc *BuildRosterUseCase) fetchContacts(ctx context.Context, userID string, peerIDs []string) (map[string]domain.Profile, map[string]domain.ProfileOverride) {
	var profiles map[string]domain.Profile
	if len(peerIDs) > 0 {
		var err error
		profiles, err = uc.contactRepo.ProfilesForUsers(ctx, peerIDs)
		if err != nil {
			logger.Log.Warn("profile fetch failed, records degrade to fallback labels", zap.Error(err))
			profiles = nil
		}
	}

	overrides, err := uc.contactRepo.ProfileOverrides(ctx, userID)
	if err != nil {
		logger.Log.Warn("override fetch failed, nicknames unavailable", zap.Error(err))
		overrides = nil
	}
	return profiles, overrides
}

func (uc *BuildRosterUseCase) fillIdentity(
	rec *domain.ConversationDisplayRecord,
	set domain.ParticipantSet,
	peer string,
	convName string,
	profiles map[string]domain.Profile,
	overrides map[string]domain.ProfileOverride,
) {
	if rec.Type == domain.ConversationGroup {
		rec.DisplayName = convName
		if rec.DisplayName == "" {
			rec.DisplayName = "Unnamed group"
		}
		rec.DisplaySubtitle = fmt.Sprintf("%d members", len(set.Members))
		return
	}

	override := overrides[peer]
	profile := profiles[peer]
	switch {
	case override.Name != "":
		rec.DisplayName = override.Name
	case profile.Name != "":
		rec.DisplayName = profile.Name
	default:
		rec.DisplayName = "Unknown user"
	}
	rec.DisplaySubtitle = override.Title
	rec.AvatarRef = profile.AvatarRef
}
