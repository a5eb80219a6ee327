package bdd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"chat_roster_service/internal/roster/app"
	"chat_roster_service/internal/roster/domain"
	"chat_roster_service/internal/roster/repository"
	"chat_roster_service/pkg/logger"

	"github.com/cucumber/godog"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "roster_bdd_test")
	if err != nil {
		panic(err)
	}
	logger.Log = logger.Initialize("roster_bdd_test", dir)

	code := m.Run()

	os.RemoveAll(dir)
	os.Exit(code)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeRosterScenario,
		Options: &godog.Options{
			Paths:  []string{"./featureFiles"},
			Format: "pretty",
			Output: os.Stdout,
		},
	}

	if suite.Run() != 0 {
		t.Fail()
	}
}

func InitializeRosterScenario(s *godog.ScenarioContext) {
	s.Step(`^a loaded roster for user "([^"]*)" with a private conversation "([^"]*)" with peer "([^"]*)"$`, aLoadedRosterWithPrivateConversation)
	s.Step(`^a message "([^"]*)" from "([^"]*)" arrives in "([^"]*)"$`, aMessageArrives)
	s.Step(`^"([^"]*)" sends message "([^"]*)" in "([^"]*)"$`, userSendsMessage)
	s.Step(`^conversation "([^"]*)" shows last message "([^"]*)" with (\d+) unread$`, conversationShowsLastMessage)
	s.Step(`^conversation "([^"]*)" shows last message "([^"]*)" with receipt status "([^"]*)" and (\d+) unread$`, conversationShowsLastMessageAndReceipt)
	s.Step(`^"([^"]*)" acknowledges delivery of the last message in "([^"]*)"$`, peerAcknowledgesDelivery)
	s.Step(`^"([^"]*)" reads the last message in "([^"]*)"$`, peerReadsLastMessage)
	s.Step(`^conversation "([^"]*)" shows receipt status "([^"]*)"$`, conversationShowsReceiptStatus)
	s.Step(`^a presence update "([^"]*)" for "([^"]*)" arrives$`, aPresenceUpdateArrives)
	s.Step(`^the presence row for "([^"]*)" is removed$`, presenceRowRemoved)
	s.Step(`^conversation "([^"]*)" shows presence "([^"]*)"$`, conversationShowsPresence)
}

// channelFeed drives the subscription manager from the steps
type channelFeed struct {
	items chan domain.FeedItem
}

func (f *channelFeed) Listen(ctx context.Context, ready func(), handler func(item domain.FeedItem)) error {
	ready()
	for {
		select {
		case <-ctx.Done():
			return nil
		case item := <-f.items:
			handler(item)
		}
	}
}

// emptyBulkRepo every receipt must resolve from the live message index
type emptyBulkRepo struct{}

func (emptyBulkRepo) ListMemberships(ctx context.Context, userID string) ([]domain.Membership, error) {
	return nil, nil
}
func (emptyBulkRepo) ListParticipants(ctx context.Context, conversationIDs []string) ([]domain.Membership, error) {
	return nil, nil
}
func (emptyBulkRepo) ConversationNames(ctx context.Context, conversationIDs []string) (map[string]string, error) {
	return nil, nil
}
func (emptyBulkRepo) LatestMessagePerConversation(ctx context.Context, conversationIDs []string) ([]domain.MessageSummary, error) {
	return nil, nil
}
func (emptyBulkRepo) ReceiptsForMessages(ctx context.Context, messageIDs, recipientIDs []string) ([]domain.ReceiptRecord, error) {
	return nil, nil
}
func (emptyBulkRepo) PresenceForUsers(ctx context.Context, userIDs []string) ([]domain.PresenceRecord, error) {
	return nil, nil
}
func (emptyBulkRepo) FindMessage(ctx context.Context, messageID string) (*domain.MessageSummary, error) {
	return nil, repository.ErrMessageNotFound
}

var (
	rosterStore   *app.RosterStore
	rosterManager *app.SubscriptionManager
	rosterFeed    *channelFeed
	rosterUpdates chan app.Update

	currentUserID string
	lastMessageID string
	messageSeq    int64
)

func aLoadedRosterWithPrivateConversation(userID, convID, peerID string) error {
	if rosterManager != nil {
		rosterManager.Stop()
	}

	currentUserID = userID
	lastMessageID = ""
	messageSeq = 0

	rosterStore = app.NewRosterStore(userID)
	entry := app.NewRosterEntry()
	entry.Record.ConversationID = convID
	entry.Record.Type = domain.ConversationPrivate
	entry.Record.DisplayName = peerID
	entry.PeerID = peerID
	rosterStore.SetState(app.StateReady)
	rosterStore.ReplaceAll([]*app.RosterEntry{entry})

	rosterUpdates = make(chan app.Update, 16)
	rosterStore.Subscribe(func(u app.Update) { rosterUpdates <- u })

	rosterFeed = &channelFeed{items: make(chan domain.FeedItem, 16)}
	rosterManager = app.NewSubscriptionManager(rosterFeed, rosterStore, emptyBulkRepo{}, time.Second, 3)
	rosterManager.PrimeMessageIndex(rosterStore.Snapshot())
	return rosterManager.Start()
}

func pushAndWait(item domain.FeedItem) error {
	rosterFeed.items <- item
	select {
	case <-rosterUpdates:
		return nil
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timed out waiting for a roster update")
	}
}

func sendMessage(convID, senderID, body string) error {
	messageSeq++
	lastMessageID = fmt.Sprintf("msg-%d", messageSeq)
	payload, err := json.Marshal(domain.NewMessageEvent{
		ConversationID: convID,
		MessageID:      lastMessageID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now().Unix() + messageSeq,
	})
	if err != nil {
		return err
	}
	return pushAndWait(domain.FeedItem{Table: domain.TableMessages, Op: "insert", Payload: payload})
}

func aMessageArrives(body, senderID, convID string) error {
	return sendMessage(convID, senderID, body)
}

func userSendsMessage(senderID, body, convID string) error {
	return sendMessage(convID, senderID, body)
}

func sendReceipt(peerID string, delivered, read bool) error {
	now := time.Now().Unix()
	ev := domain.ReceiptUpdatedEvent{MessageID: lastMessageID, UserID: peerID}
	if delivered {
		ev.DeliveredAt = &now
	}
	if read {
		ev.ReadAt = &now
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return pushAndWait(domain.FeedItem{Table: domain.TableReceipts, Op: "update", Payload: payload})
}

func peerAcknowledgesDelivery(peerID, convID string) error {
	return sendReceipt(peerID, true, false)
}

func peerReadsLastMessage(peerID, convID string) error {
	return sendReceipt(peerID, true, true)
}

func aPresenceUpdateArrives(status, peerID string) error {
	payload, err := json.Marshal(domain.PresenceChangedEvent{
		UserID:    peerID,
		Status:    status,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return pushAndWait(domain.FeedItem{Table: domain.TablePresence, Op: "update", Payload: payload})
}

func presenceRowRemoved(peerID string) error {
	payload, err := json.Marshal(domain.PresenceChangedEvent{
		UserID:    peerID,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return pushAndWait(domain.FeedItem{Table: domain.TablePresence, Op: domain.OpDelete, Payload: payload})
}

func findRecord(convID string) (*domain.ConversationDisplayRecord, error) {
	for _, rec := range rosterStore.Snapshot() {
		if rec.ConversationID == convID {
			r := rec
			return &r, nil
		}
	}
	return nil, fmt.Errorf("conversation %s not in roster", convID)
}

func conversationShowsLastMessage(convID, body string, unread int) error {
	rec, err := findRecord(convID)
	if err != nil {
		return err
	}
	if rec.LastMessage != body {
		return fmt.Errorf("expected last message %q, got %q", body, rec.LastMessage)
	}
	if rec.UnreadCount != unread {
		return fmt.Errorf("expected %d unread, got %d", unread, rec.UnreadCount)
	}
	return nil
}

func conversationShowsLastMessageAndReceipt(convID, body, status string, unread int) error {
	if err := conversationShowsLastMessage(convID, body, unread); err != nil {
		return err
	}
	return conversationShowsReceiptStatus(convID, status)
}

func conversationShowsReceiptStatus(convID, status string) error {
	rec, err := findRecord(convID)
	if err != nil {
		return err
	}
	if string(rec.LastReceiptStatus) != status {
		return fmt.Errorf("expected receipt status %q, got %q", status, rec.LastReceiptStatus)
	}
	return nil
}

func conversationShowsPresence(convID, presence string) error {
	if presence == "offline" {
		presence = ""
	}
	rec, err := findRecord(convID)
	if err != nil {
		return err
	}
	if string(rec.Presence) != presence {
		return fmt.Errorf("expected presence %q, got %q", presence, rec.Presence)
	}
	return nil
}
