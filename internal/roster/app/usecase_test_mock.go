package app

import (
	"context"

	"chat_roster_service/internal/roster/domain"

	"github.com/stretchr/testify/mock"
)

// MockBulkReadRepository Mock BulkReadRepository
type MockBulkReadRepository struct {
	mock.Mock
}

// ListMemberships moke list memberships
func (m *MockBulkReadRepository) ListMemberships(ctx context.Context, userID string) ([]domain.Membership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Membership), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListParticipants moke list participants
func (m *MockBulkReadRepository) ListParticipants(ctx context.Context, conversationIDs []string) ([]domain.Membership, error) {
	args := m.Called(ctx, conversationIDs)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Membership), args.Error(1)
	}
	return nil, args.Error(1)
}

// ConversationNames moke fetch conversation names
func (m *MockBulkReadRepository) ConversationNames(ctx context.Context, conversationIDs []string) (map[string]string, error) {
	args := m.Called(ctx, conversationIDs)
	if args.Get(0) != nil {
		return args.Get(0).(map[string]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// LatestMessagePerConversation moke fetch latest messages
func (m *MockBulkReadRepository) LatestMessagePerConversation(ctx context.Context, conversationIDs []string) ([]domain.MessageSummary, error) {
	args := m.Called(ctx, conversationIDs)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.MessageSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// ReceiptsForMessages moke fetch receipts
func (m *MockBulkReadRepository) ReceiptsForMessages(ctx context.Context, messageIDs, recipientIDs []string) ([]domain.ReceiptRecord, error) {
	args := m.Called(ctx, messageIDs, recipientIDs)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ReceiptRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

// PresenceForUsers moke fetch presence
func (m *MockBulkReadRepository) PresenceForUsers(ctx context.Context, userIDs []string) ([]domain.PresenceRecord, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.PresenceRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindMessage moke find message
func (m *MockBulkReadRepository) FindMessage(ctx context.Context, messageID string) (*domain.MessageSummary, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.MessageSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockContactRepository Mock ContactRepository
type MockContactRepository struct {
	mock.Mock
}

// ProfilesForUsers moke fetch profiles
func (m *MockContactRepository) ProfilesForUsers(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) != nil {
		return args.Get(0).(map[string]domain.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

// ProfileOverrides moke fetch overrides
func (m *MockContactRepository) ProfileOverrides(ctx context.Context, userID string) (map[string]domain.ProfileOverride, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(map[string]domain.ProfileOverride), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockFeedRepository Mock FeedRepository
type MockFeedRepository struct {
	mock.Mock
}

// Listen moke feed listen
func (m *MockFeedRepository) Listen(ctx context.Context, ready func(), handler func(item domain.FeedItem)) error {
	args := m.Called(ctx, ready, handler)
	return args.Error(0)
}
