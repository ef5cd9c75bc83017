package app

import (
	"context"

	"uthread_service/internal/realtime/domain"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// FindOrCreateByPair mock find or create conversation by pair
func (m *MockConversationRepository) FindOrCreateByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByPair mock find conversation by pair
func (m *MockConversationRepository) FindByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByID mock find conversation by id
func (m *MockConversationRepository) FindByID(ctx context.Context, convID string) (*domain.Conversation, error) {
	args := m.Called(ctx, convID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// ApplyMessage mock apply message snapshot + unread increment
func (m *MockConversationRepository) ApplyMessage(ctx context.Context, convID string, msg *domain.Message) error {
	args := m.Called(ctx, convID, msg)
	return args.Error(0)
}

// ResetUnread mock reset unread counter
func (m *MockConversationRepository) ResetUnread(ctx context.Context, convID, userID string) error {
	args := m.Called(ctx, convID, userID)
	return args.Error(0)
}

// SetPinned mock set pin flag
func (m *MockConversationRepository) SetPinned(ctx context.Context, convID, userID string, pinned bool) error {
	args := m.Called(ctx, convID, userID, pinned)
	return args.Error(0)
}

// SetMuted mock set mute flag
func (m *MockConversationRepository) SetMuted(ctx context.Context, convID, userID string, muted bool) error {
	args := m.Called(ctx, convID, userID, muted)
	return args.Error(0)
}

// ListByParticipant mock list conversations
func (m *MockConversationRepository) ListByParticipant(ctx context.Context, userID string, page, limit int) ([]domain.Conversation, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Conversation), args.Get(1).(int64), args.Error(2)
	}
	return nil, args.Get(1).(int64), args.Error(2)
}

// Delete mock delete conversation
func (m *MockConversationRepository) Delete(ctx context.Context, convID string) error {
	args := m.Called(ctx, convID)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert mock insert message
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByID mock find message by id
func (m *MockMessageRepository) FindByID(ctx context.Context, msgID string) (*domain.Message, error) {
	args := m.Called(ctx, msgID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByPair mock message history by pair
func (m *MockMessageRepository) FindByPair(ctx context.Context, userA, userB string, page, limit int) ([]domain.Message, int64, error) {
	args := m.Called(ctx, userA, userB, page, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Get(1).(int64), args.Error(2)
	}
	return nil, args.Get(1).(int64), args.Error(2)
}

// MarkRead mock flip one read flag
func (m *MockMessageRepository) MarkRead(ctx context.Context, msgID string) error {
	args := m.Called(ctx, msgID)
	return args.Error(0)
}

// MarkPairRead mock bulk read flip
func (m *MockMessageRepository) MarkPairRead(ctx context.Context, otherID, readerID string) error {
	args := m.Called(ctx, otherID, readerID)
	return args.Error(0)
}

// MockNotificationRepository Mock NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

// Insert mock insert notification
func (m *MockNotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// CountUnread mock unread notification count
func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

// MarkAllRead mock mark all notifications read
func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	args := m.Called(ctx, recipientID)
	return args.Error(0)
}

// MockSubscriptionRepository Mock SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

// Upsert mock upsert subscription
func (m *MockSubscriptionRepository) Upsert(ctx context.Context, sub *domain.PushSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

// Delete mock delete subscription
func (m *MockSubscriptionRepository) Delete(ctx context.Context, userID, endpoint string) (bool, error) {
	args := m.Called(ctx, userID, endpoint)
	return args.Bool(0), args.Error(1)
}

// FindByUser mock list subscriptions of one user
func (m *MockSubscriptionRepository) FindByUser(ctx context.Context, userID string) ([]domain.PushSubscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.PushSubscription), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockProfileRepository Mock ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

// Resolve mock profile lookup
func (m *MockProfileRepository) Resolve(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPushSender Mock PushSender
type MockPushSender struct {
	mock.Mock
}

// Send mock one external push attempt
func (m *MockPushSender) Send(ctx context.Context, sub *domain.PushSubscription, payload []byte) error {
	args := m.Called(ctx, sub, payload)
	return args.Error(0)
}
