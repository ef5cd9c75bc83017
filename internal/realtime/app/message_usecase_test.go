package app

import (
	"context"
	"encoding/json"
	"testing"

	"uthread_service/internal/realtime/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func pairConversation(userA, userB string) *domain.Conversation {
	return &domain.Conversation{
		ID:           uuid.New().String(),
		Participants: []string{userA, userB},
		States: []domain.ParticipantState{
			{UserID: userA},
			{UserID: userB},
		},
	}
}

type messageFixture struct {
	convRepo *MockConversationRepository
	msgRepo  *MockMessageRepository
	profiles *MockProfileRepository
	subRepo  *MockSubscriptionRepository
	sender   *MockPushSender
	registry *SessionRegistry
	uc       *SendMessageUseCase
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		convRepo: new(MockConversationRepository),
		msgRepo:  new(MockMessageRepository),
		profiles: new(MockProfileRepository),
		subRepo:  new(MockSubscriptionRepository),
		sender:   new(MockPushSender),
		registry: NewSessionRegistry(),
	}
	pushUC := NewPushUseCase(f.subRepo, f.sender, "test-public-key")
	f.uc = NewSendMessageUseCase(f.convRepo, f.msgRepo, f.profiles, f.registry, pushUC)
	return f
}

func TestSendMessage_OfflineReceiverFallsBackToPush(t *testing.T) {
	f := newMessageFixture()
	senderID := uuid.New().String()
	receiverID := uuid.New().String()
	conv := pairConversation(senderID, receiverID)

	f.msgRepo.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
	f.convRepo.On("FindOrCreateByPair", mock.Anything, senderID, receiverID).Return(conv, nil)
	f.convRepo.On("ApplyMessage", mock.Anything, conv.ID, mock.AnythingOfType("*domain.Message")).Return(nil)
	f.profiles.On("Resolve", mock.Anything, senderID).
		Return(&domain.Profile{UserID: senderID, Username: "ana", DisplayName: "Ana"}, nil)
	f.subRepo.On("FindByUser", mock.Anything, receiverID).Return([]domain.PushSubscription{
		{UserID: receiverID, Endpoint: "https://push.example/ep1"},
	}, nil)

	var pushed domain.PushPayload
	f.sender.On("Send", mock.Anything, mock.AnythingOfType("*domain.PushSubscription"), mock.Anything).
		Run(func(args mock.Arguments) {
			assert.NoError(t, json.Unmarshal(args.Get(2).([]byte), &pushed))
		}).
		Return(nil)

	msg, err := f.uc.SendMessage(context.Background(), senderID, receiverID, "  hello  ", nil)

	assert.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, senderID, msg.SenderID)
	assert.Equal(t, receiverID, msg.ReceiverID)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.IsRead)

	f.msgRepo.AssertNumberOfCalls(t, "Insert", 1)
	f.sender.AssertNumberOfCalls(t, "Send", 1)
	assert.Equal(t, "Ana", pushed.Title)
	assert.Equal(t, "hello", pushed.Body)
	assert.Equal(t, msg.ID, pushed.Tag)
	assert.Equal(t, "/messages/"+senderID, pushed.Data.URL)
	assert.Equal(t, msg.ID, pushed.Data.MessageID)
}

func TestSendMessage_OnlineReceiverGetsLiveEvents(t *testing.T) {
	f := newMessageFixture()
	senderID := uuid.New().String()
	receiverID := uuid.New().String()
	conv := pairConversation(senderID, receiverID)

	receiverConn := &fakeConn{}
	f.registry.Register(receiverID, receiverConn)

	f.msgRepo.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
	f.convRepo.On("FindOrCreateByPair", mock.Anything, senderID, receiverID).Return(conv, nil)
	f.convRepo.On("ApplyMessage", mock.Anything, conv.ID, mock.AnythingOfType("*domain.Message")).Return(nil)
	f.profiles.On("Resolve", mock.Anything, senderID).
		Return(&domain.Profile{UserID: senderID, DisplayName: "Ana"}, nil)

	msg, err := f.uc.SendMessage(context.Background(), senderID, receiverID, "hi there", nil)

	assert.NoError(t, err)

	newMsgs := receiverConn.eventsOf(domain.EventNewMessage)
	assert.Len(t, newMsgs, 1)
	assert.Equal(t, msg, newMsgs[0].Payload["message"])
	assert.Equal(t, "Ana", newMsgs[0].Payload["sender"].(*domain.Profile).DisplayName)

	updates := receiverConn.eventsOf(domain.EventConversationUpdate)
	assert.Len(t, updates, 1)
	view := updates[0].Payload["conversation"].(domain.ConversationView)
	assert.Equal(t, conv.ID, view.ID)
	assert.Equal(t, senderID, view.OtherParticipant)
	assert.Equal(t, 1, view.UnreadCount)
	assert.Equal(t, "hi there", view.LastMessageText)

	// live delivery succeeded, the push channel stays untouched
	f.subRepo.AssertNotCalled(t, "FindByUser", mock.Anything, mock.Anything)
	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessage_AcksOnlineSender(t *testing.T) {
	f := newMessageFixture()
	senderID := uuid.New().String()
	receiverID := uuid.New().String()
	conv := pairConversation(senderID, receiverID)

	senderConn := &fakeConn{}
	f.registry.Register(senderID, senderConn)

	f.msgRepo.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
	f.convRepo.On("FindOrCreateByPair", mock.Anything, senderID, receiverID).Return(conv, nil)
	f.convRepo.On("ApplyMessage", mock.Anything, conv.ID, mock.AnythingOfType("*domain.Message")).Return(nil)
	f.profiles.On("Resolve", mock.Anything, senderID).Return(&domain.Profile{UserID: senderID}, nil)
	f.subRepo.On("FindByUser", mock.Anything, receiverID).Return([]domain.PushSubscription{}, nil)

	msg, err := f.uc.SendMessage(context.Background(), senderID, receiverID, "ping", nil)

	assert.NoError(t, err)
	acks := senderConn.eventsOf(domain.EventMessageSent)
	assert.Len(t, acks, 1)
	assert.Equal(t, msg, acks[0].Payload["message"])
}

func TestSendMessage_MediaOnlyUsesKindPlaceholder(t *testing.T) {
	f := newMessageFixture()
	senderID := uuid.New().String()
	receiverID := uuid.New().String()
	conv := pairConversation(senderID, receiverID)

	receiverConn := &fakeConn{}
	f.registry.Register(receiverID, receiverConn)

	f.msgRepo.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
	f.convRepo.On("FindOrCreateByPair", mock.Anything, senderID, receiverID).Return(conv, nil)
	f.convRepo.On("ApplyMessage", mock.Anything, conv.ID, mock.AnythingOfType("*domain.Message")).Return(nil)
	f.profiles.On("Resolve", mock.Anything, senderID).Return(&domain.Profile{UserID: senderID}, nil)

	media := []domain.MediaAttachment{{Kind: domain.MediaImage, URL: "https://cdn.example/a.png"}}
	_, err := f.uc.SendMessage(context.Background(), senderID, receiverID, "", media)

	assert.NoError(t, err)
	updates := receiverConn.eventsOf(domain.EventConversationUpdate)
	assert.Len(t, updates, 1)
	view := updates[0].Payload["conversation"].(domain.ConversationView)
	assert.Equal(t, "[image]", view.LastMessageText)
}

func TestSendMessage_RejectsEmptyAndMissingReceiver(t *testing.T) {
	f := newMessageFixture()
	senderID := uuid.New().String()

	_, err := f.uc.SendMessage(context.Background(), senderID, uuid.New().String(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.uc.SendMessage(context.Background(), senderID, "", "hello", nil)
	assert.ErrorIs(t, err, ErrMissingReceiver)

	f.msgRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	f.convRepo.AssertNotCalled(t, "FindOrCreateByPair", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessage_InsertFailurePropagates(t *testing.T) {
	f := newMessageFixture()
	senderID := uuid.New().String()
	receiverID := uuid.New().String()

	f.msgRepo.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(assert.AnError)

	_, err := f.uc.SendMessage(context.Background(), senderID, receiverID, "hello", nil)

	assert.ErrorIs(t, err, assert.AnError)
	f.convRepo.AssertNotCalled(t, "FindOrCreateByPair", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkConversationRead_IsIdempotent(t *testing.T) {
	f := newMessageFixture()
	readerID := uuid.New().String()
	otherID := uuid.New().String()
	conv := pairConversation(otherID, readerID)

	otherConn := &fakeConn{}
	f.registry.Register(otherID, otherConn)

	f.convRepo.On("FindByID", mock.Anything, conv.ID).Return(conv, nil)
	f.msgRepo.On("MarkPairRead", mock.Anything, otherID, readerID).Return(nil)
	f.convRepo.On("ResetUnread", mock.Anything, conv.ID, readerID).Return(nil)

	assert.NoError(t, f.uc.MarkConversationRead(context.Background(), readerID, conv.ID))
	assert.NoError(t, f.uc.MarkConversationRead(context.Background(), readerID, conv.ID))

	f.msgRepo.AssertNumberOfCalls(t, "MarkPairRead", 2)
	f.convRepo.AssertNumberOfCalls(t, "ResetUnread", 2)

	receipts := otherConn.eventsOf(domain.EventMessagesRead)
	assert.Len(t, receipts, 2)
	assert.Equal(t, conv.ID, receipts[0].Payload["conversation_id"])
	assert.Equal(t, readerID, receipts[0].Payload["reader_id"])
}

func TestMarkConversationRead_RejectsNonParticipant(t *testing.T) {
	f := newMessageFixture()
	conv := pairConversation(uuid.New().String(), uuid.New().String())

	f.convRepo.On("FindByID", mock.Anything, conv.ID).Return(conv, nil)

	err := f.uc.MarkConversationRead(context.Background(), uuid.New().String(), conv.ID)

	assert.ErrorIs(t, err, ErrNotParticipant)
	f.msgRepo.AssertNotCalled(t, "MarkPairRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkMessageRead_OnlyReceiverMayRead(t *testing.T) {
	f := newMessageFixture()
	senderID := uuid.New().String()
	receiverID := uuid.New().String()
	msg := &domain.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    "hello",
	}

	f.msgRepo.On("FindByID", mock.Anything, msg.ID).Return(msg, nil)

	err := f.uc.MarkMessageRead(context.Background(), senderID, msg.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)

	conv := pairConversation(senderID, receiverID)
	f.msgRepo.On("MarkRead", mock.Anything, msg.ID).Return(nil)
	f.convRepo.On("FindByPair", mock.Anything, senderID, receiverID).Return(conv, nil)
	f.convRepo.On("ResetUnread", mock.Anything, conv.ID, receiverID).Return(nil)

	assert.NoError(t, f.uc.MarkMessageRead(context.Background(), receiverID, msg.ID))
	f.msgRepo.AssertNumberOfCalls(t, "MarkRead", 1)
}

func TestMarkMessageRead_UnknownMessage(t *testing.T) {
	f := newMessageFixture()
	msgID := uuid.New().String()

	f.msgRepo.On("FindByID", mock.Anything, msgID).Return(nil, nil)

	err := f.uc.MarkMessageRead(context.Background(), uuid.New().String(), msgID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestTyping_ForwardedOnlyWhileOnline(t *testing.T) {
	f := newMessageFixture()
	senderID := uuid.New().String()
	receiverID := uuid.New().String()

	// offline receiver: dropped, nothing buffered
	f.uc.Typing(senderID, receiverID, true)

	receiverConn := &fakeConn{}
	f.registry.Register(receiverID, receiverConn)

	f.uc.Typing(senderID, receiverID, true)

	indicators := receiverConn.eventsOf(domain.EventUserTyping)
	assert.Len(t, indicators, 1)
	assert.Equal(t, senderID, indicators[0].Payload["sender_id"])
	assert.Equal(t, true, indicators[0].Payload["is_typing"])
}

func TestClearTyping_WithdrawsIndicatorOnDisconnect(t *testing.T) {
	f := newMessageFixture()
	senderID := uuid.New().String()
	receiverID := uuid.New().String()

	receiverConn := &fakeConn{}
	f.registry.Register(receiverID, receiverConn)

	f.uc.Typing(senderID, receiverID, true)
	f.uc.ClearTyping(senderID)

	indicators := receiverConn.eventsOf(domain.EventUserTyping)
	assert.Len(t, indicators, 2)
	assert.Equal(t, false, indicators[1].Payload["is_typing"])

	// idempotent: nothing tracked anymore
	f.uc.ClearTyping(senderID)
	assert.Len(t, receiverConn.eventsOf(domain.EventUserTyping), 2)
}

func TestTogglePin_ScopedToRequester(t *testing.T) {
	f := newMessageFixture()
	userA := uuid.New().String()
	userB := uuid.New().String()
	conv := pairConversation(userA, userB)
	conv.States[1].Pinned = true

	f.convRepo.On("FindByID", mock.Anything, conv.ID).Return(conv, nil)
	f.convRepo.On("SetPinned", mock.Anything, conv.ID, userA, true).Return(nil)
	f.convRepo.On("SetPinned", mock.Anything, conv.ID, userB, false).Return(nil)

	pinned, err := f.uc.TogglePin(context.Background(), userA, conv.ID)
	assert.NoError(t, err)
	assert.True(t, pinned)

	pinned, err = f.uc.TogglePin(context.Background(), userB, conv.ID)
	assert.NoError(t, err)
	assert.False(t, pinned)

	f.convRepo.AssertCalled(t, "SetPinned", mock.Anything, conv.ID, userA, true)
	f.convRepo.AssertCalled(t, "SetPinned", mock.Anything, conv.ID, userB, false)
}

func TestToggleMute_FlipsRequesterFlag(t *testing.T) {
	f := newMessageFixture()
	userA := uuid.New().String()
	userB := uuid.New().String()
	conv := pairConversation(userA, userB)

	f.convRepo.On("FindByID", mock.Anything, conv.ID).Return(conv, nil)
	f.convRepo.On("SetMuted", mock.Anything, conv.ID, userA, true).Return(nil)

	muted, err := f.uc.ToggleMute(context.Background(), userA, conv.ID)
	assert.NoError(t, err)
	assert.True(t, muted)
}

func TestListConversations_ProjectsPerRequester(t *testing.T) {
	f := newMessageFixture()
	userID := uuid.New().String()
	otherID := uuid.New().String()

	conv := pairConversation(otherID, userID)
	conv.LastMessageText = "latest"
	conv.States[1].Unread = 3
	conv.States[1].Pinned = true

	f.convRepo.On("ListByParticipant", mock.Anything, userID, 1, 20).
		Return([]domain.Conversation{*conv}, int64(1), nil)

	views, total, err := f.uc.ListConversations(context.Background(), userID, 1, 20)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, views, 1)
	assert.Equal(t, otherID, views[0].OtherParticipant)
	assert.Equal(t, 3, views[0].UnreadCount)
	assert.True(t, views[0].IsPinned)
	assert.Equal(t, "latest", views[0].LastMessageText)
}

func TestHistory_RequiresParticipant(t *testing.T) {
	f := newMessageFixture()
	conv := pairConversation(uuid.New().String(), uuid.New().String())

	f.convRepo.On("FindByID", mock.Anything, conv.ID).Return(conv, nil)

	_, _, err := f.uc.History(context.Background(), uuid.New().String(), conv.ID, 1, 20)
	assert.ErrorIs(t, err, ErrNotParticipant)
	f.msgRepo.AssertNotCalled(t, "FindByPair", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteConversation_RemovesWholeDocument(t *testing.T) {
	f := newMessageFixture()
	userA := uuid.New().String()
	conv := pairConversation(userA, uuid.New().String())

	f.convRepo.On("FindByID", mock.Anything, conv.ID).Return(conv, nil)
	f.convRepo.On("Delete", mock.Anything, conv.ID).Return(nil)

	assert.NoError(t, f.uc.DeleteConversation(context.Background(), userA, conv.ID))
	f.convRepo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestGetConversation_UnknownID(t *testing.T) {
	f := newMessageFixture()
	convID := uuid.New().String()

	f.convRepo.On("FindByID", mock.Anything, convID).Return(nil, nil)

	_, err := f.uc.GetConversation(context.Background(), uuid.New().String(), convID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
