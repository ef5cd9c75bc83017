package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"uthread_service/internal/realtime/domain"
	"uthread_service/internal/realtime/repository"
	"uthread_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Delivery router error taxonomy; the transport layer maps these to
// HTTP 400/404/403 or a message_error event.
var (
	// ErrEmptyMessage combined content (text or media) is empty
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMissingReceiver no receiver given for a send
	ErrMissingReceiver = errors.New("receiver is required")
	// ErrConversationNotFound unknown conversation id
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrMessageNotFound unknown message id
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotParticipant acting on a conversation one is not part of
	ErrNotParticipant = errors.New("not a conversation participant")
)

// SendMessageUseCase routes direct messages, read receipts and typing
// indicators: persist first, then pick live push or web-push fallback per
// recipient presence. Persistence failures propagate to the caller;
// delivery failures are logged and swallowed, the durable message stands.
type SendMessageUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	profiles repository.ProfileRepository
	registry *SessionRegistry
	pushUC   *PushUseCase

	// transient typing state keyed by ordered "sender->receiver", kept only
	// so a disconnect can clear the indicator; nothing is buffered for
	// offline receivers
	typingMu sync.Mutex
	typing   map[string]struct{}
}

// NewSendMessageUseCase init create message use case
func NewSendMessageUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	profiles repository.ProfileRepository,
	registry *SessionRegistry,
	pushUC *PushUseCase,
) *SendMessageUseCase {
	return &SendMessageUseCase{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		profiles: profiles,
		registry: registry,
		pushUC:   pushUC,
		typing:   make(map[string]struct{}),
	}
}

// SendMessage persists a direct message, updates the conversation
// aggregate and then attempts delivery. Both the WebSocket send_message
// action and the REST send endpoint land here; there is exactly one send
// path with two entry points.
func (uc *SendMessageUseCase) SendMessage(ctx context.Context, senderID, receiverID, content string, media []domain.MediaAttachment) (*domain.Message, error) {
	if receiverID == "" {
		return nil, ErrMissingReceiver
	}

	msg := &domain.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    strings.TrimSpace(content),
		Media:      media,
		CreatedAt:  time.Now().Unix(),
	}
	if msg.Empty() {
		return nil, ErrEmptyMessage
	}

	// persistence comes strictly before any delivery attempt: a receiver
	// can never be pushed a message that is not durably stored
	if err := uc.msgRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	conv, err := uc.convRepo.FindOrCreateByPair(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if err := uc.convRepo.ApplyMessage(ctx, conv.ID, msg); err != nil {
		return nil, err
	}

	// mirror ApplyMessage on the loaded aggregate so delivery payloads see
	// the post-send snapshot without a second read
	applyLocally(conv, msg)

	uc.deliver(ctx, conv, msg)

	return msg, nil
}

func applyLocally(conv *domain.Conversation, msg *domain.Message) {
	text := msg.Content
	if text == "" && len(msg.Media) > 0 {
		text = "[" + string(msg.Media[0].Kind) + "]"
	}
	conv.LastMessageID = msg.ID
	conv.LastMessageText = text
	conv.LastMessageAt = msg.CreatedAt
	for i := range conv.States {
		if conv.States[i].UserID == msg.ReceiverID {
			conv.States[i].Unread++
		}
	}
}

// deliver picks the delivery path for a stored message. Never fails the
// send: the message is already durable and the receiver sees it on next
// fetch at worst.
func (uc *SendMessageUseCase) deliver(ctx context.Context, conv *domain.Conversation, msg *domain.Message) {
	if uc.registry.IsOnline(msg.ReceiverID) {
		payload := map[string]interface{}{
			"message": msg,
		}
		if profile, err := uc.profiles.Resolve(ctx, msg.SenderID); err != nil {
			logger.Log.Errorf("sender profile resolve failed:", err, zap.String("user_id", msg.SenderID))
		} else {
			payload["sender"] = profile
		}

		uc.registry.Push(msg.ReceiverID, domain.EventNewMessage, payload)
		uc.registry.Push(msg.ReceiverID, domain.EventConversationUpdate, map[string]interface{}{
			"conversation": ViewFor(conv, msg.ReceiverID),
		})
	} else {
		title := "New message"
		if profile, err := uc.profiles.Resolve(ctx, msg.SenderID); err == nil && profile.DisplayName != "" {
			title = profile.DisplayName
		}
		uc.pushUC.Send(ctx, msg.ReceiverID, domain.PushPayload{
			Title: title,
			Body:  conv.LastMessageText,
			Tag:   msg.ID,
			Data: domain.PushLinkData{
				URL:       "/messages/" + msg.SenderID,
				MessageID: msg.ID,
			},
		})
	}

	// ack with the raw saved message, profile join not needed on this side
	uc.registry.Push(msg.SenderID, domain.EventMessageSent, map[string]interface{}{
		"message": msg,
	})
}

// MarkConversationRead flips every unread message sent to the reader in
// this conversation, zeroes the reader's unread counter and confirms to
// the other participant if online. Idempotent; read state never falls
// back to the push channel.
func (uc *SendMessageUseCase) MarkConversationRead(ctx context.Context, readerID, convID string) error {
	conv, err := uc.convRepo.FindByID(ctx, convID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}
	if !conv.HasParticipant(readerID) {
		return ErrNotParticipant
	}

	other := conv.OtherParticipant(readerID)
	if err := uc.msgRepo.MarkPairRead(ctx, other, readerID); err != nil {
		return err
	}
	if err := uc.convRepo.ResetUnread(ctx, convID, readerID); err != nil {
		return err
	}

	if uc.registry.IsOnline(other) {
		uc.registry.Push(other, domain.EventMessagesRead, map[string]interface{}{
			"conversation_id": convID,
			"reader_id":       readerID,
		})
	}
	return nil
}

// MarkMessageRead flips one message's read flag and zeroes the reader's
// unread counter on the pair's conversation.
func (uc *SendMessageUseCase) MarkMessageRead(ctx context.Context, readerID, msgID string) error {
	msg, err := uc.msgRepo.FindByID(ctx, msgID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.ReceiverID != readerID {
		return ErrNotParticipant
	}

	if err := uc.msgRepo.MarkRead(ctx, msgID); err != nil {
		return err
	}

	conv, err := uc.convRepo.FindByPair(ctx, msg.SenderID, readerID)
	if err != nil {
		return err
	}
	if conv != nil {
		if err := uc.convRepo.ResetUnread(ctx, conv.ID, readerID); err != nil {
			return err
		}
	}

	if uc.registry.IsOnline(msg.SenderID) {
		uc.registry.Push(msg.SenderID, domain.EventMessagesRead, map[string]interface{}{
			"message_id": msgID,
			"reader_id":  readerID,
		})
	}
	return nil
}

// Typing relays a transient typing indicator. Forwarded only while the
// receiver is online, silently dropped otherwise; no buffering, no
// catch-up on reconnect.
func (uc *SendMessageUseCase) Typing(senderID, receiverID string, isTyping bool) {
	key := senderID + "->" + receiverID

	uc.typingMu.Lock()
	if isTyping {
		uc.typing[key] = struct{}{}
	} else {
		delete(uc.typing, key)
	}
	uc.typingMu.Unlock()

	if !uc.registry.IsOnline(receiverID) {
		return
	}
	uc.registry.Push(receiverID, domain.EventUserTyping, map[string]interface{}{
		"sender_id": senderID,
		"is_typing": isTyping,
	})
}

// ClearTyping withdraws any indicator the user had set; called on
// disconnect so peers never see a typing ghost.
func (uc *SendMessageUseCase) ClearTyping(senderID string) {
	prefix := senderID + "->"

	uc.typingMu.Lock()
	var receivers []string
	for key := range uc.typing {
		if strings.HasPrefix(key, prefix) {
			receivers = append(receivers, strings.TrimPrefix(key, prefix))
			delete(uc.typing, key)
		}
	}
	uc.typingMu.Unlock()

	for _, receiverID := range receivers {
		if uc.registry.IsOnline(receiverID) {
			uc.registry.Push(receiverID, domain.EventUserTyping, map[string]interface{}{
				"sender_id": senderID,
				"is_typing": false,
			})
		}
	}
}

// ListConversations participant-scoped conversation list, newest activity
// first
func (uc *SendMessageUseCase) ListConversations(ctx context.Context, userID string, page, limit int) ([]domain.ConversationView, int64, error) {
	convs, total, err := uc.convRepo.ListByParticipant(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	views := make([]domain.ConversationView, 0, len(convs))
	for i := range convs {
		views = append(views, ViewFor(&convs[i], userID))
	}
	return views, total, nil
}

// GetConversation single conversation, projected for the requester
func (uc *SendMessageUseCase) GetConversation(ctx context.Context, userID, convID string) (*domain.ConversationView, error) {
	conv, err := uc.requireParticipant(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	view := ViewFor(conv, userID)
	return &view, nil
}

// History message history of a conversation, newest first, paginated
func (uc *SendMessageUseCase) History(ctx context.Context, userID, convID string, page, limit int) ([]domain.Message, int64, error) {
	conv, err := uc.requireParticipant(ctx, userID, convID)
	if err != nil {
		return nil, 0, err
	}
	other := conv.OtherParticipant(userID)
	return uc.msgRepo.FindByPair(ctx, userID, other, page, limit)
}

// TogglePin flips the requester's pin flag only; the other participant's
// view is never touched. Returns the new value.
func (uc *SendMessageUseCase) TogglePin(ctx context.Context, userID, convID string) (bool, error) {
	conv, err := uc.requireParticipant(ctx, userID, convID)
	if err != nil {
		return false, err
	}
	next := !conv.StateOf(userID).Pinned
	if err := uc.convRepo.SetPinned(ctx, convID, userID, next); err != nil {
		return false, err
	}
	return next, nil
}

// ToggleMute flips the requester's mute flag only. Returns the new value.
func (uc *SendMessageUseCase) ToggleMute(ctx context.Context, userID, convID string) (bool, error) {
	conv, err := uc.requireParticipant(ctx, userID, convID)
	if err != nil {
		return false, err
	}
	next := !conv.StateOf(userID).Muted
	if err := uc.convRepo.SetMuted(ctx, convID, userID, next); err != nil {
		return false, err
	}
	return next, nil
}

// DeleteConversation removes the whole document for both sides; message
// activity never deletes conversations, only an explicit user action does.
func (uc *SendMessageUseCase) DeleteConversation(ctx context.Context, userID, convID string) error {
	if _, err := uc.requireParticipant(ctx, userID, convID); err != nil {
		return err
	}
	return uc.convRepo.Delete(ctx, convID)
}

func (uc *SendMessageUseCase) requireParticipant(ctx context.Context, userID, convID string) (*domain.Conversation, error) {
	conv, err := uc.convRepo.FindByID(ctx, convID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}
