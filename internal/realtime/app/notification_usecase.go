package app

import (
	"context"
	"time"

	"uthread_service/internal/realtime/domain"
	"uthread_service/internal/realtime/repository"
	"uthread_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationUseCase fan-out for social-action notifications
// (like/reply/mention/follow): live event plus refreshed unread count for
// connected recipients, web push for everyone else.
type NotificationUseCase struct {
	notifRepo repository.NotificationRepository
	registry  *SessionRegistry
	pushUC    *PushUseCase
}

// NewNotificationUseCase init create notification use case
func NewNotificationUseCase(
	notifRepo repository.NotificationRepository,
	registry *SessionRegistry,
	pushUC *PushUseCase,
) *NotificationUseCase {
	return &NotificationUseCase{
		notifRepo: notifRepo,
		registry:  registry,
		pushUC:    pushUC,
	}
}

// CreateAndDeliver persists a notification and routes it. A self-action
// (sender == recipient) is suppressed before anything is written.
// Persistence failures propagate; delivery failures never do.
func (uc *NotificationUseCase) CreateAndDeliver(ctx context.Context, n *domain.Notification) error {
	if n.SenderID == n.RecipientID {
		return nil
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().Unix()
	}

	if err := uc.notifRepo.Insert(ctx, n); err != nil {
		return err
	}

	uc.Deliver(ctx, n)
	return nil
}

// Deliver routes an already-persisted notification: live when the
// recipient has a session, push channel otherwise.
func (uc *NotificationUseCase) Deliver(ctx context.Context, n *domain.Notification) {
	if uc.registry.IsOnline(n.RecipientID) {
		uc.registry.Push(n.RecipientID, domain.EventNotification, map[string]interface{}{
			"notification": n,
		})

		count, err := uc.notifRepo.CountUnread(ctx, n.RecipientID)
		if err != nil {
			logger.Log.Errorf("unread notification count failed:", err, zap.String("user_id", n.RecipientID))
			return
		}
		uc.registry.Push(n.RecipientID, domain.EventUnreadCount, map[string]interface{}{
			"count": count,
		})
		return
	}

	uc.pushUC.Send(ctx, n.RecipientID, domain.PushPayload{
		Title: "uThread",
		Body:  n.Message,
		Tag:   n.ID,
		Data: domain.PushLinkData{
			URL:            n.TargetURL(),
			NotificationID: n.ID,
		},
	})
}

// UnreadCount current unread-notification count for a user
func (uc *NotificationUseCase) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return uc.notifRepo.CountUnread(ctx, userID)
}

// MarkAllRead flips every unread notification for a user; idempotent
func (uc *NotificationUseCase) MarkAllRead(ctx context.Context, userID string) error {
	return uc.notifRepo.MarkAllRead(ctx, userID)
}
