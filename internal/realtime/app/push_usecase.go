package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"uthread_service/internal/realtime/domain"
	"uthread_service/internal/realtime/repository"
	errprocess "uthread_service/pkg/err"
	"uthread_service/pkg/logger"

	"go.uber.org/zap"
)

// ErrInvalidSubscription subscription descriptor missing endpoint or keys
var ErrInvalidSubscription = errors.New("invalid push subscription")

// PushUseCase offline-delivery channel: subscription lifecycle plus
// parallel fan-out to every endpoint a user opted in with. A failed push
// never fails the caller's enclosing operation.
type PushUseCase struct {
	subRepo   repository.SubscriptionRepository
	sender    repository.PushSender
	publicKey string
}

// NewPushUseCase init create push use case
func NewPushUseCase(subRepo repository.SubscriptionRepository, sender repository.PushSender, publicKey string) *PushUseCase {
	return &PushUseCase{
		subRepo:   subRepo,
		sender:    sender,
		publicKey: publicKey,
	}
}

// PublicKey VAPID public key handed to subscribing clients
func (uc *PushUseCase) PublicKey() string {
	return uc.publicKey
}

// Subscribe upserts the (user, endpoint) subscription row
func (uc *PushUseCase) Subscribe(ctx context.Context, userID string, sub domain.PushSubscription) error {
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return ErrInvalidSubscription
	}
	sub.UserID = userID
	return uc.subRepo.Upsert(ctx, &sub)
}

// Unsubscribe deletes the (user, endpoint) row, reporting whether one existed
func (uc *PushUseCase) Unsubscribe(ctx context.Context, userID, endpoint string) (bool, error) {
	if endpoint == "" {
		return false, ErrInvalidSubscription
	}
	return uc.subRepo.Delete(ctx, userID, endpoint)
}

// Send fans the payload out to every subscription of the user, each
// attempt independent and in parallel. Gone/not-found endpoints are pruned
// on the spot; every other failure is logged and swallowed.
func (uc *PushUseCase) Send(ctx context.Context, userID string, payload domain.PushPayload) {
	subs, err := uc.subRepo.FindByUser(ctx, userID)
	if err != nil {
		logger.Log.Errorf("push subscriptions lookup failed:", err, zap.String("user_id", userID))
		return
	}
	if len(subs) == 0 {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("push payload marshal failed:", err)
		return
	}

	var wg sync.WaitGroup
	for i := range subs {
		sub := subs[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			uc.attempt(ctx, &sub, data)
		}()
	}
	wg.Wait()
}

func (uc *PushUseCase) attempt(ctx context.Context, sub *domain.PushSubscription, data []byte) {
	err := uc.sender.Send(ctx, sub, data)
	if err == nil {
		return
	}

	if errors.Is(err, repository.ErrEndpointGone) {
		// stale endpoint, self-heal by dropping the row
		if _, delErr := uc.subRepo.Delete(ctx, sub.UserID, sub.Endpoint); delErr != nil {
			_ = errprocess.Set("failed to prune gone push subscription: " + delErr.Error())
		} else {
			logger.Log.Info("pruned gone push subscription",
				zap.String("user_id", sub.UserID), zap.String("endpoint", sub.Endpoint))
		}
		return
	}

	logger.Log.Errorf("push delivery failed:", err, zap.String("user_id", sub.UserID))
}
