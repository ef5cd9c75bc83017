package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"uthread_service/internal/realtime/domain"
	"uthread_service/pkg/config"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// pushTTL how long the push provider may hold an undelivered notification
const pushTTL = 24 * 60 * 60

// ErrEndpointGone the provider reported the endpoint permanently invalid;
// the caller should prune the subscription
var ErrEndpointGone = errors.New("push endpoint gone")

// PushSender one delivery attempt against an external push endpoint
type PushSender interface {
	Send(ctx context.Context, sub *domain.PushSubscription, payload []byte) error
}

type webPushSender struct {
	options webpush.Options
}

// NewWebPushSender create a PushSender backed by VAPID web push
func NewWebPushSender(cfg config.WebPushConfig) PushSender {
	return &webPushSender{
		options: webpush.Options{
			Subscriber:      cfg.Subscriber,
			VAPIDPublicKey:  cfg.PublicKey,
			VAPIDPrivateKey: cfg.PrivateKey,
			TTL:             pushTTL,
		},
	}
}

func (s *webPushSender) Send(ctx context.Context, sub *domain.PushSubscription, payload []byte) error {
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}

	opts := s.options
	resp, err := webpush.SendNotification(payload, target, &opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrEndpointGone
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("push endpoint responded %d", resp.StatusCode)
	}
	return nil
}
