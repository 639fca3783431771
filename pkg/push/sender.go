package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Sender delivers notifications to stored subscriptions using VAPID
// application-server keys.
type Sender struct {
	publicKey  string
	privateKey string
	subscriber string // contact mailto:, required by the VAPID spec
}

// NewSender creates a Sender with the given VAPID key pair.
func NewSender(publicKey, privateKey, subscriber string) *Sender {
	return &Sender{publicKey: publicKey, privateKey: privateKey, subscriber: subscriber}
}

// Notification is the payload the service worker displays.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Send pushes one notification to the subscription. A 404 or 410 from
// the push service means the subscription is gone; that is reported as
// ErrNoSubscription so callers can drop the stored record.
func (s *Sender) Send(ctx context.Context, sub *Subscription, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             3600,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return ErrNoSubscription
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}
