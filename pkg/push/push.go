// Package push stores web-push subscriptions and delivers due-date
// reminders over the Web Push protocol with VAPID keys.
package push

import (
	"context"
	"time"
)

// Subscription is one owner's browser push subscription. One per owner;
// re-subscribing replaces the previous endpoint.
type Subscription struct {
	OwnerID   string    `json:"owner_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the contract for subscription persistence.
type Store interface {
	Upsert(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, ownerID string) (*Subscription, error)
	Delete(ctx context.Context, ownerID string) error
	EnsureTable(ctx context.Context) error
}
