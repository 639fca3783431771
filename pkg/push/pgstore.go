package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoSubscription is returned when an owner has no stored subscription.
var ErrNoSubscription = errors.New("no push subscription")

// PgStore is a PostgreSQL-backed subscription store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the push_subscriptions table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS push_subscriptions (
			owner_id   TEXT PRIMARY KEY,
			endpoint   TEXT NOT NULL,
			p256dh     TEXT NOT NULL,
			auth       TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`)
	return err
}

// Upsert stores the owner's subscription, replacing any previous one.
func (s *PgStore) Upsert(ctx context.Context, sub *Subscription) error {
	sub.CreatedAt = time.Now().Truncate(time.Microsecond)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO push_subscriptions (owner_id, endpoint, p256dh, auth, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id) DO UPDATE SET endpoint = $2, p256dh = $3, auth = $4, created_at = $5`,
		sub.OwnerID, sub.Endpoint, sub.P256dh, sub.Auth, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// Get retrieves the owner's subscription.
func (s *PgStore) Get(ctx context.Context, ownerID string) (*Subscription, error) {
	var sub Subscription
	err := s.pool.QueryRow(ctx, `
		SELECT owner_id, endpoint, p256dh, auth, created_at
		FROM push_subscriptions WHERE owner_id = $1`, ownerID).
		Scan(&sub.OwnerID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", ownerID, err)
	}
	return &sub, nil
}

// Delete removes the owner's subscription.
func (s *PgStore) Delete(ctx context.Context, ownerID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE owner_id = $1`, ownerID)
	if err != nil {
		return fmt.Errorf("delete subscription %s: %w", ownerID, err)
	}
	return nil
}
