// Package auth resolves the owner identity for incoming requests. The
// service never authenticates users itself; it only consumes the owner
// id produced by the session collaborator.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnauthorized is returned when a request carries no valid session.
var ErrUnauthorized = errors.New("unauthorized")

// Resolver maps a request to its owner id.
type Resolver interface {
	OwnerID(r *http.Request) (string, error)
}

// Static resolves every request to a fixed owner. For single-user
// deployments and tests.
type Static struct {
	ID string
}

func (s Static) OwnerID(*http.Request) (string, error) {
	return s.ID, nil
}

// TokenResolver resolves bearer tokens against a sessions table. Tokens
// are stored hashed; whatever issues them (out of scope here) writes
// the sha256 of the token, never the token itself.
type TokenResolver struct {
	pool *pgxpool.Pool
}

// NewTokenResolver creates a TokenResolver.
func NewTokenResolver(pool *pgxpool.Pool) *TokenResolver {
	return &TokenResolver{pool: pool}
}

// EnsureTable creates the sessions table if it doesn't exist.
func (t *TokenResolver) EnsureTable(ctx context.Context) error {
	_, err := t.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			token_hash TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`)
	return err
}

func (t *TokenResolver) OwnerID(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", ErrUnauthorized
	}
	var ownerID string
	err := t.pool.QueryRow(r.Context(), `
		SELECT owner_id FROM sessions WHERE token_hash = $1 AND expires_at > NOW()`,
		hashToken(token)).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	return ownerID, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
