package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRefreshInvalid covers unknown, revoked and expired refresh tokens.
var ErrRefreshInvalid = errors.New("refresh token invalid")

// TokenRepo keeps the SHA-256 hashes of issued refresh tokens.  The raw
// token only ever exists on the client.
type TokenRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db, now: time.Now}
}

// StoreRefresh records a newly issued token for userID.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		userID, tokenHash, exp.UTC(), r.now().UTC().Truncate(time.Second)); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// ValidateRefresh returns the owner of a live token.  Unknown, revoked and
// expired tokens all report ErrRefreshInvalid.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens
		WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ? LIMIT 1`,
		tokenHash, r.now().UTC()).Scan(&userID)
	if err != nil {
		return "", notFound(err, ErrRefreshInvalid)
	}
	return userID, nil
}

// RevokeByHash consumes one live token.  The conditional UPDATE is the
// point of serialisation for rotation: of two concurrent callers holding
// the same token exactly one sees a changed row, the other gets
// ErrRefreshInvalid.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ?
		WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?`,
		now.Truncate(time.Second), tokenHash, now)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if n == 0 {
		return ErrRefreshInvalid
	}
	return nil
}

// RevokeAllForUser ends every session of userID, e.g. on logout without a
// refresh token.  Having nothing left to revoke is not an error.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL",
		r.now().UTC().Truncate(time.Second), userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
