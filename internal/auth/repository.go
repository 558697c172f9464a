package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PasswordReset is a pending reset request. Only the token hash is stored.
type PasswordReset struct {
	Email     string
	TokenHash string
	ExpiresAt time.Time
}

// Repository handles password reset persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// PutReset stores a reset for email, replacing any previous one.
func (r *Repository) PutReset(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO password_resets (email, token_hash, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at, created_at = NOW()`
	_, err := r.pool.Exec(ctx, q, normalizeEmail(email), tokenHash, expiresAt)
	return err
}

// GetReset returns the pending reset for email, or nil.
func (r *Repository) GetReset(ctx context.Context, email string) (*PasswordReset, error) {
	var pr PasswordReset
	err := r.pool.QueryRow(ctx, `SELECT email, token_hash, expires_at FROM password_resets WHERE email = $1`, normalizeEmail(email)).
		Scan(&pr.Email, &pr.TokenHash, &pr.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// DeleteReset removes the pending reset for email.
func (r *Repository) DeleteReset(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM password_resets WHERE email = $1`, normalizeEmail(email))
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
