package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (r *tokenRepository) StoreVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	return r.store(ctx, userID, token, "verify", expiry)
}

func (r *tokenRepository) ValidateVerificationToken(ctx context.Context, token string) (uuid.UUID, error) {
	return r.validate(ctx, token, "verify")
}

func (r *tokenRepository) InvalidateVerificationToken(ctx context.Context, token string) error {
	return r.invalidate(ctx, token, "verify")
}

func (r *tokenRepository) StoreResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	return r.store(ctx, userID, token, "reset", expiry)
}

func (r *tokenRepository) ValidateResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	return r.validate(ctx, token, "reset")
}

func (r *tokenRepository) InvalidateResetToken(ctx context.Context, token string) error {
	return r.invalidate(ctx, token, "reset")
}

func (r *tokenRepository) BlacklistToken(ctx context.Context, token string, expiry time.Time) error {
	query := `
		INSERT INTO token_blacklist (token, expires_at, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (token) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, token, expiry)
	if err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (r *tokenRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM token_blacklist
			WHERE token = $1 AND expires_at > NOW()
		)
	`
	var blacklisted bool
	if err := r.db.GetContext(ctx, &blacklisted, query, token); err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return blacklisted, nil
}

func (r *tokenRepository) store(ctx context.Context, userID uuid.UUID, token, kind string, expiry time.Time) error {
	query := `
		INSERT INTO user_tokens (user_id, token, type, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, type) DO UPDATE
		SET token = $2, expires_at = $4, used_at = NULL, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, userID, token, kind, expiry)
	if err != nil {
		return fmt.Errorf("failed to store %s token: %w", kind, err)
	}
	return nil
}

func (r *tokenRepository) validate(ctx context.Context, token, kind string) (uuid.UUID, error) {
	query := `
		SELECT user_id
		FROM user_tokens
		WHERE token = $1
		AND type = $2
		AND expires_at > NOW()
		AND used_at IS NULL
	`
	var userID uuid.UUID
	err := r.db.GetContext(ctx, &userID, query, token, kind)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid or expired token")
	}
	return userID, nil
}

func (r *tokenRepository) invalidate(ctx context.Context, token, kind string) error {
	query := `
		UPDATE user_tokens
		SET used_at = NOW()
		WHERE token = $1
		AND type = $2
	`
	_, err := r.db.ExecContext(ctx, query, token, kind)
	if err != nil {
		return fmt.Errorf("failed to invalidate %s token: %w", kind, err)
	}
	return nil
}
