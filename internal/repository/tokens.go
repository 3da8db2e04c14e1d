package repository

import (
	"context"
	"fmt"

	"github.com/gatherly/gatherly-api/internal/model"
)

// TokenRepository stores one Google OAuth token record per user.
type TokenRepository struct {
	db DB
}

// NewTokenRepository constructs a TokenRepository.
func NewTokenRepository(db DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Get returns the user's token record or ErrNotFound.
func (r *TokenRepository) Get(ctx context.Context, userID string) (*model.TokenRecord, error) {
	var rec model.TokenRecord
	err := r.db.QueryRow(ctx,
		`SELECT user_id, access_token, refresh_token, token_type, expiry_date, updated_at
		 FROM google_form_tokens WHERE user_id = $1`,
		userID,
	).Scan(&rec.UserID, &rec.AccessToken, &rec.RefreshToken, &rec.TokenType, &rec.ExpiryDate, &rec.UpdatedAt)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get google tokens: %w", err)
	}
	return &rec, nil
}

// Upsert replaces the user's token record. A refresh response that omits the
// refresh token keeps the stored one.
func (r *TokenRepository) Upsert(ctx context.Context, rec model.TokenRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO google_form_tokens (user_id, access_token, refresh_token, token_type, expiry_date, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), google_form_tokens.refresh_token),
			token_type = EXCLUDED.token_type,
			expiry_date = EXCLUDED.expiry_date,
			updated_at = EXCLUDED.updated_at`,
		rec.UserID, rec.AccessToken, rec.RefreshToken, rec.TokenType, rec.ExpiryDate, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert google tokens: %w", err)
	}
	return nil
}

// Delete removes the user's token record. Deleting a missing record succeeds.
func (r *TokenRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM google_form_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete google tokens: %w", err)
	}
	return nil
}
