package repository

import (
	"context"
	"errors"
	"time"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/service"
)

type refreshTokenRecord struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	Revoked   bool      `json:"revoked"`
}

func (r *refreshTokenRecord) toService() *service.RefreshToken {
	return &service.RefreshToken{
		ID:        r.ID,
		UserID:    r.User,
		TokenHash: r.TokenHash,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
		Revoked:   r.Revoked,
	}
}

// TokenRepository handles refresh token data access
type TokenRepository struct {
	db database.Database
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db database.Database) *TokenRepository {
	return &TokenRepository{db: db}
}

// CreateRefreshToken stores a new refresh token
func (r *TokenRepository) CreateRefreshToken(ctx context.Context, token *service.RefreshToken) error {
	query := `
		CREATE refresh_token CONTENT {
			user: type::record($user),
			token_hash: $token_hash,
			expires_at: <datetime>$expires_at,
			created_at: time::now(),
			revoked: false
		}
	`
	vars := map[string]interface{}{
		"user":       token.UserID,
		"token_hash": token.TokenHash,
		"expires_at": formatTime(token.ExpiresAt),
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}

	created, err := firstRow[refreshTokenRecord](result)
	if err != nil {
		return err
	}
	token.ID = created.ID
	token.CreatedAt = created.CreatedAt
	return nil
}

// GetRefreshTokenByHash retrieves a refresh token by its hash, or nil
func (r *TokenRepository) GetRefreshTokenByHash(ctx context.Context, hash string) (*service.RefreshToken, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM refresh_token WHERE token_hash = $hash LIMIT 1`, map[string]interface{}{"hash": hash})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	rec, err := notFoundAsNil(decodeRecord[refreshTokenRecord](result))
	if rec == nil || err != nil {
		return nil, err
	}
	return rec.toService(), nil
}

// RevokeRefreshToken marks a refresh token as revoked. It reports
// database.ErrConflict when the token was already revoked, so two
// concurrent refreshes cannot both rotate the same token.
func (r *TokenRepository) RevokeRefreshToken(ctx context.Context, hash string) error {
	query := `UPDATE refresh_token SET revoked = true WHERE token_hash = $hash AND revoked = false RETURN AFTER`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"hash": hash})
	if err != nil {
		return err
	}
	if len(statementRows(result)) == 0 {
		return database.ErrConflict
	}
	return nil
}

// RevokeAllUserTokens revokes all refresh tokens for a user
func (r *TokenRepository) RevokeAllUserTokens(ctx context.Context, userID string) error {
	query := `UPDATE refresh_token SET revoked = true WHERE user = type::record($user) AND revoked = false`
	return r.db.Execute(ctx, query, map[string]interface{}{"user": userID})
}

// DeleteExpiredTokens removes expired tokens and tokens revoked over a week ago
func (r *TokenRepository) DeleteExpiredTokens(ctx context.Context) error {
	query := `
		DELETE refresh_token WHERE expires_at < time::now();
		DELETE refresh_token WHERE revoked = true AND created_at < <datetime>$cutoff;
	`
	cutoff := formatTime(time.Now().Add(-7 * 24 * time.Hour))
	return r.db.Execute(ctx, query, map[string]interface{}{"cutoff": cutoff})
}
