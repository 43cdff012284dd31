package sessionrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/pg"
)

const sessionColumns = `id::text, user_id::text, wallet_address, session_token, message, signature,
        expires_at, last_activity_at, is_active, created_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, s *domain.Session) error {
	query := `
        INSERT INTO user_sessions (id, user_id, wallet_address, session_token, message, signature,
            expires_at, last_activity_at, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
        RETURNING created_at
    `
	err := r.db.QueryRow(ctx, query, s.ID, s.UserID, s.WalletAddress, s.Token, s.Message, s.Signature,
		s.ExpiresAt, s.LastActivityAt).Scan(&s.CreatedAt)
	if err != nil {
		zap.L().Error("failed to create session", zap.String("wallet", s.WalletAddress), zap.Error(err))
		return err
	}
	s.IsActive = true
	return nil
}

// FindActive returns nil when the token is unknown, revoked or expired at now.
func (r *Repository) FindActive(ctx context.Context, token string, now time.Time) (*domain.Session, error) {
	query := `
        SELECT ` + sessionColumns + `
        FROM user_sessions
        WHERE session_token = $1 AND is_active AND expires_at > $2
    `
	var s domain.Session
	err := r.db.QueryRow(ctx, query, token, now).Scan(&s.ID, &s.UserID, &s.WalletAddress, &s.Token,
		&s.Message, &s.Signature, &s.ExpiresAt, &s.LastActivityAt, &s.IsActive, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("failed to find session", zap.Error(err))
		return nil, err
	}
	return &s, nil
}

func (r *Repository) Touch(ctx context.Context, id string, now time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE user_sessions SET last_activity_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		zap.L().Error("failed to touch session", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// Deactivate revokes the session. Revoking an unknown or revoked token is not an error.
func (r *Repository) Deactivate(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, `UPDATE user_sessions SET is_active = FALSE WHERE session_token = $1`, token)
	if err != nil {
		zap.L().Error("failed to deactivate session", zap.Error(err))
		return err
	}
	return nil
}
