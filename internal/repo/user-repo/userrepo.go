package userrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/pg"
)

const userColumns = `id::text, wallet_address, username, display_name, profile_completed,
        login_count, last_login_at, created_at, updated_at`

// ErrUsernameTaken is returned when another profile already holds the username.
var ErrUsernameTaken = fmt.Errorf("username already taken: %w", domain.ErrValidation)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (repo *Repository) FindByWallet(ctx context.Context, wallet string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE wallet_address = $1`
	user, err := scanUser(repo.db.QueryRow(ctx, query, wallet))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find user", zap.String("wallet", wallet), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (repo *Repository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(repo.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		zap.L().Error("can't find user", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// Create inserts the user, or returns the row another request created for
// the same wallet first.
func (repo *Repository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (id, wallet_address)
		VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO UPDATE SET updated_at = users.updated_at
		RETURNING ` + userColumns
	created, err := scanUser(repo.db.QueryRow(ctx, query, user.ID, user.WalletAddress))
	if err != nil {
		zap.L().Error("can't save user", zap.String("wallet", user.WalletAddress), zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (repo *Repository) RecordLogin(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET login_count = login_count + 1, last_login_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	tag, err := repo.db.Exec(ctx, query, id)
	if err != nil {
		zap.L().Error("can't record login", zap.String("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (repo *Repository) UpdateProfile(ctx context.Context, id, username, displayName string) (*domain.User, error) {
	query := `
		UPDATE users
		SET username = $2, display_name = $3, profile_completed = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(repo.db.QueryRow(ctx, query, id, username, displayName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		if _, ok := pg.UniqueViolation(err); ok {
			return nil, ErrUsernameTaken
		}
		zap.L().Error("can't update profile", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.WalletAddress, &u.Username, &u.DisplayName, &u.ProfileCompleted,
		&u.LoginCount, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
