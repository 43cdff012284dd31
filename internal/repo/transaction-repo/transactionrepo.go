package transactionrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/pg"
)

const (
	transactionColumns = `id::text, user_id::text, wallet_address, type, amount::text, currency, status,
        signature, verified, verified_at, description, metadata::text, created_at, updated_at`

	defaultListLimit = 100
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

// Create inserts a new log entry. A second completed entry for the same
// signature is reported as domain.ErrReplayDetected.
func (r *Repository) Create(ctx context.Context, t *domain.Transaction) error {
	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO transactions (id, user_id, wallet_address, type, amount, currency, status,
            signature, verified, verified_at, description, metadata)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12::jsonb)
        RETURNING created_at, updated_at
    `
	err = r.db.QueryRow(ctx, query, t.ID, t.UserID, t.WalletAddress, string(t.Type), t.Amount.String(),
		string(t.Currency), string(t.Status), t.Signature, t.Verified, t.VerifiedAt, t.Description, metadata,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return mapWriteError("create", t, err)
	}
	return nil
}

// Finalize moves a pending entry of the same wallet and type to its final
// status. Entries that are no longer pending are left untouched.
func (r *Repository) Finalize(ctx context.Context, t *domain.Transaction) error {
	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}
	query := `
        UPDATE transactions
        SET status = $4, amount = $5::numeric, signature = $6, verified = $7, verified_at = $8,
            description = $9, metadata = metadata || $10::jsonb,
            user_id = COALESCE(user_id, $11), updated_at = NOW()
        WHERE id = $1 AND wallet_address = $2 AND type = $3 AND status = 'pending'
        RETURNING created_at, updated_at
    `
	err = r.db.QueryRow(ctx, query, t.ID, t.WalletAddress, string(t.Type), string(t.Status), t.Amount.String(),
		t.Signature, t.Verified, t.VerifiedAt, t.Description, metadata, t.UserID,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("pending transaction %s: %w", t.ID, domain.ErrNotFound)
		}
		return mapWriteError("finalize", t, err)
	}
	return nil
}

func (r *Repository) FindForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `
        SELECT ` + transactionColumns + `
        FROM transactions
        WHERE id = $1
        FOR UPDATE
    `
	t, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}
		zap.L().Error("failed to find transaction", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return t, nil
}

// FindCompletedBySignature returns nil when the signature was never credited.
func (r *Repository) FindCompletedBySignature(ctx context.Context, signature string) (*domain.Transaction, error) {
	query := `
        SELECT ` + transactionColumns + `
        FROM transactions
        WHERE signature = $1 AND status = 'completed'
        LIMIT 1
    `
	t, err := scanTransaction(r.db.QueryRow(ctx, query, signature))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("failed to find transaction by signature", zap.String("signature", signature), zap.Error(err))
		return nil, err
	}
	return t, nil
}

func (r *Repository) ListByWallet(ctx context.Context, wallet string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
        SELECT ` + transactionColumns + `
        FROM transactions
        WHERE wallet_address = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, wallet, limit)
	if err != nil {
		zap.L().Error("failed to list transactions", zap.String("wallet", wallet), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			zap.L().Error("failed to scan transaction", zap.Error(err))
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                                      domain.Transaction
		txType, currency, status, amount, meta string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.WalletAddress, &txType, &amount, &currency, &status,
		&t.Signature, &t.Verified, &t.VerifiedAt, &t.Description, &meta, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Type = domain.TransactionType(txType)
	t.Currency = domain.Currency(currency)
	t.Status = domain.TransactionStatus(status)
	if err := pg.ParseNumerics([]string{amount}, &t.Amount); err != nil {
		return nil, err
	}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &t, nil
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

func mapWriteError(op string, t *domain.Transaction, err error) error {
	if _, ok := pg.UniqueViolation(err); ok && t.Signature != nil {
		zap.L().Warn("signature already completed", zap.String("signature", *t.Signature))
		return domain.ErrReplayDetected
	}
	zap.L().Error("failed to "+op+" transaction", zap.String("id", t.ID), zap.Error(err))
	return err
}
