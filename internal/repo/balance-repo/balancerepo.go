package balancerepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/pg"
)

const balanceColumns = `id::text, user_id::text, wallet_address,
        sol_balance::text, sol_locked::text, usdc_balance::text, usdc_locked::text,
        usdt_balance::text, usdt_locked::text,
        total_deposited::text, total_withdrawn::text, total_profit_earned::text,
        created_at, updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

// Get returns nil when the wallet has no balance row yet.
func (r *Repository) Get(ctx context.Context, wallet string) (*domain.Balance, error) {
	query := `
        SELECT ` + balanceColumns + `
        FROM platform_balances
        WHERE wallet_address = $1
    `
	balance, err := scanBalance(r.db.QueryRow(ctx, query, wallet))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("failed to get balance", zap.String("wallet", wallet), zap.Error(err))
		return nil, err
	}
	return balance, nil
}

// GetForUpdate creates the zero row on first touch and locks it for the
// surrounding transaction.
func (r *Repository) GetForUpdate(ctx context.Context, wallet string) (*domain.Balance, error) {
	insert := `
        INSERT INTO platform_balances (wallet_address)
        VALUES ($1)
        ON CONFLICT (wallet_address) DO NOTHING
    `
	if _, err := r.db.Exec(ctx, insert, wallet); err != nil {
		zap.L().Error("failed to initialize balance", zap.String("wallet", wallet), zap.Error(err))
		return nil, err
	}

	query := `
        SELECT ` + balanceColumns + `
        FROM platform_balances
        WHERE wallet_address = $1
        FOR UPDATE
    `
	balance, err := scanBalance(r.db.QueryRow(ctx, query, wallet))
	if err != nil {
		zap.L().Error("failed to lock balance", zap.String("wallet", wallet), zap.Error(err))
		return nil, err
	}
	return balance, nil
}

// Ensure creates the zero row and binds it to the user if it is still anonymous.
func (r *Repository) Ensure(ctx context.Context, wallet string, userID *string) error {
	query := `
        INSERT INTO platform_balances (wallet_address, user_id)
        VALUES ($1, $2)
        ON CONFLICT (wallet_address) DO UPDATE
        SET user_id = COALESCE(platform_balances.user_id, EXCLUDED.user_id)
    `
	if _, err := r.db.Exec(ctx, query, wallet, userID); err != nil {
		zap.L().Error("failed to ensure balance", zap.String("wallet", wallet), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, b *domain.Balance) error {
	query := `
        UPDATE platform_balances
        SET sol_balance = $2::numeric, sol_locked = $3::numeric,
            usdc_balance = $4::numeric, usdc_locked = $5::numeric,
            usdt_balance = $6::numeric, usdt_locked = $7::numeric,
            total_deposited = $8::numeric, total_withdrawn = $9::numeric,
            total_profit_earned = $10::numeric, updated_at = NOW()
        WHERE wallet_address = $1
    `
	tag, err := r.db.Exec(ctx, query, b.WalletAddress,
		b.SOL.Available.String(), b.SOL.Locked.String(),
		b.USDC.Available.String(), b.USDC.Locked.String(),
		b.USDT.Available.String(), b.USDT.Locked.String(),
		b.TotalDeposited.String(), b.TotalWithdrawn.String(), b.TotalProfitEarned.String(),
	)
	if err != nil {
		zap.L().Error("failed to update balance", zap.String("wallet", b.WalletAddress), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance %s: %w", b.WalletAddress, domain.ErrNotFound)
	}
	return nil
}

func scanBalance(row pgx.Row) (*domain.Balance, error) {
	var b domain.Balance
	nums := make([]string, 9)
	err := row.Scan(&b.ID, &b.UserID, &b.WalletAddress,
		&nums[0], &nums[1], &nums[2], &nums[3], &nums[4], &nums[5], &nums[6], &nums[7], &nums[8],
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	err = pg.ParseNumerics(nums,
		&b.SOL.Available, &b.SOL.Locked, &b.USDC.Available, &b.USDC.Locked,
		&b.USDT.Available, &b.USDT.Locked,
		&b.TotalDeposited, &b.TotalWithdrawn, &b.TotalProfitEarned)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
