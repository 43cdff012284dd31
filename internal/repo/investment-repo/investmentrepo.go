package investmentrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/pg"
)

const (
	investmentColumns = `id::text, user_id::text, wallet_address, plan_name, amount::text, currency,
        daily_return::text, duration_days, expected_return::text, start_date, maturity_date, status,
        profit_earned::text, last_profit_date, end_date, principal_unlocked_at, created_at, updated_at`

	defaultListLimit = 100
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, inv *domain.Investment) error {
	query := `
        INSERT INTO investments (id, user_id, wallet_address, plan_name, amount, currency, daily_return,
            duration_days, expected_return, start_date, maturity_date, status, profit_earned)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7::numeric, $8, $9::numeric, $10, $11, $12, $13::numeric)
        RETURNING created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query, inv.ID, inv.UserID, inv.WalletAddress, inv.PlanName, inv.Amount.String(),
		string(inv.Currency), inv.DailyReturn.String(), inv.DurationDays, inv.ExpectedReturn.String(),
		inv.StartDate, inv.MaturityDate, string(inv.Status), inv.ProfitEarned.String(),
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		zap.L().Error("failed to create investment", zap.String("id", inv.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *Repository) FindForUpdate(ctx context.Context, id string) (*domain.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, query, id)
}

func (r *Repository) findOne(ctx context.Context, query, id string) (*domain.Investment, error) {
	inv, err := scanInvestment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("investment %s: %w", id, domain.ErrNotFound)
		}
		zap.L().Error("failed to find investment", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return inv, nil
}

func (r *Repository) ListByWallet(ctx context.Context, wallet string, limit int) ([]domain.Investment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
        SELECT ` + investmentColumns + `
        FROM investments
        WHERE wallet_address = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, wallet, limit)
	if err != nil {
		zap.L().Error("failed to list investments", zap.String("wallet", wallet), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []domain.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			zap.L().Error("failed to scan investment", zap.Error(err))
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// FindActive returns up to limit ids of active investments greater than
// after, in id order. An empty after starts from the first id.
func (r *Repository) FindActive(ctx context.Context, after string, limit int) ([]string, error) {
	return r.ids(ctx, `
        SELECT id::text FROM investments
        WHERE status = 'active' AND id > $1::uuid
        ORDER BY id
        LIMIT $2
    `, after, limit)
}

// FindUnsettled pages matured investments whose principal is still locked.
func (r *Repository) FindUnsettled(ctx context.Context, after string, limit int) ([]string, error) {
	return r.ids(ctx, `
        SELECT id::text FROM investments
        WHERE status = 'completed' AND principal_unlocked_at IS NULL AND id > $1::uuid
        ORDER BY id
        LIMIT $2
    `, after, limit)
}

func (r *Repository) ids(ctx context.Context, query, after string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if after == "" {
		after = uuid.Nil.String()
	}
	rows, err := r.db.Query(ctx, query, after, limit)
	if err != nil {
		zap.L().Error("failed to select investment ids", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) Update(ctx context.Context, inv *domain.Investment) error {
	query := `
        UPDATE investments
        SET status = $2, profit_earned = $3::numeric, last_profit_date = $4,
            end_date = $5, principal_unlocked_at = $6, updated_at = NOW()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, inv.ID, string(inv.Status), inv.ProfitEarned.String(),
		inv.LastProfitDate, inv.EndDate, inv.PrincipalUnlockedAt)
	if err != nil {
		zap.L().Error("failed to update investment", zap.String("id", inv.ID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("investment %s: %w", inv.ID, domain.ErrNotFound)
	}
	return nil
}

func scanInvestment(row pgx.Row) (*domain.Investment, error) {
	var (
		inv              domain.Investment
		currency, status string
		nums             = make([]string, 4)
	)
	err := row.Scan(&inv.ID, &inv.UserID, &inv.WalletAddress, &inv.PlanName, &nums[0], &currency,
		&nums[1], &inv.DurationDays, &nums[2], &inv.StartDate, &inv.MaturityDate, &status,
		&nums[3], &inv.LastProfitDate, &inv.EndDate, &inv.PrincipalUnlockedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.Currency = domain.Currency(currency)
	inv.Status = domain.InvestmentStatus(status)
	if err := pg.ParseNumerics(nums, &inv.Amount, &inv.DailyReturn, &inv.ExpectedReturn, &inv.ProfitEarned); err != nil {
		return nil, err
	}
	return &inv, nil
}
