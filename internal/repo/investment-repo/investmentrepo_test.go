package investmentrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/solyield/internal/domain"
)

var (
	columns = []string{"id", "user_id", "wallet_address", "plan_name", "amount", "currency",
		"daily_return", "duration_days", "expected_return", "start_date", "maturity_date", "status",
		"profit_earned", "last_profit_date", "end_date", "principal_unlocked_at", "created_at", "updated_at"}
	start = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
)

func ptr[T any](v T) *T { return &v }

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	return New(mockDB), mockDB
}

func growthRow(rows *pgxmock.Rows, id, status, earned string) *pgxmock.Rows {
	return rows.AddRow(id, ptr("user-1"), "wallet-1", "Growth", "1000.000000000", "USDC",
		"1.5000", 30, "450.000000000", start, start.AddDate(0, 0, 30), status,
		earned, ptr(start), (*time.Time)(nil), (*time.Time)(nil), start, start)
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	plan, _ := domain.FindPlan("growth")
	inv := domain.NewInvestment("inv-1", "wallet-1", ptr("user-1"), plan, decimal.NewFromInt(1000), domain.USDC, start)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO investments")).
		WithArgs("inv-1", ptr("user-1"), "wallet-1", "Growth", "1000", "USDC", "1.5", 30, "450",
			start, start.AddDate(0, 0, 30), "active", "0").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(start, start))

	require.NoError(t, repo.Create(context.Background(), inv))
	assert.Equal(t, start, inv.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindForUpdate(t *testing.T) {
	repo, mock := NewMock(t)
	query := regexp.QuoteMeta("FROM investments WHERE id = $1 FOR UPDATE")

	tests := []struct {
		name      string
		mockSetup func()
		expectErr error
		anyErr    bool
	}{
		{
			name: "Found",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs("inv-1").
					WillReturnRows(growthRow(pgxmock.NewRows(columns), "inv-1", "active", "15.000000000"))
			},
		},
		{
			name: "Missing",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs("inv-1").WillReturnError(pgx.ErrNoRows)
			},
			expectErr: domain.ErrNotFound,
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs("inv-1").WillReturnError(errors.New("boom"))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			inv, err := repo.FindForUpdate(context.Background(), "inv-1")
			switch {
			case tt.expectErr != nil:
				assert.ErrorIs(t, err, tt.expectErr)
			case tt.anyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, domain.InvestmentActive, inv.Status)
				assert.True(t, inv.ProfitEarned.Equal(decimal.NewFromInt(15)))
				assert.True(t, inv.DailyProfit().Equal(decimal.NewFromInt(15)))
				assert.Nil(t, inv.EndDate)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_FindActiveAndUnsettled(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'active' AND id > $1::uuid")).
		WithArgs("00000000-0000-0000-0000-000000000000", 50).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("inv-1").AddRow("inv-2"))
	ids, err := repo.FindActive(context.Background(), "", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"inv-1", "inv-2"}, ids)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'active' AND id > $1::uuid")).WithArgs("inv-2", 50).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	ids, err = repo.FindActive(context.Background(), "inv-2", 50)
	require.NoError(t, err)
	assert.Empty(t, ids)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'completed' AND principal_unlocked_at IS NULL AND id > $1::uuid")).
		WithArgs("00000000-0000-0000-0000-000000000000", 100).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	ids, err = repo.FindUnsettled(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByWallet(t *testing.T) {
	repo, mock := NewMock(t)

	rows := pgxmock.NewRows(columns)
	growthRow(rows, "inv-2", "active", "0")
	growthRow(rows, "inv-1", "completed", "450")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE wallet_address = $1")).WithArgs("wallet-1", 100).WillReturnRows(rows)

	list, err := repo.ListByWallet(context.Background(), "wallet-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.InvestmentCompleted, list[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update(t *testing.T) {
	repo, mock := NewMock(t)
	query := regexp.QuoteMeta("UPDATE investments")
	end := start.AddDate(0, 0, 30)
	inv := &domain.Investment{
		ID: "inv-1", Status: domain.InvestmentCompleted, ProfitEarned: decimal.NewFromInt(450),
		LastProfitDate: &end, EndDate: &end,
	}

	mock.ExpectExec(query).WithArgs("inv-1", "completed", "450", &end, &end, (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	assert.NoError(t, repo.Update(context.Background(), inv))

	mock.ExpectExec(query).WithArgs("inv-1", "completed", "450", &end, &end, (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.Update(context.Background(), inv), domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
