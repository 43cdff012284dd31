package transactionrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/solyield/internal/domain"
)

var (
	columns = []string{"id", "user_id", "wallet_address", "type", "amount", "currency", "status",
		"signature", "verified", "verified_at", "description", "metadata", "created_at", "updated_at"}
	now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
)

func ptr[T any](v T) *T { return &v }

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	return New(mockDB), mockDB
}

func deposit() *domain.Transaction {
	return &domain.Transaction{
		ID:            "tx-1",
		UserID:        ptr("user-1"),
		WalletAddress: "wallet-1",
		Type:          domain.TransactionDeposit,
		Amount:        decimal.RequireFromString("2.5"),
		Currency:      domain.SOL,
		Status:        domain.StatusCompleted,
		Signature:     ptr("sig-1"),
		Verified:      true,
		VerifiedAt:    ptr(now),
		Description:   "SOL deposit",
		Metadata:      map[string]any{"received": "2.5"},
	}
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	insert := regexp.QuoteMeta(`INSERT INTO transactions (id, user_id, wallet_address, type, amount, currency, status,`)

	tests := []struct {
		name      string
		mockSetup func()
		expectErr error
		anyErr    bool
	}{
		{
			name: "Inserts completed deposit",
			mockSetup: func() {
				mock.ExpectQuery(insert).
					WithArgs("tx-1", ptr("user-1"), "wallet-1", "deposit", "2.5", "SOL", "completed",
						ptr("sig-1"), true, ptr(now), "SOL deposit", `{"received":"2.5"}`).
					WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
			},
		},
		{
			name: "Duplicate completed signature",
			mockSetup: func() {
				mock.ExpectQuery(insert).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "transactions_completed_signature_key"})
			},
			expectErr: domain.ErrReplayDetected,
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(insert).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("connection reset"))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			rec := deposit()
			err := repo.Create(context.Background(), rec)
			switch {
			case tt.expectErr != nil:
				assert.ErrorIs(t, err, tt.expectErr)
			case tt.anyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrReplayDetected)
			default:
				assert.NoError(t, err)
				assert.Equal(t, now, rec.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_Finalize(t *testing.T) {
	repo, mock := NewMock(t)
	update := regexp.QuoteMeta(`WHERE id = $1 AND wallet_address = $2 AND type = $3 AND status = 'pending'`)

	tests := []struct {
		name      string
		mockSetup func()
		expectErr error
	}{
		{
			name: "Pending entry completed",
			mockSetup: func() {
				mock.ExpectQuery(update).
					WithArgs("tx-1", "wallet-1", "deposit", "completed", "2.5", ptr("sig-1"), true, ptr(now),
						"SOL deposit", `{"received":"2.5"}`, ptr("user-1")).
					WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
			},
		},
		{
			name: "Entry no longer pending",
			mockSetup: func() {
				mock.ExpectQuery(update).
					WithArgs("tx-1", "wallet-1", "deposit", "completed", "2.5", ptr("sig-1"), true, ptr(now),
						"SOL deposit", `{"received":"2.5"}`, ptr("user-1")).
					WillReturnError(pgx.ErrNoRows)
			},
			expectErr: domain.ErrNotFound,
		},
		{
			name: "Signature completed by a concurrent request",
			mockSetup: func() {
				mock.ExpectQuery(update).
					WithArgs("tx-1", "wallet-1", "deposit", "completed", "2.5", ptr("sig-1"), true, ptr(now),
						"SOL deposit", `{"received":"2.5"}`, ptr("user-1")).
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			expectErr: domain.ErrReplayDetected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			err := repo.Finalize(context.Background(), deposit())
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_FindCompletedBySignature(t *testing.T) {
	repo, mock := NewMock(t)
	query := regexp.QuoteMeta(`WHERE signature = $1 AND status = 'completed'`)

	mock.ExpectQuery(query).WithArgs("sig-1").WillReturnRows(pgxmock.NewRows(columns).AddRow(
		"tx-1", ptr("user-1"), "wallet-1", "deposit", "2.500000000", "SOL", "completed",
		ptr("sig-1"), true, ptr(now), "SOL deposit", `{"received": "2.5"}`, now, now))
	found, err := repo.FindCompletedBySignature(context.Background(), "sig-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.TransactionDeposit, found.Type)
	assert.Equal(t, domain.StatusCompleted, found.Status)
	assert.True(t, found.Amount.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, "2.5", found.Metadata["received"])

	mock.ExpectQuery(query).WithArgs("sig-2").WillReturnError(pgx.ErrNoRows)
	missing, err := repo.FindCompletedBySignature(context.Background(), "sig-2")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindForUpdate(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 FOR UPDATE`)).WithArgs("tx-9").WillReturnError(pgx.ErrNoRows)
	_, err := repo.FindForUpdate(context.Background(), "tx-9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByWallet(t *testing.T) {
	repo, mock := NewMock(t)

	rows := pgxmock.NewRows(columns).
		AddRow("tx-2", ptr("user-1"), "wallet-1", "withdrawal", "1", "USDC", "pending",
			(*string)(nil), false, (*time.Time)(nil), "USDC withdrawal", `{"destination":"dest"}`, now, now).
		AddRow("tx-1", ptr("user-1"), "wallet-1", "deposit", "10", "USDC", "completed",
			ptr("sig-1"), true, ptr(now), "USDC deposit", `{}`, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE wallet_address = $1 ORDER BY created_at DESC LIMIT $2`)).
		WithArgs("wallet-1", 100).
		WillReturnRows(rows)

	list, err := repo.ListByWallet(context.Background(), "wallet-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].Signature)
	assert.Equal(t, "dest", list[0].Metadata["destination"])
	assert.Equal(t, "sig-1", *list[1].Signature)
	assert.NoError(t, mock.ExpectationsWereMet())
}
