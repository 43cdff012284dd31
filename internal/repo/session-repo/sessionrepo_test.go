package sessionrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/solyield/internal/domain"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	return New(mockDB), mockDB
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	s := &domain.Session{
		ID: "s-1", UserID: "user-1", WalletAddress: "wallet-1", Token: "tok",
		Message: "msg", Signature: "sig", ExpiresAt: now.Add(24 * time.Hour), LastActivityAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_sessions")).
		WithArgs("s-1", "user-1", "wallet-1", "tok", "msg", "sig", now.Add(24*time.Hour), now).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	require.NoError(t, repo.Create(context.Background(), s))
	assert.True(t, s.IsActive)
	assert.Equal(t, now, s.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindActive(t *testing.T) {
	repo, mock := NewMock(t)
	query := regexp.QuoteMeta("WHERE session_token = $1 AND is_active AND expires_at > $2")
	columns := []string{"id", "user_id", "wallet_address", "session_token", "message", "signature",
		"expires_at", "last_activity_at", "is_active", "created_at"}

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
		found     bool
	}{
		{
			name: "Active session",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs("tok", now).WillReturnRows(pgxmock.NewRows(columns).
					AddRow("s-1", "user-1", "wallet-1", "tok", "msg", "sig", now.Add(time.Hour), now, true, now))
			},
			found: true,
		},
		{
			name: "Expired or revoked",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs("tok", now).WillReturnError(pgx.ErrNoRows)
			},
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs("tok", now).WillReturnError(errors.New("boom"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			s, err := repo.FindActive(context.Background(), "tok", now)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.found, s != nil)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_TouchAndDeactivate(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectExec(regexp.QuoteMeta("SET last_activity_at = $2 WHERE id = $1")).WithArgs("s-1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	assert.NoError(t, repo.Touch(context.Background(), "s-1", now))

	mock.ExpectExec(regexp.QuoteMeta("SET is_active = FALSE WHERE session_token = $1")).WithArgs("unknown").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.NoError(t, repo.Deactivate(context.Background(), "unknown"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
