package service

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/solyield/internal/config"
	"github.com/GlebRadaev/solyield/internal/pg"
	"github.com/GlebRadaev/solyield/internal/repo"
	transactionrepo "github.com/GlebRadaev/solyield/internal/repo/transaction-repo"
	"github.com/GlebRadaev/solyield/internal/service/authservice"
	"github.com/GlebRadaev/solyield/internal/service/balanceservice"
	"github.com/GlebRadaev/solyield/internal/service/depositservice"
	"github.com/GlebRadaev/solyield/internal/service/investmentservice"
	pkgauth "github.com/GlebRadaev/solyield/pkg/auth"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	repos := &repo.Repositories{
		UserRepo:        authservice.NewMockUserRepo(ctrl),
		SessionRepo:     authservice.NewMockSessionRepo(ctrl),
		BalanceRepo:     balanceservice.NewMockBalanceRepo(ctrl),
		TransactionRepo: transactionrepo.New(mockDB),
		InvestmentRepo:  investmentservice.NewMockRepo(ctrl),
	}
	ext := External{
		Verifier:   depositservice.NewMockVerifier(ctrl),
		Challenges: authservice.NewMockChallengeStore(ctrl),
		JWT:        pkgauth.NewMockJWTServiceInterface(ctrl),
	}

	services := New(&config.Config{}, repos, pg.NewMockTXManager(ctrl), ext)

	assert.NotNil(t, services.AuthService)
	assert.NotNil(t, services.DepositService)
	assert.NotNil(t, services.BalanceService)
	assert.NotNil(t, services.InvestmentService)
	assert.NotNil(t, services.AccrualService)
	assert.Same(t, services.AuthService, services.SessionVerifier)
}
