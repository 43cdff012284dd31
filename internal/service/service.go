package service

import (
	"github.com/GlebRadaev/solyield/internal/accrual"
	"github.com/GlebRadaev/solyield/internal/config"
	"github.com/GlebRadaev/solyield/internal/handlers/auth"
	"github.com/GlebRadaev/solyield/internal/handlers/balance"
	"github.com/GlebRadaev/solyield/internal/handlers/deposits"
	"github.com/GlebRadaev/solyield/internal/handlers/investments"
	"github.com/GlebRadaev/solyield/internal/pg"
	"github.com/GlebRadaev/solyield/internal/repo"
	"github.com/GlebRadaev/solyield/internal/service/authservice"
	"github.com/GlebRadaev/solyield/internal/service/balanceservice"
	"github.com/GlebRadaev/solyield/internal/service/depositservice"
	"github.com/GlebRadaev/solyield/internal/service/investmentservice"
	pkgauth "github.com/GlebRadaev/solyield/pkg/auth"
)

// External collaborators that do not live in Postgres.
type External struct {
	Verifier   depositservice.Verifier
	Challenges authservice.ChallengeStore
	JWT        pkgauth.JWTServiceInterface
}

type Services struct {
	AuthService       auth.Service
	SessionVerifier   pkgauth.SessionVerifier
	DepositService    deposits.Service
	BalanceService    balance.Service
	InvestmentService investments.Service
	AccrualService    *accrual.Service
}

func New(cfg *config.Config, repo *repo.Repositories, txManager pg.TXManager, ext External) *Services {
	balanceService := balanceservice.New(repo.BalanceRepo, repo.TransactionRepo, txManager)
	depositService := depositservice.New(ext.Verifier, balanceService, repo.TransactionRepo)
	investmentService := investmentservice.New(balanceService, repo.InvestmentRepo, txManager)
	authService := authservice.New(cfg, repo.UserRepo, repo.SessionRepo, ext.Challenges, balanceService, ext.JWT)

	return &Services{
		AuthService:       authService,
		SessionVerifier:   authService,
		DepositService:    depositService,
		BalanceService:    balanceService,
		InvestmentService: investmentService,
		AccrualService:    accrual.New(cfg, investmentService),
	}
}
