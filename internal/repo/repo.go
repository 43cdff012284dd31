package repo

import (
	"github.com/GlebRadaev/solyield/internal/pg"
	balancerepo "github.com/GlebRadaev/solyield/internal/repo/balance-repo"
	investmentrepo "github.com/GlebRadaev/solyield/internal/repo/investment-repo"
	sessionrepo "github.com/GlebRadaev/solyield/internal/repo/session-repo"
	transactionrepo "github.com/GlebRadaev/solyield/internal/repo/transaction-repo"
	userrepo "github.com/GlebRadaev/solyield/internal/repo/user-repo"
	"github.com/GlebRadaev/solyield/internal/service/authservice"
	"github.com/GlebRadaev/solyield/internal/service/balanceservice"
	"github.com/GlebRadaev/solyield/internal/service/depositservice"
	"github.com/GlebRadaev/solyield/internal/service/investmentservice"
)

// TransactionRepo is the transaction log as both the ledger and the deposit
// flow see it.
type TransactionRepo interface {
	balanceservice.TransactionRepo
	depositservice.TransactionRepo
}

type Repositories struct {
	UserRepo        authservice.UserRepo
	SessionRepo     authservice.SessionRepo
	BalanceRepo     balanceservice.BalanceRepo
	TransactionRepo TransactionRepo
	InvestmentRepo  investmentservice.Repo
}

func New(conn pg.Database) *Repositories {
	return &Repositories{
		UserRepo:        userrepo.New(conn),
		SessionRepo:     sessionrepo.New(conn),
		BalanceRepo:     balancerepo.New(conn),
		TransactionRepo: transactionrepo.New(conn),
		InvestmentRepo:  investmentrepo.New(conn),
	}
}
