package balanceservice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/metrics"
	"github.com/GlebRadaev/solyield/internal/pg"
	"github.com/GlebRadaev/solyield/pkg/validate"
)

//go:generate mockgen -source=balanceservice.go -destination=mock_balanceservice.go -package=balanceservice

type BalanceRepo interface {
	Get(ctx context.Context, wallet string) (*domain.Balance, error)
	GetForUpdate(ctx context.Context, wallet string) (*domain.Balance, error)
	Ensure(ctx context.Context, wallet string, userID *string) error
	Update(ctx context.Context, b *domain.Balance) error
}

type TransactionRepo interface {
	Create(ctx context.Context, t *domain.Transaction) error
	Finalize(ctx context.Context, t *domain.Transaction) error
	FindForUpdate(ctx context.Context, id string) (*domain.Transaction, error)
	ListByWallet(ctx context.Context, wallet string, limit int) ([]domain.Transaction, error)
}

type Service struct {
	balances     BalanceRepo
	transactions TransactionRepo
	tx           pg.TXManager
	now          func() time.Time
}

func New(balances BalanceRepo, transactions TransactionRepo, tx pg.TXManager) *Service {
	return &Service{
		balances:     balances,
		transactions: transactions,
		tx:           tx,
		now:          time.Now,
	}
}

// Credit adds rec.Amount to the available pocket of rec.Currency and writes rec.
func (s *Service) Credit(ctx context.Context, rec *domain.Transaction) error {
	return s.apply(ctx, "credit", rec.WalletAddress, func(b *domain.Balance) error {
		return b.Credit(rec.Currency, rec.Amount, rec.Type)
	}, rec)
}

func (s *Service) Debit(ctx context.Context, rec *domain.Transaction) error {
	return s.apply(ctx, "debit", rec.WalletAddress, func(b *domain.Balance) error {
		return b.Debit(rec.Currency, rec.Amount)
	}, rec)
}

func (s *Service) Lock(ctx context.Context, rec *domain.Transaction) error {
	return s.apply(ctx, "lock", rec.WalletAddress, func(b *domain.Balance) error {
		return b.Lock(rec.Currency, rec.Amount)
	}, rec)
}

// Unlock releases rec.Amount of locked principal and pays profit on top.
// A positive profit gets its own profit entry.
func (s *Service) Unlock(ctx context.Context, rec *domain.Transaction, profit decimal.Decimal) error {
	records := []*domain.Transaction{rec}
	if profit.IsPositive() {
		records = append(records, &domain.Transaction{
			UserID:        rec.UserID,
			WalletAddress: rec.WalletAddress,
			Type:          domain.TransactionProfit,
			Amount:        profit,
			Currency:      rec.Currency,
			Status:        domain.StatusCompleted,
			Description:   fmt.Sprintf("%s profit released", rec.Currency),
			Metadata:      rec.Metadata,
		})
	}
	return s.apply(ctx, "unlock", rec.WalletAddress, func(b *domain.Balance) error {
		return b.Unlock(rec.Currency, rec.Amount, profit)
	}, records...)
}

// apply locks the balance row, mutates it and writes the log entries in one
// database transaction.
func (s *Service) apply(ctx context.Context, op, wallet string, mutate func(*domain.Balance) error, records ...*domain.Transaction) error {
	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		b, err := s.balances.GetForUpdate(ctx, wallet)
		if err != nil {
			return err
		}
		if err := mutate(b); err != nil {
			return err
		}
		if err := s.balances.Update(ctx, b); err != nil {
			return err
		}
		for _, rec := range records {
			if rec.UserID == nil {
				rec.UserID = b.UserID
			}
			if err := s.write(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.ObserveLedger(op, err)
	if err != nil {
		zap.L().Warn("ledger operation failed", zap.String("op", op), zap.String("wallet", wallet), zap.Error(err))
	}
	return err
}

// write creates rec, or finalizes the pending entry when rec already has an id.
func (s *Service) write(ctx context.Context, rec *domain.Transaction) error {
	if rec.Status == "" {
		rec.Status = domain.StatusCompleted
	}
	if rec.ID != "" {
		return s.transactions.Finalize(ctx, rec)
	}
	rec.ID = uuid.NewString()
	return s.transactions.Create(ctx, rec)
}

// GetBalance returns a zero balance for wallets that have no row yet.
func (s *Service) GetBalance(ctx context.Context, wallet string) (*domain.Balance, error) {
	b, err := s.balances.Get(ctx, wallet)
	if err != nil {
		zap.L().Error("failed to get balance", zap.Error(err))
		return nil, err
	}
	if b == nil {
		return domain.NewBalance(wallet), nil
	}
	return b, nil
}

func (s *Service) EnsureBalance(ctx context.Context, wallet string, userID *string) error {
	if err := s.balances.Ensure(ctx, wallet, userID); err != nil {
		zap.L().Error("failed to create balance", zap.Error(err))
		return err
	}
	return nil
}

// CheckSufficientBalance returns *domain.InsufficientBalanceError when the
// available pocket is below amount.
func (s *Service) CheckSufficientBalance(ctx context.Context, wallet string, amount decimal.Decimal, c domain.Currency) error {
	b, err := s.GetBalance(ctx, wallet)
	if err != nil {
		return err
	}
	p, err := b.Pocket(c)
	if err != nil {
		return err
	}
	if p.Available.LessThan(amount) {
		return &domain.InsufficientBalanceError{Currency: c, Required: amount, Available: p.Available}
	}
	return nil
}

func (s *Service) GetTransactions(ctx context.Context, wallet string, limit int) ([]domain.Transaction, error) {
	list, err := s.transactions.ListByWallet(ctx, wallet, limit)
	if err != nil {
		zap.L().Error("failed to fetch transactions", zap.Error(err))
		return nil, err
	}
	return list, nil
}

// Withdraw debits the amount and leaves a pending withdrawal for an operator
// to pay out.
func (s *Service) Withdraw(ctx context.Context, wallet string, amount decimal.Decimal, c domain.Currency, destination string) (*domain.Transaction, error) {
	if !c.Valid() {
		return nil, domain.ErrInvalidCurrency
	}
	if destination == "" {
		destination = wallet
	}
	if !validate.IsAddress(destination) {
		return nil, &domain.ValidationError{Field: "destination", Message: "invalid Solana address"}
	}
	rec := &domain.Transaction{
		WalletAddress: wallet,
		Type:          domain.TransactionWithdrawal,
		Amount:        amount,
		Currency:      c,
		Status:        domain.StatusPending,
		Description:   fmt.Sprintf("%s withdrawal", c),
		Metadata:      map[string]any{"destination": destination},
	}
	if err := s.Debit(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CompleteWithdrawal marks a pending withdrawal as paid out.
func (s *Service) CompleteWithdrawal(ctx context.Context, id, payoutSignature string) (*domain.Transaction, error) {
	var rec *domain.Transaction
	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		var err error
		if rec, err = s.pendingWithdrawal(ctx, id); err != nil {
			return err
		}
		b, err := s.balances.GetForUpdate(ctx, rec.WalletAddress)
		if err != nil {
			return err
		}
		if err := b.RecordWithdrawn(rec.Amount); err != nil {
			return err
		}
		if err := s.balances.Update(ctx, b); err != nil {
			return err
		}
		now := s.now()
		rec.Status = domain.StatusCompleted
		rec.Verified = payoutSignature != ""
		if rec.Verified {
			rec.VerifiedAt = &now
		}
		rec.Metadata = map[string]any{"payout_signature": payoutSignature}
		return s.transactions.Finalize(ctx, rec)
	})
	metrics.ObserveLedger("withdraw_complete", err)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FailWithdrawal marks a pending withdrawal as failed and returns the amount
// to the available pocket with a refund entry.
func (s *Service) FailWithdrawal(ctx context.Context, id, reason string) (*domain.Transaction, error) {
	var rec *domain.Transaction
	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		var err error
		if rec, err = s.pendingWithdrawal(ctx, id); err != nil {
			return err
		}
		rec.Status = domain.StatusFailed
		rec.Metadata = map[string]any{"failure_reason": reason}
		if err := s.transactions.Finalize(ctx, rec); err != nil {
			return err
		}
		return s.Credit(ctx, &domain.Transaction{
			UserID:        rec.UserID,
			WalletAddress: rec.WalletAddress,
			Type:          domain.TransactionRefund,
			Amount:        rec.Amount,
			Currency:      rec.Currency,
			Description:   fmt.Sprintf("%s withdrawal refund", rec.Currency),
			Metadata:      map[string]any{"withdrawal_id": rec.ID},
		})
	})
	metrics.ObserveLedger("withdraw_fail", err)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) pendingWithdrawal(ctx context.Context, id string) (*domain.Transaction, error) {
	rec, err := s.transactions.FindForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Type != domain.TransactionWithdrawal {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	if rec.Status != domain.StatusPending {
		return nil, domain.ErrInvalidTransition
	}
	return rec, nil
}
