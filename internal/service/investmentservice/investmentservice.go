package investmentservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/pg"
)

//go:generate mockgen -source=investmentservice.go -destination=mock_investmentservice.go -package=investmentservice

type Ledger interface {
	CheckSufficientBalance(ctx context.Context, wallet string, amount decimal.Decimal, c domain.Currency) error
	Lock(ctx context.Context, rec *domain.Transaction) error
	Unlock(ctx context.Context, rec *domain.Transaction, profit decimal.Decimal) error
	Credit(ctx context.Context, rec *domain.Transaction) error
}

type Repo interface {
	Create(ctx context.Context, inv *domain.Investment) error
	FindByID(ctx context.Context, id string) (*domain.Investment, error)
	FindForUpdate(ctx context.Context, id string) (*domain.Investment, error)
	ListByWallet(ctx context.Context, wallet string, limit int) ([]domain.Investment, error)
	FindActive(ctx context.Context, after string, limit int) ([]string, error)
	FindUnsettled(ctx context.Context, after string, limit int) ([]string, error)
	Update(ctx context.Context, inv *domain.Investment) error
}

type Service struct {
	ledger Ledger
	repo   Repo
	tx     pg.TXManager
	now    func() time.Time
}

func New(ledger Ledger, repo Repo, tx pg.TXManager) *Service {
	return &Service{
		ledger: ledger,
		repo:   repo,
		tx:     tx,
		now:    time.Now,
	}
}

func (s *Service) Plans() []domain.Plan {
	return domain.Plans
}

// Create locks the principal and opens the investment. If the investment
// cannot be stored the lock is released again.
func (s *Service) Create(ctx context.Context, wallet string, userID *string, planName string, amount decimal.Decimal, c domain.Currency) (*domain.Investment, error) {
	plan, ok := domain.FindPlan(planName)
	if !ok {
		return nil, &domain.ValidationError{Field: "plan_name", Message: fmt.Sprintf("unknown plan %q", planName)}
	}
	if !c.Valid() {
		return nil, domain.ErrInvalidCurrency
	}
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if err := s.ledger.CheckSufficientBalance(ctx, wallet, amount, c); err != nil {
		return nil, err
	}

	inv := domain.NewInvestment(uuid.NewString(), wallet, userID, plan, amount, c, s.now())
	lock := &domain.Transaction{
		UserID:        userID,
		WalletAddress: wallet,
		Type:          domain.TransactionInvestment,
		Amount:        amount,
		Currency:      c,
		Description:   fmt.Sprintf("%s investment in %s plan", c, plan.Name),
		Metadata:      map[string]any{"investment_id": inv.ID, "plan": plan.Name},
	}
	if err := s.ledger.Lock(ctx, lock); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		zap.L().Error("failed to store investment, releasing lock", zap.String("investment", inv.ID), zap.Error(err))
		if uErr := s.ledger.Unlock(ctx, s.refund(inv, "investment creation failed"), decimal.Zero); uErr != nil {
			zap.L().Error("failed to release investment lock", zap.String("investment", inv.ID), zap.Error(uErr))
			return nil, errors.Join(err, uErr)
		}
		return nil, err
	}
	zap.L().Info("investment created", zap.String("investment", inv.ID), zap.String("wallet", wallet),
		zap.String("plan", plan.Name), zap.String("amount", amount.String()))
	return inv, nil
}

// Accrue runs one daily accrual step for the investment. The same-day check
// and the credit happen under the investment row lock.
func (s *Service) Accrue(ctx context.Context, id string, now time.Time) (domain.AccrualStep, error) {
	var step domain.AccrualStep
	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		inv, err := s.repo.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		step = inv.Accrue(now)
		if step.Skipped && !step.Matured {
			return nil
		}
		if step.Profit.IsPositive() {
			err := s.ledger.Credit(ctx, &domain.Transaction{
				UserID:        inv.UserID,
				WalletAddress: inv.WalletAddress,
				Type:          domain.TransactionProfit,
				Amount:        step.Profit,
				Currency:      inv.Currency,
				Description:   fmt.Sprintf("Daily profit from %s plan", inv.PlanName),
				Metadata:      map[string]any{"investment_id": inv.ID, "day": now.UTC().Format(time.DateOnly)},
			})
			if err != nil {
				return err
			}
		}
		return s.repo.Update(ctx, inv)
	})
	if err != nil {
		return domain.AccrualStep{}, err
	}
	return step, nil
}

// Settle returns the principal of a matured investment. It reports false when
// the principal was already returned.
func (s *Service) Settle(ctx context.Context, id string, now time.Time) (bool, error) {
	settled := false
	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		inv, err := s.repo.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !inv.NeedsSettlement() {
			return nil
		}
		if err := inv.MarkPrincipalUnlocked(now); err != nil {
			return err
		}
		if err := s.ledger.Unlock(ctx, s.refund(inv, "principal returned at maturity"), decimal.Zero); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, inv); err != nil {
			return err
		}
		settled = true
		return nil
	})
	return settled, err
}

// Cancel ends an active investment early. Profit already credited is kept and
// the principal is returned at once.
func (s *Service) Cancel(ctx context.Context, wallet, id string) (*domain.Investment, error) {
	var inv *domain.Investment
	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.repo.FindForUpdate(ctx, id); err != nil {
			return err
		}
		if inv.WalletAddress != wallet {
			return fmt.Errorf("investment %s: %w", id, domain.ErrNotFound)
		}
		if err := inv.Cancel(s.now()); err != nil {
			return err
		}
		if err := s.ledger.Unlock(ctx, s.refund(inv, "investment cancelled"), decimal.Zero); err != nil {
			return err
		}
		return s.repo.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("investment cancelled", zap.String("investment", id), zap.String("wallet", wallet))
	return inv, nil
}

func (s *Service) List(ctx context.Context, wallet string) ([]domain.Investment, error) {
	return s.repo.ListByWallet(ctx, wallet, 0)
}

func (s *Service) Get(ctx context.Context, wallet, id string) (*domain.Investment, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.WalletAddress != wallet {
		return nil, fmt.Errorf("investment %s: %w", id, domain.ErrNotFound)
	}
	return inv, nil
}

func (s *Service) ActiveInvestments(ctx context.Context, after string, limit int) ([]string, error) {
	return s.repo.FindActive(ctx, after, limit)
}

func (s *Service) UnsettledInvestments(ctx context.Context, after string, limit int) ([]string, error) {
	return s.repo.FindUnsettled(ctx, after, limit)
}

func (s *Service) refund(inv *domain.Investment, description string) *domain.Transaction {
	return &domain.Transaction{
		UserID:        inv.UserID,
		WalletAddress: inv.WalletAddress,
		Type:          domain.TransactionRefund,
		Amount:        inv.Amount,
		Currency:      inv.Currency,
		Description:   description,
		Metadata:      map[string]any{"investment_id": inv.ID},
	}
}
