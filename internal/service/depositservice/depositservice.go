package depositservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/metrics"
	"github.com/GlebRadaev/solyield/pkg/validate"
)

//go:generate mockgen -source=depositservice.go -destination=mock_depositservice.go -package=depositservice

type Verifier interface {
	Verify(ctx context.Context, claim domain.DepositClaim) (*domain.Verification, error)
}

type Ledger interface {
	Credit(ctx context.Context, rec *domain.Transaction) error
}

type TransactionRepo interface {
	FindCompletedBySignature(ctx context.Context, signature string) (*domain.Transaction, error)
	Create(ctx context.Context, t *domain.Transaction) error
	Finalize(ctx context.Context, t *domain.Transaction) error
}

type Service struct {
	verifier     Verifier
	ledger       Ledger
	transactions TransactionRepo
	now          func() time.Time
}

func New(verifier Verifier, ledger Ledger, transactions TransactionRepo) *Service {
	return &Service{
		verifier:     verifier,
		ledger:       ledger,
		transactions: transactions,
		now:          time.Now,
	}
}

// Verify credits a deposit once its on-chain transfer is proven. A signature
// is credited at most once.
func (s *Service) Verify(ctx context.Context, claim domain.DepositClaim) (*domain.Transaction, error) {
	if err := validateClaim(claim); err != nil {
		s.observe(claim.Currency, metrics.ResultInvalid)
		return nil, err
	}

	existing, err := s.transactions.FindCompletedBySignature(ctx, claim.Signature)
	if err != nil {
		s.observe(claim.Currency, metrics.ResultError)
		return nil, err
	}
	if existing != nil {
		s.observe(claim.Currency, metrics.ResultReplay)
		zap.L().Warn("deposit signature replayed", zap.String("signature", claim.Signature),
			zap.String("wallet", claim.WalletAddress))
		return nil, domain.ErrReplayDetected
	}

	res, err := s.verifier.Verify(ctx, claim)
	if err != nil {
		s.observe(claim.Currency, metrics.ResultError)
		return nil, err
	}
	if !res.Verified {
		s.observe(claim.Currency, metrics.ResultRejected)
		zap.L().Info("deposit rejected", zap.String("signature", claim.Signature),
			zap.String("reason", res.Reason), zap.Bool("retryable", res.Retryable))
		if !res.Retryable {
			s.rejectIntent(ctx, claim, res.Reason)
		}
		return nil, &domain.VerificationError{Reason: res.Reason}
	}

	now := s.now()
	signature := claim.Signature
	rec := &domain.Transaction{
		ID:            claim.TransactionID,
		WalletAddress: claim.WalletAddress,
		Type:          domain.TransactionDeposit,
		Amount:        claim.Amount,
		Currency:      claim.Currency,
		Status:        domain.StatusCompleted,
		Signature:     &signature,
		Verified:      true,
		VerifiedAt:    &now,
		Description:   fmt.Sprintf("%s deposit", claim.Currency),
		Metadata:      map[string]any{"received": res.Received.String()},
	}
	if err := s.ledger.Credit(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrReplayDetected) {
			s.observe(claim.Currency, metrics.ResultReplay)
		} else {
			s.observe(claim.Currency, metrics.ResultError)
		}
		return nil, err
	}
	s.observe(claim.Currency, metrics.ResultOK)
	zap.L().Info("deposit credited", zap.String("wallet", claim.WalletAddress),
		zap.String("currency", claim.Currency.String()), zap.String("amount", claim.Amount.String()))
	return rec, nil
}

// CreateIntent records a pending deposit the client can reference when it
// submits the signature.
func (s *Service) CreateIntent(ctx context.Context, wallet string, userID *string, amount decimal.Decimal, c domain.Currency) (*domain.Transaction, error) {
	if !c.Valid() {
		return nil, domain.ErrInvalidCurrency
	}
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	rec := &domain.Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		WalletAddress: wallet,
		Type:          domain.TransactionDeposit,
		Amount:        amount,
		Currency:      c,
		Status:        domain.StatusPending,
		Description:   fmt.Sprintf("%s deposit", c),
	}
	if err := s.transactions.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) rejectIntent(ctx context.Context, claim domain.DepositClaim, reason string) {
	if claim.TransactionID == "" {
		return
	}
	signature := claim.Signature
	rec := &domain.Transaction{
		ID:            claim.TransactionID,
		WalletAddress: claim.WalletAddress,
		Type:          domain.TransactionDeposit,
		Amount:        claim.Amount,
		Currency:      claim.Currency,
		Status:        domain.StatusFailed,
		Signature:     &signature,
		Description:   fmt.Sprintf("%s deposit", claim.Currency),
		Metadata:      map[string]any{"failure_reason": reason},
	}
	if err := s.transactions.Finalize(ctx, rec); err != nil {
		zap.L().Warn("failed to mark deposit intent failed", zap.String("id", claim.TransactionID), zap.Error(err))
	}
}

func (s *Service) observe(c domain.Currency, result string) {
	metrics.Deposits.WithLabelValues(c.String(), result).Inc()
}

func validateClaim(claim domain.DepositClaim) error {
	switch {
	case !validate.IsSignature(claim.Signature):
		return &domain.ValidationError{Field: "txSignature", Message: "invalid transaction signature"}
	case !validate.IsAddress(claim.WalletAddress):
		return &domain.ValidationError{Field: "walletAddress", Message: "invalid Solana address"}
	case !claim.Currency.Valid():
		return domain.ErrInvalidCurrency
	case !claim.Amount.IsPositive():
		return domain.ErrInvalidAmount
	}
	return nil
}
