package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/solyield/internal/domain"
)

type PocketDTO struct {
	Available decimal.Decimal `json:"available" swaggertype:"string" example:"10.5"`
	Locked    decimal.Decimal `json:"locked" swaggertype:"string" example:"2"`
}

type BalanceResponseDTO struct {
	WalletAddress     string          `json:"walletAddress"`
	SOL               PocketDTO       `json:"sol"`
	USDC              PocketDTO       `json:"usdc"`
	USDT              PocketDTO       `json:"usdt"`
	TotalDeposited    decimal.Decimal `json:"totalDeposited" swaggertype:"string"`
	TotalWithdrawn    decimal.Decimal `json:"totalWithdrawn" swaggertype:"string"`
	TotalProfitEarned decimal.Decimal `json:"totalProfitEarned" swaggertype:"string"`
}

func NewBalanceDTO(b *domain.Balance) BalanceResponseDTO {
	return BalanceResponseDTO{
		WalletAddress:     b.WalletAddress,
		SOL:               PocketDTO{Available: b.SOL.Available, Locked: b.SOL.Locked},
		USDC:              PocketDTO{Available: b.USDC.Available, Locked: b.USDC.Locked},
		USDT:              PocketDTO{Available: b.USDT.Available, Locked: b.USDT.Locked},
		TotalDeposited:    b.TotalDeposited,
		TotalWithdrawn:    b.TotalWithdrawn,
		TotalProfitEarned: b.TotalProfitEarned,
	}
}

type TransactionDTO struct {
	ID          string          `json:"id"`
	Type        string          `json:"type" example:"deposit"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"1.25"`
	Currency    string          `json:"currency" example:"SOL"`
	Status      string          `json:"status" example:"completed"`
	Signature   *string         `json:"signature,omitempty"`
	Verified    bool            `json:"verified"`
	VerifiedAt  *time.Time      `json:"verifiedAt,omitempty"`
	Description string          `json:"description"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func NewTransactionDTO(t *domain.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Currency:    t.Currency.String(),
		Status:      string(t.Status),
		Signature:   t.Signature,
		Verified:    t.Verified,
		VerifiedAt:  t.VerifiedAt,
		Description: t.Description,
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
	}
}

type WithdrawRequestDTO struct {
	Amount             decimal.Decimal `json:"amount" validate:"required,gt=0" swaggertype:"string" example:"1.5"`
	Currency           string          `json:"currency" validate:"required" example:"SOL"`
	DestinationAddress string          `json:"destinationAddress" validate:"omitempty,solana_address"`
}

type CompleteWithdrawalRequestDTO struct {
	PayoutSignature string `json:"payoutSignature" validate:"omitempty,solana_signature"`
}

type FailWithdrawalRequestDTO struct {
	Reason string `json:"reason" validate:"required,max=500" example:"payout rejected by operator"`
}
