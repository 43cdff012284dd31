package dto

import "github.com/shopspring/decimal"

type VerifyDepositRequestDTO struct {
	TxSignature   string          `json:"txSignature" validate:"required,solana_signature"`
	WalletAddress string          `json:"walletAddress" validate:"required,solana_address"`
	Amount        decimal.Decimal `json:"amount" validate:"required,gt=0" swaggertype:"string" example:"1.5"`
	Currency      string          `json:"currency" validate:"required" example:"SOL"`
	UserID        string          `json:"userId,omitempty"`
	TransactionID string          `json:"transactionId,omitempty" validate:"omitempty,uuid"`
}

type VerifyDepositResponseDTO struct {
	Verified    bool           `json:"verified"`
	Transaction TransactionDTO `json:"transaction"`
}

type DepositIntentRequestDTO struct {
	Amount   decimal.Decimal `json:"amount" validate:"required,gt=0" swaggertype:"string" example:"1.5"`
	Currency string          `json:"currency" validate:"required" example:"SOL"`
}

type DepositIntentResponseDTO struct {
	TransactionID    string `json:"transactionId"`
	RecipientAddress string `json:"recipientAddress"`
}
