package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionInvestment TransactionType = "investment"
	TransactionProfit     TransactionType = "profit"
	TransactionRefund     TransactionType = "refund"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Transaction is a transaction-log entry. Completed entries are never changed.
type Transaction struct {
	ID            string
	UserID        *string
	WalletAddress string
	Type          TransactionType
	Amount        decimal.Decimal
	Currency      Currency
	Status        TransactionStatus
	Signature     *string
	Verified      bool
	VerifiedAt    *time.Time
	Description   string
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DepositClaim is what a client asserts about an on-chain transfer.
type DepositClaim struct {
	Signature     string
	WalletAddress string
	Amount        decimal.Decimal
	Currency      Currency
	TransactionID string
}

// Verification is the verifier's verdict. Retryable marks a rejection that
// may succeed later, such as a timeout or a transaction not yet visible.
type Verification struct {
	Verified  bool
	Retryable bool
	Reason    string
	Received  decimal.Decimal
}
