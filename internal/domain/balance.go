package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Pocket struct {
	Available decimal.Decimal
	Locked    decimal.Decimal
}

// Total is the amount the user owns in this currency.
func (p Pocket) Total() decimal.Decimal {
	return p.Available.Add(p.Locked)
}

// Balance is the per-wallet ledger row. Lifetime counters are kept across
// currencies, as nominal sums.
type Balance struct {
	ID                string
	UserID            *string
	WalletAddress     string
	SOL               Pocket
	USDC              Pocket
	USDT              Pocket
	TotalDeposited    decimal.Decimal
	TotalWithdrawn    decimal.Decimal
	TotalProfitEarned decimal.Decimal
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewBalance(wallet string) *Balance {
	return &Balance{WalletAddress: wallet}
}

func (b *Balance) Pocket(c Currency) (*Pocket, error) {
	switch c {
	case SOL:
		return &b.SOL, nil
	case USDC:
		return &b.USDC, nil
	case USDT:
		return &b.USDT, nil
	}
	return nil, ErrInvalidCurrency
}

// Credit adds amount to available. kind decides which lifetime counter moves.
func (b *Balance) Credit(c Currency, amount decimal.Decimal, kind TransactionType) error {
	p, err := b.pocketFor(c, amount)
	if err != nil {
		return err
	}
	p.Available = p.Available.Add(amount)
	switch kind {
	case TransactionDeposit:
		b.TotalDeposited = b.TotalDeposited.Add(amount)
	case TransactionProfit:
		b.TotalProfitEarned = b.TotalProfitEarned.Add(amount)
	}
	return nil
}

func (b *Balance) Debit(c Currency, amount decimal.Decimal) error {
	p, err := b.pocketFor(c, amount)
	if err != nil {
		return err
	}
	if p.Available.LessThan(amount) {
		return &InsufficientBalanceError{Currency: c, Required: amount, Available: p.Available}
	}
	p.Available = p.Available.Sub(amount)
	return nil
}

func (b *Balance) Lock(c Currency, amount decimal.Decimal) error {
	p, err := b.pocketFor(c, amount)
	if err != nil {
		return err
	}
	if p.Available.LessThan(amount) {
		return &InsufficientBalanceError{Currency: c, Required: amount, Available: p.Available}
	}
	p.Available = p.Available.Sub(amount)
	p.Locked = p.Locked.Add(amount)
	return nil
}

// Unlock releases principal (locked is floored at zero) and pays profit on top.
func (b *Balance) Unlock(c Currency, principal, profit decimal.Decimal) error {
	p, err := b.pocketFor(c, principal)
	if err != nil {
		return err
	}
	if profit.IsNegative() {
		return ErrInvalidAmount
	}
	p.Locked = decimal.Max(p.Locked.Sub(principal), decimal.Zero)
	p.Available = p.Available.Add(principal).Add(profit)
	b.TotalProfitEarned = b.TotalProfitEarned.Add(profit)
	return nil
}

// RecordWithdrawn is applied once a withdrawal has been paid out.
func (b *Balance) RecordWithdrawn(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	b.TotalWithdrawn = b.TotalWithdrawn.Add(amount)
	return nil
}

func (b *Balance) pocketFor(c Currency, amount decimal.Decimal) (*Pocket, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return b.Pocket(c)
}
