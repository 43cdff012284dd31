package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
	InvestmentCancelled InvestmentStatus = "cancelled"
)

type Plan struct {
	Name         string          `json:"name"`
	DailyReturn  decimal.Decimal `json:"daily_return"`
	DurationDays int             `json:"duration_days"`
}

var Plans = []Plan{
	{Name: "Starter", DailyReturn: decimal.RequireFromString("0.5"), DurationDays: 7},
	{Name: "Growth", DailyReturn: decimal.RequireFromString("1.5"), DurationDays: 30},
	{Name: "Premium", DailyReturn: decimal.RequireFromString("2.5"), DurationDays: 90},
}

func FindPlan(name string) (Plan, bool) {
	for _, p := range Plans {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Plan{}, false
}

type Investment struct {
	ID                  string
	UserID              *string
	WalletAddress       string
	PlanName            string
	Amount              decimal.Decimal
	Currency            Currency
	DailyReturn         decimal.Decimal
	DurationDays        int
	ExpectedReturn      decimal.Decimal
	StartDate           time.Time
	MaturityDate        time.Time
	Status              InvestmentStatus
	ProfitEarned        decimal.Decimal
	LastProfitDate      *time.Time
	EndDate             *time.Time
	PrincipalUnlockedAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

var hundred = decimal.NewFromInt(100)

func NewInvestment(id, wallet string, userID *string, plan Plan, amount decimal.Decimal, c Currency, now time.Time) *Investment {
	daily := amount.Mul(plan.DailyReturn).Div(hundred)
	return &Investment{
		ID:             id,
		UserID:         userID,
		WalletAddress:  wallet,
		PlanName:       plan.Name,
		Amount:         amount,
		Currency:       c,
		DailyReturn:    plan.DailyReturn,
		DurationDays:   plan.DurationDays,
		ExpectedReturn: daily.Mul(decimal.NewFromInt(int64(plan.DurationDays))),
		StartDate:      now,
		MaturityDate:   now.AddDate(0, 0, plan.DurationDays),
		Status:         InvestmentActive,
		ProfitEarned:   decimal.Zero,
	}
}

func (i *Investment) DailyProfit() decimal.Decimal {
	return i.Amount.Mul(i.DailyReturn).Div(hundred)
}

// AccruedOn reports whether profit was already credited on now's UTC day.
func (i *Investment) AccruedOn(now time.Time) bool {
	if i.LastProfitDate == nil {
		return false
	}
	y1, m1, d1 := i.LastProfitDate.UTC().Date()
	y2, m2, d2 := now.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (i *Investment) Matured(now time.Time) bool {
	return !now.Before(i.MaturityDate)
}

type AccrualStep struct {
	Profit  decimal.Decimal
	Matured bool
	Skipped bool
}

// Accrue applies one daily accrual run at now. Profit never exceeds the
// expected return and is credited at most once per UTC day.
func (i *Investment) Accrue(now time.Time) AccrualStep {
	if i.Status != InvestmentActive {
		return AccrualStep{Skipped: true}
	}

	var step AccrualStep
	if !i.AccruedOn(now) {
		profit := decimal.Min(i.DailyProfit(), i.ExpectedReturn.Sub(i.ProfitEarned))
		if profit.IsPositive() {
			i.ProfitEarned = i.ProfitEarned.Add(profit)
			step.Profit = profit
		}
		t := now
		i.LastProfitDate = &t
	} else {
		step.Skipped = true
	}

	if i.Matured(now) {
		t := now
		i.Status = InvestmentCompleted
		i.EndDate = &t
		step.Matured = true
		step.Skipped = false
	}
	return step
}

// NeedsSettlement is true for a matured investment whose principal is still locked.
func (i *Investment) NeedsSettlement() bool {
	return i.Status == InvestmentCompleted && i.PrincipalUnlockedAt == nil
}

func (i *Investment) MarkPrincipalUnlocked(now time.Time) error {
	if i.PrincipalUnlockedAt != nil {
		return ErrInvalidTransition
	}
	t := now
	i.PrincipalUnlockedAt = &t
	return nil
}

// Cancel ends an active investment early. Profit already credited is kept.
func (i *Investment) Cancel(now time.Time) error {
	if i.Status != InvestmentActive {
		return ErrInvalidTransition
	}
	i.Status = InvestmentCancelled
	t := now
	i.EndDate = &t
	return i.MarkPrincipalUnlocked(now)
}

type AccrualReport struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Completed int `json:"completed"`
	Settled   int `json:"settled"`
}
