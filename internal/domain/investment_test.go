package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPlan(t *testing.T) {
	p, ok := FindPlan("growth")
	require.True(t, ok)
	assert.Equal(t, "Growth", p.Name)
	assert.Equal(t, 30, p.DurationDays)

	_, ok = FindPlan("unknown")
	assert.False(t, ok)
}

func TestNewInvestment(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	plan, _ := FindPlan("Growth")
	inv := NewInvestment("inv-1", "wallet", nil, plan, d("1000"), USDC, start)

	assert.Equal(t, InvestmentActive, inv.Status)
	assert.True(t, inv.DailyProfit().Equal(d("15")))
	assert.True(t, inv.ExpectedReturn.Equal(d("450")))
	assert.Equal(t, start.AddDate(0, 0, 30), inv.MaturityDate)
}

func TestInvestment_AccrueTenDays(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC)
	plan, _ := FindPlan("Growth")
	inv := NewInvestment("inv-1", "wallet", nil, plan, d("1000"), USDC, start)

	var now time.Time
	for day := 1; day <= 10; day++ {
		now = start.AddDate(0, 0, day)
		step := inv.Accrue(now)
		assert.False(t, step.Skipped)
		assert.True(t, step.Profit.Equal(d("15")))
	}
	assert.True(t, inv.ProfitEarned.Equal(d("150")))

	step := inv.Accrue(now.Add(time.Hour))
	assert.True(t, step.Skipped)
	assert.True(t, step.Profit.IsZero())
	assert.True(t, inv.ProfitEarned.Equal(d("150")))
}

func TestInvestment_AccrueMaturity(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	plan, _ := FindPlan("Starter")
	inv := NewInvestment("inv-1", "wallet", nil, plan, d("100"), SOL, start)

	for day := 0; day < 7; day++ {
		inv.Accrue(start.AddDate(0, 0, day).Add(time.Hour))
	}
	assert.Equal(t, InvestmentActive, inv.Status)
	assert.True(t, inv.ProfitEarned.Equal(inv.ExpectedReturn))

	step := inv.Accrue(inv.MaturityDate)
	assert.True(t, step.Matured)
	assert.True(t, step.Profit.IsZero(), "profit is capped at the expected return")
	assert.Equal(t, InvestmentCompleted, inv.Status)
	require.NotNil(t, inv.EndDate)
	assert.True(t, inv.NeedsSettlement())

	again := inv.Accrue(inv.MaturityDate.Add(48 * time.Hour))
	assert.True(t, again.Skipped)

	require.NoError(t, inv.MarkPrincipalUnlocked(inv.MaturityDate))
	assert.False(t, inv.NeedsSettlement())
	assert.ErrorIs(t, inv.MarkPrincipalUnlocked(inv.MaturityDate), ErrInvalidTransition)
}

func TestInvestment_Cancel(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	plan, _ := FindPlan("Premium")
	inv := NewInvestment("inv-1", "wallet", nil, plan, d("10"), USDT, now)
	inv.Accrue(now)

	require.NoError(t, inv.Cancel(now.Add(time.Hour)))
	assert.Equal(t, InvestmentCancelled, inv.Status)
	assert.NotNil(t, inv.PrincipalUnlockedAt)
	assert.True(t, inv.ProfitEarned.Equal(d("0.25")))
	assert.False(t, inv.NeedsSettlement())

	assert.ErrorIs(t, inv.Cancel(now), ErrInvalidTransition)
	assert.True(t, inv.Accrue(now.AddDate(0, 0, 1)).Skipped)
}
