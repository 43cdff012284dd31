package service_test

import (
	"context"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/solyield/internal/accrual"
	"github.com/GlebRadaev/solyield/internal/config"
	"github.com/GlebRadaev/solyield/internal/domain"
	memrepo "github.com/GlebRadaev/solyield/internal/repo/mem-repo"
	"github.com/GlebRadaev/solyield/internal/service/balanceservice"
	"github.com/GlebRadaev/solyield/internal/service/depositservice"
	"github.com/GlebRadaev/solyield/internal/service/investmentservice"
)

const (
	wallet    = "US517G5965aydkZ46HS38QLi7UQiSojurfbQfKCELFx"
	signature = "2Ana1pUpv2ZbMVkwF5FXapYeBEjdxDatLn7nvJkhgTSXbs59SyZSx866bXirPgj8QQVB57uxHJBG1YFvkRbFj4T"
	other     = "3LJnHMv3ygbULcerbSFVsk2Jo33Qv8DoyUJQh2E9UZAGYXcv7Y7KGZ3hPw5F5j9C9tBhVcYqipRnNEugKV1rnSU"
)

type verifierFunc func(claim domain.DepositClaim) *domain.Verification

func (f verifierFunc) Verify(_ context.Context, claim domain.DepositClaim) (*domain.Verification, error) {
	return f(claim), nil
}

func acceptAll(claim domain.DepositClaim) *domain.Verification {
	return &domain.Verification{Verified: true, Received: claim.Amount}
}

type stack struct {
	store       *memrepo.Store
	balances    *balanceservice.Service
	deposits    *depositservice.Service
	investments *investmentservice.Service
}

func newStack(verify verifierFunc) *stack {
	store := memrepo.New()
	balances := balanceservice.New(store, store.Transactions(), store)
	return &stack{
		store:       store,
		balances:    balances,
		deposits:    depositservice.New(verify, balances, store.Transactions()),
		investments: investmentservice.New(balances, store.Investments(), store),
	}
}

func (s *stack) deposit(t *testing.T, sig, amount string) {
	t.Helper()
	_, err := s.deposits.Verify(context.Background(), domain.DepositClaim{
		Signature:     sig,
		WalletAddress: wallet,
		Amount:        decimal.RequireFromString(amount),
		Currency:      domain.SOL,
	})
	require.NoError(t, err)
}

func (s *stack) sol(t *testing.T) domain.Pocket {
	t.Helper()
	b, err := s.balances.GetBalance(context.Background(), wallet)
	require.NoError(t, err)
	return b.SOL
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testSignature(n int) string {
	b := make([]byte, 64)
	b[0] = 1
	binary.BigEndian.PutUint64(b[56:], uint64(n))
	return base58.Encode(b)
}

func TestScenario_DepositCreditedOnce(t *testing.T) {
	s := newStack(acceptAll)
	ctx := context.Background()
	s.deposit(t, signature, "10")

	_, err := s.deposits.Verify(ctx, domain.DepositClaim{
		Signature: signature, WalletAddress: wallet, Amount: dec("10"), Currency: domain.SOL,
	})
	assert.ErrorIs(t, err, domain.ErrReplayDetected)

	b, err := s.balances.GetBalance(ctx, wallet)
	require.NoError(t, err)
	assert.True(t, b.SOL.Available.Equal(dec("10")))
	assert.True(t, b.TotalDeposited.Equal(dec("10")))

	list, err := s.balances.GetTransactions(ctx, wallet, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.StatusCompleted, list[0].Status)
	assert.True(t, list[0].Verified)
}

func TestScenario_ConcurrentReplayCreditsOnce(t *testing.T) {
	s := newStack(acceptAll)
	var ok atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.deposits.Verify(context.Background(), domain.DepositClaim{
				Signature: signature, WalletAddress: wallet, Amount: dec("1"), Currency: domain.SOL,
			})
			if err == nil {
				ok.Add(1)
				return
			}
			assert.ErrorIs(t, err, domain.ErrReplayDetected)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.True(t, s.sol(t).Available.Equal(dec("1")))
}

func TestScenario_DepositIntent(t *testing.T) {
	rejectSmall := func(claim domain.DepositClaim) *domain.Verification {
		if claim.Amount.LessThan(dec("1")) {
			return &domain.Verification{Reason: "amount mismatch"}
		}
		return acceptAll(claim)
	}
	s := newStack(rejectSmall)
	ctx := context.Background()

	intent, err := s.deposits.CreateIntent(ctx, wallet, nil, dec("2"), domain.SOL)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, intent.Status)

	rec, err := s.deposits.Verify(ctx, domain.DepositClaim{
		Signature: signature, WalletAddress: wallet, Amount: dec("2"), Currency: domain.SOL, TransactionID: intent.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, intent.ID, rec.ID)

	failed, err := s.deposits.CreateIntent(ctx, wallet, nil, dec("0.5"), domain.SOL)
	require.NoError(t, err)
	_, err = s.deposits.Verify(ctx, domain.DepositClaim{
		Signature: other, WalletAddress: wallet, Amount: dec("0.5"), Currency: domain.SOL, TransactionID: failed.ID,
	})
	var vErr *domain.VerificationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "amount mismatch", vErr.Reason)

	list, err := s.balances.GetTransactions(ctx, wallet, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	statuses := map[string]domain.TransactionStatus{}
	for _, tr := range list {
		statuses[tr.ID] = tr.Status
	}
	assert.Equal(t, domain.StatusCompleted, statuses[intent.ID])
	assert.Equal(t, domain.StatusFailed, statuses[failed.ID])
	assert.True(t, s.sol(t).Available.Equal(dec("2")))
}

func TestScenario_IntentSurvivesChainTimeout(t *testing.T) {
	var calls atomic.Int32
	timeoutOnce := func(claim domain.DepositClaim) *domain.Verification {
		if calls.Add(1) == 1 {
			return &domain.Verification{Reason: "chain lookup timed out", Retryable: true}
		}
		return acceptAll(claim)
	}
	s := newStack(timeoutOnce)
	ctx := context.Background()

	intent, err := s.deposits.CreateIntent(ctx, wallet, nil, dec("2"), domain.SOL)
	require.NoError(t, err)
	deposit := domain.DepositClaim{
		Signature: signature, WalletAddress: wallet, Amount: dec("2"), Currency: domain.SOL, TransactionID: intent.ID,
	}

	_, err = s.deposits.Verify(ctx, deposit)
	require.ErrorIs(t, err, domain.ErrVerificationFailed)
	list, err := s.balances.GetTransactions(ctx, wallet, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.StatusPending, list[0].Status)

	rec, err := s.deposits.Verify(ctx, deposit)
	require.NoError(t, err)
	assert.Equal(t, intent.ID, rec.ID)
	assert.True(t, s.sol(t).Available.Equal(dec("2")))
}

func TestScenario_InsufficientInvestmentChangesNothing(t *testing.T) {
	s := newStack(acceptAll)
	s.deposit(t, signature, "1")

	_, err := s.investments.Create(context.Background(), wallet, nil, "Starter", dec("5"), domain.SOL)
	var insufficient *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Available.Equal(dec("1")))

	p := s.sol(t)
	assert.True(t, p.Available.Equal(dec("1")))
	assert.True(t, p.Locked.IsZero())
}

func TestScenario_ConcurrentLocksOneWins(t *testing.T) {
	s := newStack(acceptAll)
	s.deposit(t, signature, "1")

	var ok atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.investments.Create(context.Background(), wallet, nil, "Starter", dec("1"), domain.SOL)
			if err == nil {
				ok.Add(1)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	p := s.sol(t)
	assert.True(t, p.Available.IsZero())
	assert.True(t, p.Locked.Equal(dec("1")))
}

func TestScenario_InvestmentLifecycle(t *testing.T) {
	s := newStack(acceptAll)
	ctx := context.Background()
	s.deposit(t, signature, "10")

	inv, err := s.investments.Create(ctx, wallet, nil, "Starter", dec("1"), domain.SOL)
	require.NoError(t, err)
	p := s.sol(t)
	assert.True(t, p.Available.Equal(dec("9")))
	assert.True(t, p.Locked.Equal(dec("1")))

	day1 := inv.StartDate.Add(24 * time.Hour)
	step, err := s.investments.Accrue(ctx, inv.ID, day1)
	require.NoError(t, err)
	assert.True(t, step.Profit.Equal(dec("0.005")))

	again, err := s.investments.Accrue(ctx, inv.ID, day1)
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.True(t, s.sol(t).Available.Equal(dec("9.005")))

	for d := 2; d <= 6; d++ {
		_, err := s.investments.Accrue(ctx, inv.ID, inv.StartDate.Add(time.Duration(d)*24*time.Hour))
		require.NoError(t, err)
	}
	maturity := inv.MaturityDate
	step, err = s.investments.Accrue(ctx, inv.ID, maturity)
	require.NoError(t, err)
	assert.True(t, step.Matured)

	got, err := s.investments.Get(ctx, wallet, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentCompleted, got.Status)
	assert.True(t, got.ProfitEarned.Equal(got.ExpectedReturn))

	settled, err := s.investments.Settle(ctx, inv.ID, maturity)
	require.NoError(t, err)
	assert.True(t, settled)
	settled, err = s.investments.Settle(ctx, inv.ID, maturity)
	require.NoError(t, err)
	assert.False(t, settled)

	b, err := s.balances.GetBalance(ctx, wallet)
	require.NoError(t, err)
	assert.True(t, b.SOL.Available.Equal(dec("10.035")))
	assert.True(t, b.SOL.Locked.IsZero())
	assert.True(t, b.TotalProfitEarned.Equal(dec("0.035")))

	_, err = s.investments.Cancel(ctx, wallet, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestScenario_AccrualReachesEveryInvestment(t *testing.T) {
	s := newStack(acceptAll)
	ctx := context.Background()
	s.deposit(t, signature, "30")

	var ids []string
	for range 3 {
		inv, err := s.investments.Create(ctx, wallet, nil, "Growth", dec("10"), domain.SOL)
		require.NoError(t, err)
		ids = append(ids, inv.ID)
	}

	runner := accrual.New(&config.Config{AccrualWorkers: 2, AccrualBatch: 2}, s.investments)
	day := time.Now().Add(24 * time.Hour)
	report, err := runner.Run(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Processed)

	for range 4 {
		report, err = runner.Run(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, domain.AccrualReport{Skipped: 3}, report)
	}

	for _, id := range ids {
		inv, err := s.investments.Get(ctx, wallet, id)
		require.NoError(t, err)
		assert.True(t, inv.ProfitEarned.Equal(dec("0.15")), "investment %s earned %s", id, inv.ProfitEarned)
	}
}

func TestScenario_CancelReturnsPrincipal(t *testing.T) {
	s := newStack(acceptAll)
	ctx := context.Background()
	s.deposit(t, signature, "4")

	inv, err := s.investments.Create(ctx, wallet, nil, "Growth", dec("4"), domain.SOL)
	require.NoError(t, err)
	_, err = s.investments.Accrue(ctx, inv.ID, inv.StartDate.Add(24*time.Hour))
	require.NoError(t, err)

	_, err = s.investments.Cancel(ctx, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	cancelled, err := s.investments.Cancel(ctx, wallet, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentCancelled, cancelled.Status)

	p := s.sol(t)
	assert.True(t, p.Available.Equal(dec("4.06")))
	assert.True(t, p.Locked.IsZero())

	settled, err := s.investments.Settle(ctx, inv.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, settled)
}

func TestScenario_WithdrawalRefund(t *testing.T) {
	s := newStack(acceptAll)
	ctx := context.Background()
	s.deposit(t, signature, "3")

	w, err := s.balances.Withdraw(ctx, wallet, dec("2"), domain.SOL, "")
	require.NoError(t, err)
	assert.True(t, s.sol(t).Available.Equal(dec("1")))

	_, err = s.balances.Withdraw(ctx, wallet, dec("2"), domain.SOL, "")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = s.balances.FailWithdrawal(ctx, w.ID, "rpc down")
	require.NoError(t, err)
	assert.True(t, s.sol(t).Available.Equal(dec("3")))

	_, err = s.balances.CompleteWithdrawal(ctx, w.ID, other)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	w2, err := s.balances.Withdraw(ctx, wallet, dec("3"), domain.SOL, "")
	require.NoError(t, err)
	_, err = s.balances.CompleteWithdrawal(ctx, w2.ID, other)
	require.NoError(t, err)

	b, err := s.balances.GetBalance(ctx, wallet)
	require.NoError(t, err)
	assert.True(t, b.SOL.Available.IsZero())
	assert.True(t, b.TotalWithdrawn.Equal(dec("3")))
}

// foldLog replays the SOL entries of the transaction log into the pockets
// they should have produced. A failed withdrawal still counts as a debit
// because its refund entry credits the amount back.
func foldLog(list []domain.Transaction) (available, locked decimal.Decimal) {
	available, locked = decimal.Zero, decimal.Zero
	for _, rec := range list {
		if rec.Currency != domain.SOL {
			continue
		}
		switch rec.Type {
		case domain.TransactionDeposit:
			if rec.Status == domain.StatusCompleted {
				available = available.Add(rec.Amount)
			}
		case domain.TransactionProfit:
			available = available.Add(rec.Amount)
		case domain.TransactionRefund:
			available = available.Add(rec.Amount)
			if _, ok := rec.Metadata["investment_id"]; ok {
				locked = locked.Sub(rec.Amount)
			}
		case domain.TransactionInvestment:
			available = available.Sub(rec.Amount)
			locked = locked.Add(rec.Amount)
		case domain.TransactionWithdrawal:
			available = available.Sub(rec.Amount)
		}
	}
	return available, locked
}

// Random operations never drive a pocket negative, the balance always equals
// deposits plus profit minus withdrawals, and the transaction log replays to
// the same pockets.
func TestScenario_RandomOperationsConserveFunds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	s := newStack(acceptAll)
	ctx := context.Background()

	var (
		in, out  = decimal.Zero, decimal.Zero
		open     []string
		pending  []*domain.Transaction
		clock    = time.Now()
		sigCount int
	)
	amount := func() decimal.Decimal { return decimal.New(int64(rng.IntN(500)+1), -2) }

	for range 300 {
		switch rng.IntN(6) {
		case 0:
			sigCount++
			a := amount()
			_, err := s.deposits.Verify(ctx, domain.DepositClaim{
				Signature: testSignature(sigCount), WalletAddress: wallet,
				Amount: a, Currency: domain.SOL,
			})
			require.NoError(t, err)
			in = in.Add(a)
		case 1:
			a := amount()
			w, err := s.balances.Withdraw(ctx, wallet, a, domain.SOL, "")
			if err == nil {
				out = out.Add(a)
				pending = append(pending, w)
			} else {
				require.ErrorIs(t, err, domain.ErrInsufficientBalance)
			}
		case 2:
			inv, err := s.investments.Create(ctx, wallet, nil, domain.Plans[rng.IntN(len(domain.Plans))].Name, amount(), domain.SOL)
			if err == nil {
				open = append(open, inv.ID)
			} else {
				require.ErrorIs(t, err, domain.ErrInsufficientBalance)
			}
		case 3:
			clock = clock.Add(24 * time.Hour)
			for _, id := range open {
				_, err := s.investments.Accrue(ctx, id, clock)
				require.NoError(t, err)
				_, err = s.investments.Settle(ctx, id, clock)
				require.NoError(t, err)
			}
		case 4:
			if len(open) > 0 {
				id := open[rng.IntN(len(open))]
				_, err := s.investments.Cancel(ctx, wallet, id)
				if err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
					require.NoError(t, err)
				}
			}
		case 5:
			if len(pending) > 0 {
				k := rng.IntN(len(pending))
				w := pending[k]
				pending = append(pending[:k], pending[k+1:]...)
				if rng.IntN(2) == 0 {
					_, err := s.balances.FailWithdrawal(ctx, w.ID, "payout rejected")
					require.NoError(t, err)
					out = out.Sub(w.Amount)
				} else {
					_, err := s.balances.CompleteWithdrawal(ctx, w.ID, testSignature(100000+k))
					require.NoError(t, err)
				}
			}
		}

		b, err := s.balances.GetBalance(ctx, wallet)
		require.NoError(t, err)
		require.False(t, b.SOL.Available.IsNegative())
		require.False(t, b.SOL.Locked.IsNegative())
		want := in.Add(b.TotalProfitEarned).Sub(out)
		require.True(t, b.SOL.Total().Equal(want), "total %s, want %s", b.SOL.Total(), want)

		list, err := s.balances.GetTransactions(ctx, wallet, 0)
		require.NoError(t, err)
		available, locked := foldLog(list)
		require.True(t, b.SOL.Available.Equal(available), "available %s, log %s", b.SOL.Available, available)
		require.True(t, b.SOL.Locked.Equal(locked), "locked %s, log %s", b.SOL.Locked, locked)
	}
}
