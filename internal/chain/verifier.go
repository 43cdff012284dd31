package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/config"
	"github.com/GlebRadaev/solyield/internal/domain"
)

const lamportsExp = 9

type Verifier struct {
	rpc             RPCClient
	platform        string
	mints           map[domain.Currency]string
	nativeTolerance decimal.Decimal
	tokenTolerance  decimal.Decimal
	timeout         time.Duration
}

func NewVerifier(cfg *config.Config, rpc RPCClient) *Verifier {
	return &Verifier{
		rpc:      rpc,
		platform: cfg.PlatformWallet,
		mints: map[domain.Currency]string{
			domain.USDC: cfg.USDCMint,
			domain.USDT: cfg.USDTMint,
		},
		nativeTolerance: decimal.NewFromInt(cfg.NativeToleranceLamports),
		tokenTolerance:  cfg.TokenToleranceDecimal(),
		timeout:         cfg.RPCTimeout,
	}
}

// Verify decides whether the referenced transaction moved the claimed amount
// to the platform wallet. Anything short of positive proof is a rejection;
// only an unknown currency is returned as an error.
func (v *Verifier) Verify(ctx context.Context, claim domain.DepositClaim) (*domain.Verification, error) {
	if !claim.Currency.Valid() {
		return nil, domain.ErrInvalidCurrency
	}
	if v.platform == "" {
		return retryLater("platform wallet is not configured"), nil
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	tx, err := v.rpc.GetTransaction(ctx, claim.Signature)
	if err != nil {
		zap.L().Warn("chain lookup failed", zap.String("signature", claim.Signature), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return retryLater("chain lookup timed out"), nil
		}
		return retryLater("chain lookup failed"), nil
	}
	if tx == nil {
		return retryLater("transaction not found"), nil
	}
	if tx.Meta == nil {
		return reject("transaction has no status metadata"), nil
	}
	if tx.Meta.Failed() {
		return reject("transaction failed on chain"), nil
	}
	if !signedBy(tx, claim.WalletAddress) {
		return reject("transaction is not signed by the depositor wallet"), nil
	}

	if claim.Currency.Native() {
		return v.verifyNative(tx, claim.Amount), nil
	}
	return v.verifyToken(tx, claim.Currency, claim.Amount), nil
}

func (v *Verifier) verifyNative(tx *Transaction, claimed decimal.Decimal) *domain.Verification {
	expected := claimed.Shift(lamportsExp)
	transfers := v.nativeTransfers(tx)
	if len(transfers) == 0 {
		return reject("no transfer to the platform wallet")
	}
	for _, lamports := range transfers {
		got := decimal.NewFromUint64(lamports)
		if got.Sub(expected).Abs().LessThanOrEqual(v.nativeTolerance) {
			return &domain.Verification{Verified: true, Received: got.Shift(-lamportsExp)}
		}
	}
	got := decimal.NewFromUint64(transfers[0]).Shift(-lamportsExp)
	return &domain.Verification{
		Reason:   fmt.Sprintf("amount mismatch: claimed %s SOL, received %s SOL", claimed.String(), got.String()),
		Received: got,
	}
}

// nativeTransfers collects system transfers to the platform wallet, top-level
// instructions first, then inner instructions.
func (v *Verifier) nativeTransfers(tx *Transaction) []uint64 {
	var out []uint64
	collect := func(ixs []Instruction) {
		for _, ix := range ixs {
			if lamports, ok := v.systemTransferTo(ix); ok {
				out = append(out, lamports)
			}
		}
	}
	collect(tx.Transaction.Message.Instructions)
	if len(out) > 0 {
		return out
	}
	for _, inner := range tx.Meta.InnerInstructions {
		collect(inner.Instructions)
	}
	return out
}

func (v *Verifier) systemTransferTo(ix Instruction) (uint64, bool) {
	if ix.Program != "system" || len(ix.Parsed) == 0 || ix.Parsed[0] != '{' {
		return 0, false
	}
	var parsed ParsedInstruction
	if err := json.Unmarshal(ix.Parsed, &parsed); err != nil {
		return 0, false
	}
	if parsed.Type != "transfer" && parsed.Type != "transferWithSeed" {
		return 0, false
	}
	if parsed.Info.Destination != v.platform {
		return 0, false
	}
	return parsed.Info.Lamports, true
}

// verifyToken compares owner-indexed balance snapshots; the destination token
// account alone does not prove the platform owns it.
func (v *Verifier) verifyToken(tx *Transaction, c domain.Currency, claimed decimal.Decimal) *domain.Verification {
	mint := v.mints[c]
	if mint == "" {
		return reject("no mint configured for " + c.String())
	}

	pre := map[int]decimal.Decimal{}
	for _, b := range tx.Meta.PreTokenBalances {
		if b.Owner == v.platform && b.Mint == mint {
			amount, err := tokenAmount(b.UITokenAmount)
			if err != nil {
				return reject("malformed token balance")
			}
			pre[b.AccountIndex] = amount
		}
	}

	received := decimal.Zero
	matched := false
	for _, b := range tx.Meta.PostTokenBalances {
		if b.Owner != v.platform || b.Mint != mint {
			continue
		}
		post, err := tokenAmount(b.UITokenAmount)
		if err != nil {
			return reject("malformed token balance")
		}
		matched = true
		received = received.Add(post.Sub(pre[b.AccountIndex]))
	}
	if !matched {
		return reject("no platform token account for " + c.String())
	}

	if received.Sub(claimed).Abs().GreaterThan(v.tokenTolerance) {
		return &domain.Verification{
			Reason:   fmt.Sprintf("amount mismatch: claimed %s %s, received %s %s", claimed.String(), c, received.String(), c),
			Received: received,
		}
	}
	return &domain.Verification{Verified: true, Received: received}
}

func tokenAmount(a TokenAmount) (decimal.Decimal, error) {
	if a.Amount != "" {
		raw, err := decimal.NewFromString(a.Amount)
		if err != nil {
			return decimal.Zero, err
		}
		return raw.Shift(-a.Decimals), nil
	}
	return decimal.NewFromString(a.UIAmountString)
}

func signedBy(tx *Transaction, wallet string) bool {
	for _, k := range tx.Transaction.Message.AccountKeys {
		if k.Pubkey == wallet && k.Signer {
			return true
		}
	}
	return false
}

func reject(reason string) *domain.Verification {
	return &domain.Verification{Reason: reason}
}

func retryLater(reason string) *domain.Verification {
	return &domain.Verification{Reason: reason, Retryable: true}
}
