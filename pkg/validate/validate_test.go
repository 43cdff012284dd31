package validate

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type request struct {
	Wallet    string          `json:"walletAddress" validate:"required,solana_address"`
	Signature string          `json:"txSignature"   validate:"required,solana_signature"`
	Amount    decimal.Decimal `json:"amount"        validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	wallet := base58.Encode(pub)
	sig := base58.Encode(ed25519.Sign(priv, []byte("x")))

	tests := []struct {
		name     string
		req      request
		expected string
	}{
		{
			name: "Valid",
			req:  request{Wallet: wallet, Signature: sig, Amount: decimal.NewFromInt(1)},
		},
		{
			name:     "Bad wallet",
			req:      request{Wallet: "not-base58-0OIl", Signature: sig, Amount: decimal.NewFromInt(1)},
			expected: "invalid field walletAddress: failed solana_address",
		},
		{
			name:     "Signature too short",
			req:      request{Wallet: wallet, Signature: wallet, Amount: decimal.NewFromInt(1)},
			expected: "invalid field txSignature: failed solana_signature",
		},
		{
			name:     "Zero amount",
			req:      request{Wallet: wallet, Signature: sig},
			expected: "invalid field amount: failed gt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if tt.expected == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.expected)
			}
		})
	}
}

func TestIsAddress(t *testing.T) {
	assert.True(t, IsAddress("11111111111111111111111111111111"))
	assert.False(t, IsAddress(""))
	assert.False(t, IsAddress("abc"))
}
