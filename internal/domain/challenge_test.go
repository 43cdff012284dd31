package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeRoundTrip(t *testing.T) {
	now := time.UnixMilli(1767225600000)
	c := NewChallenge("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", "nonce-1", now, 5*time.Minute)

	wallet, ts, nonce, err := ParseChallengeMessage(c.Message)
	require.NoError(t, err)
	assert.Equal(t, c.WalletAddress, wallet)
	assert.Equal(t, c.Timestamp, ts)
	assert.Equal(t, "nonce-1", nonce)
	assert.Equal(t, now.Add(5*time.Minute), c.ExpiresAt)
}

func TestParseChallengeMessage_Invalid(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{name: "Empty", msg: ""},
		{name: "Missing nonce", msg: "Wallet: abc\nTimestamp: 1"},
		{name: "Bad timestamp", msg: "Wallet: abc\nTimestamp: x\nNonce: n"},
		{name: "Foreign template", msg: "Login\nWallet: abc\nTimestamp: 1\nNonce: n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := ParseChallengeMessage(tt.msg)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency("usdc")
	require.NoError(t, err)
	assert.Equal(t, USDC, c)

	_, err = ParseCurrency("BTC")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
	assert.ErrorIs(t, err, ErrValidation)
}
