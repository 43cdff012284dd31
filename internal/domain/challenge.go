package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const challengeTemplate = "Sign this message to authenticate with SolYield.\n\nWallet: %s\nTimestamp: %d\nNonce: %s"

type Challenge struct {
	WalletAddress string    `json:"wallet_address"`
	Message       string    `json:"message"`
	Timestamp     int64     `json:"timestamp"`
	Nonce         string    `json:"nonce"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func NewChallenge(wallet, nonce string, now time.Time, ttl time.Duration) *Challenge {
	ts := now.UnixMilli()
	return &Challenge{
		WalletAddress: wallet,
		Message:       fmt.Sprintf(challengeTemplate, wallet, ts, nonce),
		Timestamp:     ts,
		Nonce:         nonce,
		ExpiresAt:     now.Add(ttl),
	}
}

// ParseChallengeMessage recovers wallet, timestamp and nonce from a signed message.
func ParseChallengeMessage(msg string) (wallet string, ts int64, nonce string, err error) {
	fields := map[string]string{}
	for _, line := range strings.Split(msg, "\n") {
		k, v, ok := strings.Cut(line, ": ")
		if ok {
			fields[k] = v
		}
	}
	wallet, nonce = fields["Wallet"], fields["Nonce"]
	if wallet == "" || nonce == "" || fields["Timestamp"] == "" {
		return "", 0, "", &ValidationError{Field: "message", Message: "malformed challenge message"}
	}
	ts, err = strconv.ParseInt(fields["Timestamp"], 10, 64)
	if err != nil {
		return "", 0, "", &ValidationError{Field: "message", Message: "malformed challenge timestamp"}
	}
	if msg != fmt.Sprintf(challengeTemplate, wallet, ts, nonce) {
		return "", 0, "", &ValidationError{Field: "message", Message: "unexpected challenge message"}
	}
	return wallet, ts, nonce, nil
}
