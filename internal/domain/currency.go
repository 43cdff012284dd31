package domain

import (
	"fmt"
	"strings"
)

type Currency string

const (
	SOL  Currency = "SOL"
	USDC Currency = "USDC"
	USDT Currency = "USDT"
)

var Currencies = []Currency{SOL, USDC, USDT}

// ParseCurrency accepts the ticker in any case.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return c, nil
}

func (c Currency) Valid() bool {
	switch c {
	case SOL, USDC, USDT:
		return true
	}
	return false
}

func (c Currency) Native() bool {
	return c == SOL
}

func (c Currency) String() string {
	return string(c)
}
