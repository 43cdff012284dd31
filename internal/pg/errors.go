package pg

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// UniqueViolation reports the violated constraint of a 23505 error.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// ParseNumerics parses numeric columns that were selected as ::text.
func ParseNumerics(raw []string, dst ...*decimal.Decimal) error {
	if len(raw) != len(dst) {
		return fmt.Errorf("numeric columns mismatch: %d values for %d targets", len(raw), len(dst))
	}
	for i, s := range raw {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("parse numeric %q: %w", s, err)
		}
		*dst[i] = v
	}
	return nil
}
