// Package types provides common type aliases and utilities.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Rate is a percentage expressed in points (15 means 15%).
type Rate = decimal.Decimal

// MoneyPlaces is the number of fractional digits kept on invoiced amounts.
const MoneyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds to cents, half away from zero (10961.685 -> 10961.69).
func RoundMoney(m Money) Money {
	return m.Round(MoneyPlaces)
}

// FormatMoney renders an amount with exactly two fractional digits.
func FormatMoney(m Money) string {
	return m.StringFixed(MoneyPlaces)
}

// FormatRate renders a rate without trailing zeros ("15", "12.5").
func FormatRate(r Rate) string {
	return r.String()
}

// FormatOptionalRate renders nil as an empty pointer so JSON emits null.
func FormatOptionalRate(r *Rate) *string {
	if r == nil {
		return nil
	}
	s := FormatRate(*r)
	return &s
}

// Markup returns amount × (1 + rate/100) without rounding.
func Markup(amount Money, rate Rate) Money {
	return amount.Mul(decimal.NewFromInt(1).Add(rate.Div(hundred)))
}

// PercentOf returns amount × rate/100 without rounding.
func PercentOf(amount Money, rate Rate) Money {
	return amount.Mul(rate).Div(hundred)
}

// ParseDecimalLenient parses human-entered numbers: "1 234,50", "1.234,50",
// "1,234.50", "12.5". Spaces (including non-breaking ones) are ignored, and
// when both separators appear the rightmost one is the decimal mark.
// Exponent notation is rejected.
func ParseDecimalLenient(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\t', '\'':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}
	// decimal.NewFromString would read "1e3" as 1000.
	if strings.ContainsAny(cleaned, "eE") {
		return decimal.Zero, fmt.Errorf("parse number %q: exponent notation not accepted", s)
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") > 1 {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse number %q: %w", s, err)
	}
	return d, nil
}
