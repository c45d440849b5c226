// Package core provides money parsing and handling utilities.
//
// Amounts travel as decimal.Decimal so balances mirrored from the ledger are
// never subject to floating point drift. Display goes through go-money.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency used by the ledger.
const Currency = money.INR

// ParseAmount converts user input such as "1,500.50" or "₹ 400" into a
// positive decimal. Zero and negative values are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := CleanNumber(s)
	if clean == "" {
		return decimal.Zero, &InvalidAmountError{Amount: s}
	}
	d, err := decimal.NewFromString(clean)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, &InvalidAmountError{Amount: s}
	}
	return d, nil
}

// currencyMarks are stripped from either end of an amount. "Rs." comes
// before "Rs" so its dot is never read as a decimal point.
var currencyMarks = []string{"₹", "INR", "Rs.", "Rs"}

// CleanNumber strips currency marks, thousand separators and spaces,
// keeping digits, a sign and the decimal point.
func CleanNumber(s string) string {
	var b strings.Builder
	for _, r := range stripCurrency(s) {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripCurrency(s string) string {
	s = strings.TrimSpace(s)
	for {
		trimmed := s
		for _, m := range currencyMarks {
			if n := len(m); len(trimmed) >= n && strings.EqualFold(trimmed[:n], m) {
				trimmed = strings.TrimSpace(trimmed[n:])
				break
			}
			if n := len(m); len(trimmed) >= n && strings.EqualFold(trimmed[len(trimmed)-n:], m) {
				trimmed = strings.TrimSpace(trimmed[:len(trimmed)-n])
				break
			}
		}
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

// FormatINR renders an amount with the rupee symbol and grouping.
func FormatINR(d decimal.Decimal) string {
	cur := money.New(0, Currency).Currency()
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, Currency).Display()
}
