// Package money provides a minimal currency-tagged amount stored in the
// smallest currency unit (cents).
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount represents a monetary amount in the smallest currency unit.
type Amount struct {
	ValueCents int64
	Currency   string
}

// Parse converts a decimal string such as "10.01" into an Amount.
func Parse(value, currency string) (Amount, error) {
	cents, err := ToCents(value)
	if err != nil {
		return Amount{}, err
	}
	return Amount{ValueCents: cents, Currency: currency}, nil
}

// String returns the decimal representation, e.g. "10.01 USD".
func (a Amount) String() string {
	return fmt.Sprintf("%s %s", FromCents(a.ValueCents), a.Currency)
}

// Decimal returns the decimal value without the currency code.
func (a Amount) Decimal() string {
	return FromCents(a.ValueCents)
}

// CentsFraction returns the fractional cents part of the amount, e.g. 1 for
// "10.01". Sandbox gateways use it to trigger simulated outcomes.
func (a Amount) CentsFraction() int64 {
	frac := a.ValueCents % 100
	if frac < 0 {
		frac = -frac
	}
	return frac
}

// ToCents converts a decimal numeric string into cents.
func ToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty numeric string")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse numeric %q: %w", s, err)
	}

	return int64(math.Round(f * 100)), nil
}

// FromCents formats cents as a decimal numeric string.
func FromCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
