// Package card holds credit card data and the card-specific validation rules
// shared by merchant-hosted gateways.
package card

import (
	"strings"
	"time"

	"github.com/cassiomorais/paygate/internal/gateway/validation"
)

// Structural bounds for card numbers. Per-brand length tables are gateway
// configuration, these are the outer limits.
const (
	minNumberLength = 12
	maxNumberLength = 19
)

// Card holds the cardholder data collected for a merchant-hosted payment.
type Card struct {
	FirstName string
	LastName  string
	Month     int
	Year      int
	Brand     string
	Number    string
	CVV       string
}

// IsExpired reports whether the card expired strictly before the month of
// now. A card expiring in the current month is still valid.
func (c *Card) IsExpired(now time.Time) bool {
	if c.Year < now.Year() {
		return true
	}
	if c.Year > now.Year() {
		return false
	}
	return c.Month < int(now.Month())
}

// Validate runs all card rules and accumulates every failure: identity
// fields, expiry, brand allow-list and the structural number check.
func (c *Card) Validate(allowedBrands []string, now time.Time) *validation.Outcome {
	outcome := validation.NewOutcome()

	if strings.TrimSpace(c.FirstName) == "" {
		outcome.AddError("First name cannot be empty")
	}
	if strings.TrimSpace(c.LastName) == "" {
		outcome.AddError("Last name cannot be empty")
	}

	if c.Month < 1 || c.Month > 12 {
		outcome.AddError("Expiration date not valid")
	} else if c.IsExpired(now) {
		outcome.AddError("Credit card has expired")
	}

	if !brandAllowed(c.Brand, allowedBrands) {
		outcome.AddError("Credit card type is invalid")
	}

	if !ValidNumber(c.Number) {
		outcome.AddError("Credit card number is invalid")
	}

	return outcome
}

func brandAllowed(brand string, allowed []string) bool {
	for _, b := range allowed {
		if strings.EqualFold(brand, b) {
			return true
		}
	}
	return false
}

// ValidNumber checks the card number structurally: digits only (spaces
// allowed), within length bounds, and passing the Luhn checksum.
func ValidNumber(number string) bool {
	digits := strings.ReplaceAll(number, " ", "")
	if len(digits) < minNumberLength || len(digits) > maxNumberLength {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return luhn(digits)
}

func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
