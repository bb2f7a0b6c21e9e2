// Package gateway defines the uniform contract implemented by every payment
// gateway adapter, plus the request and result models shared across flows.
package gateway

import (
	"context"
	"net/url"
	"time"

	"github.com/cassiomorais/paygate/internal/gateway/card"
	"github.com/cassiomorais/paygate/internal/gateway/validation"
)

// Flow distinguishes the two interaction models.
type Flow string

const (
	// FlowMerchantHosted collects card data locally and posts it to the
	// gateway, receiving a synchronous result.
	FlowMerchantHosted Flow = "merchant_hosted"
	// FlowGatewayHosted redirects the payer to an external page; the result
	// arrives later through an asynchronous callback.
	FlowGatewayHosted Flow = "gateway_hosted"
)

// Well-known payment data field names used in requirements lists.
const (
	FieldAmount     = "Amount"
	FieldCurrency   = "Currency"
	FieldCardNumber = "CardNumber"
)

// Request is the typed payment data submitted by the caller. Amount is kept
// as the raw decimal string so the pipeline can distinguish "not set" from
// "not a number". Extra carries gateway-specific extensions.
type Request struct {
	Amount   string
	Currency string
	Card     *card.Card
	// ReturnURL is set by the processor for gateway-hosted flows; it embeds
	// the payment record ID and method name so the callback is self-describing.
	ReturnURL string
	Extra     map[string]string
}

// Has reports whether the named requirement field carries a value.
func (r Request) Has(field string) bool {
	switch field {
	case FieldAmount:
		return r.Amount != ""
	case FieldCurrency:
		return r.Currency != ""
	case FieldCardNumber:
		return r.Card != nil && r.Card.Number != ""
	default:
		_, ok := r.Extra[field]
		return ok
	}
}

// Redirect instructs the calling layer to send the payer to an external
// gateway page. The core never performs the HTTP redirect itself.
type Redirect struct {
	URL   string
	Query url.Values
}

// Location returns the full redirect target including the query string.
func (r *Redirect) Location() string {
	if len(r.Query) == 0 {
		return r.URL
	}
	return r.URL + "?" + r.Query.Encode()
}

// Outcome is what Process returns: exactly one of Result (merchant-hosted,
// terminal) or Redirect (gateway-hosted, transaction still pending).
type Outcome struct {
	Result   *Result
	Redirect *Redirect
}

// Gateway is the capability contract every adapter variant implements.
// Selection between variants happens at registry-resolution time.
type Gateway interface {
	// Flow reports which interaction model this adapter drives.
	Flow() Flow

	// Validate checks payment data against gateway-specific rules,
	// accumulating every violation. Adapters typically call ValidateRequest
	// and append their own rules to the same outcome.
	Validate(req Request) *validation.Outcome

	// Process sends the payment to the gateway. Transport failures are
	// folded into a Failure result, never returned as errors; the error
	// return is reserved for programmer mistakes.
	Process(ctx context.Context, req Request) (*Outcome, error)

	// ParseResponse deserializes an asynchronous callback payload into a
	// Result. Gateway-hosted only; merchant-hosted adapters return an error.
	ParseResponse(params url.Values) (*Result, error)

	// PaymentDataRequirements lists the fields that must be present before
	// a record is created.
	PaymentDataRequirements() []string

	// SupportedCurrencies returns the ISO currency codes this gateway accepts.
	SupportedCurrencies() []string

	// SupportedCardBrands returns the card brand allow-list, empty for
	// gateways that never see card data.
	SupportedCardBrands() []string
}

// ValidateRequest is the base validation pipeline shared by all adapters:
// required amount/currency fields, the currency allow-list (case-sensitive
// exact match), and card rules when card data is present. Errors accumulate;
// nothing short-circuits.
func ValidateRequest(req Request, currencies, brands []string, now time.Time) *validation.Outcome {
	outcome := validation.NewOutcome()

	if req.Amount == "" {
		outcome.AddError("Payment amount not set")
	} else if !numeric(req.Amount) {
		outcome.AddError("Payment amount is not a number")
	}

	if req.Currency == "" {
		outcome.AddError("Payment currency not set")
	} else if !contains(currencies, req.Currency) {
		outcome.AddError("Currency " + req.Currency + " not supported by this gateway")
	}

	if req.Card != nil {
		outcome.Merge(req.Card.Validate(brands, now))
	}

	return outcome
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func numeric(s string) bool {
	dot := false
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '-' {
		start = 1
	}
	if start == len(s) {
		return false
	}
	for i := start; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
		case s[i] == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}
