// Package dummy provides sandbox gateway adapters that simulate gateway
// behavior locally. The cents fraction of the amount selects the outcome,
// so integration flows can exercise every result path without a real
// gateway: .01 simulates a transport failure, .02 a declined payment,
// .03 an incomplete one; anything else succeeds. A .11 fraction trips the
// custom validation rules.
package dummy

import (
	"context"
	"net/url"
	"time"

	"github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/gateway"
	"github.com/cassiomorais/paygate/internal/gateway/validation"
	"github.com/cassiomorais/paygate/internal/infrastructure/transport"
	"github.com/cassiomorais/paygate/pkg/money"
)

const (
	centsTransportFailure = 1
	centsDeclined         = 2
	centsIncomplete       = 3
	centsValidationError  = 11
)

// Config holds the sandbox adapter settings.
type Config struct {
	// Endpoint is the external pay page the gateway-hosted variant
	// redirects to.
	Endpoint   string
	Currencies []string
	CardBrands []string
}

func (c Config) currencies() []string {
	if len(c.Currencies) == 0 {
		return []string{"USD"}
	}
	return c.Currencies
}

func (c Config) cardBrands() []string {
	if len(c.CardBrands) == 0 {
		return []string{"visa", "master"}
	}
	return c.CardBrands
}

// validate runs the shared pipeline plus the sandbox rules, appending to the
// same outcome instance.
func validate(req gateway.Request, cfg Config) *validation.Outcome {
	outcome := gateway.ValidateRequest(req, cfg.currencies(), cfg.cardBrands(), time.Now())

	if amount, err := money.Parse(req.Amount, req.Currency); err == nil {
		if amount.CentsFraction() == centsValidationError {
			outcome.AddError("Cents value is .11")
			outcome.AddError("This is another error message for cents = .11")
		}
	}
	return outcome
}

// MerchantHosted simulates a gateway that accepts card data directly and
// answers synchronously.
type MerchantHosted struct {
	cfg Config
}

// NewMerchantHosted creates the merchant-hosted sandbox adapter.
func NewMerchantHosted(cfg Config) *MerchantHosted {
	return &MerchantHosted{cfg: cfg}
}

func (g *MerchantHosted) Flow() gateway.Flow { return gateway.FlowMerchantHosted }

func (g *MerchantHosted) Validate(req gateway.Request) *validation.Outcome {
	return validate(req, g.cfg)
}

func (g *MerchantHosted) Process(ctx context.Context, req gateway.Request) (*gateway.Outcome, error) {
	amount, err := money.Parse(req.Amount, req.Currency)
	if err != nil {
		return nil, errors.NewDomainError("invalid_amount", "amount is not numeric", errors.ErrInvalidAmount)
	}

	switch amount.CentsFraction() {
	case centsTransportFailure:
		raw := &transport.Response{StatusCode: 500, Body: []byte("Connection Error")}
		return &gateway.Outcome{Result: gateway.Failure(raw, "Connection Error")}, nil
	case centsDeclined:
		return &gateway.Outcome{Result: gateway.Failure(nil, "Payment cannot be completed")}, nil
	case centsIncomplete:
		return &gateway.Outcome{Result: gateway.Incomplete(nil, "Awaiting payment confirmation")}, nil
	default:
		return &gateway.Outcome{Result: gateway.Success()}, nil
	}
}

func (g *MerchantHosted) ParseResponse(url.Values) (*gateway.Result, error) {
	return nil, errors.NewConfigurationError("dummy", "merchant-hosted gateway does not accept callbacks", nil)
}

func (g *MerchantHosted) PaymentDataRequirements() []string {
	return []string{gateway.FieldAmount, gateway.FieldCurrency}
}

func (g *MerchantHosted) SupportedCurrencies() []string { return g.cfg.currencies() }
func (g *MerchantHosted) SupportedCardBrands() []string { return g.cfg.cardBrands() }

// GatewayHosted simulates a gateway that hosts the payment page itself and
// notifies the result through a callback.
type GatewayHosted struct {
	cfg Config
}

// NewGatewayHosted creates the gateway-hosted sandbox adapter.
func NewGatewayHosted(cfg Config) *GatewayHosted {
	return &GatewayHosted{cfg: cfg}
}

func (g *GatewayHosted) Flow() gateway.Flow { return gateway.FlowGatewayHosted }

func (g *GatewayHosted) Validate(req gateway.Request) *validation.Outcome {
	return validate(req, g.cfg)
}

func (g *GatewayHosted) Process(ctx context.Context, req gateway.Request) (*gateway.Outcome, error) {
	amount, err := money.Parse(req.Amount, req.Currency)
	if err != nil {
		return nil, errors.NewDomainError("invalid_amount", "amount is not numeric", errors.ErrInvalidAmount)
	}

	if amount.CentsFraction() == centsTransportFailure {
		raw := &transport.Response{StatusCode: 500, Body: []byte("Connection Error")}
		return &gateway.Outcome{Result: gateway.Failure(raw, "Connection Error")}, nil
	}

	query := url.Values{}
	query.Set("Amount", req.Amount)
	query.Set("Currency", req.Currency)
	query.Set("ReturnURL", req.ReturnURL)

	return &gateway.Outcome{Redirect: &gateway.Redirect{URL: g.cfg.Endpoint, Query: query}}, nil
}

// ParseResponse maps the callback's Status/Message/ErrorCode/ErrorMessage
// parameters onto a result. Anything unrecognized defaults to Incomplete so
// an unverified payment is never credited.
func (g *GatewayHosted) ParseResponse(params url.Values) (*gateway.Result, error) {
	switch params.Get("Status") {
	case string(gateway.StatusSuccess):
		return gateway.Success(), nil
	case string(gateway.StatusFailure):
		result := gateway.Failure(nil, params.Get("Message"))
		if code := params.Get("ErrorCode"); code != "" {
			result.AddError(code, params.Get("ErrorMessage"))
		}
		return result, nil
	case string(gateway.StatusIncomplete):
		return gateway.Incomplete(nil, params.Get("Message")), nil
	default:
		return gateway.Incomplete(nil, "Unrecognized gateway status"), nil
	}
}

func (g *GatewayHosted) PaymentDataRequirements() []string {
	return []string{gateway.FieldAmount, gateway.FieldCurrency}
}

func (g *GatewayHosted) SupportedCurrencies() []string { return g.cfg.currencies() }
func (g *GatewayHosted) SupportedCardBrands() []string { return g.cfg.cardBrands() }
