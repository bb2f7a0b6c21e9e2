// Package paypal implements gateway adapters for PayPal's NVP API:
// DoDirectPayment as the merchant-hosted variant and SetExpressCheckout as
// the gateway-hosted one.
package paypal

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cassiomorais/paygate/internal/gateway"
	"github.com/cassiomorais/paygate/internal/gateway/validation"
	"github.com/cassiomorais/paygate/internal/infrastructure/transport"
)

// ACK values returned by the NVP API.
const (
	ackSuccess        = "Success"
	ackSuccessWarning = "SuccessWithWarning"
	ackFailure        = "Failure"
	ackFailureWarning = "FailureWithWarning"
)

// Credentials holds the API signature credentials for one environment.
type Credentials struct {
	User      string
	Password  string
	Signature string
}

// Config holds the per-environment PayPal settings.
type Config struct {
	// Endpoint is the NVP API endpoint (live or sandbox).
	Endpoint string
	// CheckoutURL is the hosted checkout page express payments redirect to.
	CheckoutURL string
	Credentials Credentials
	// Action is the payment action, e.g. "Sale" or "Authorization".
	Action     string
	Currencies []string
	CardBrands []string
}

func (c Config) action() string {
	if c.Action == "" {
		return "Sale"
	}
	return c.Action
}

// baseForm builds the NVP fields common to every PayPal call.
func (c Config) baseForm(method string, req gateway.Request) url.Values {
	form := url.Values{}
	form.Set("METHOD", method)
	form.Set("PAYMENTACTION", c.action())
	form.Set("AMT", req.Amount)
	form.Set("CURRENCYCODE", req.Currency)
	form.Set("USER", c.Credentials.User)
	form.Set("PWD", c.Credentials.Password)
	form.Set("SIGNATURE", c.Credentials.Signature)
	for k, v := range req.Extra {
		form.Set(k, v)
	}
	return form
}

// resultFromNVP maps a delivered NVP response onto a result. An ACK outside
// the documented set maps to Incomplete so an unverified payment is never
// treated as paid.
func resultFromNVP(raw *transport.Response) *gateway.Result {
	if raw.IsServerError() {
		return gateway.Failure(raw, "Payment cannot be completed")
	}

	values, err := raw.Values()
	if err != nil {
		return gateway.Incomplete(raw, "Unparseable gateway response")
	}

	switch values.Get("ACK") {
	case ackSuccess, ackSuccessWarning:
		return gateway.Success()
	case ackFailure, ackFailureWarning:
		result := gateway.Failure(raw, values.Get("L_SHORTMESSAGE0"))
		if code := values.Get("L_ERRORCODE0"); code != "" {
			result.AddError(code, values.Get("L_LONGMESSAGE0"))
		}
		return result
	default:
		return gateway.Incomplete(raw, "Unrecognized gateway status")
	}
}

// Direct is the merchant-hosted DoDirectPayment adapter.
type Direct struct {
	cfg    Config
	client *transport.Client
}

// NewDirect creates the DoDirectPayment adapter.
func NewDirect(cfg Config, client *transport.Client) *Direct {
	return &Direct{cfg: cfg, client: client}
}

func (g *Direct) Flow() gateway.Flow { return gateway.FlowMerchantHosted }

func (g *Direct) Validate(req gateway.Request) *validation.Outcome {
	return gateway.ValidateRequest(req, g.cfg.Currencies, g.cfg.CardBrands, time.Now())
}

func (g *Direct) Process(ctx context.Context, req gateway.Request) (*gateway.Outcome, error) {
	form := g.cfg.baseForm("DoDirectPayment", req)
	if req.Card != nil {
		form.Set("ACCT", req.Card.Number)
		form.Set("EXPDATE", fmt.Sprintf("%02d%04d", req.Card.Month, req.Card.Year))
		form.Set("CVV2", req.Card.CVV)
		form.Set("FIRSTNAME", req.Card.FirstName)
		form.Set("LASTNAME", req.Card.LastName)
	}

	raw, err := g.client.PostForm(ctx, g.cfg.Endpoint, form)
	if err != nil {
		return &gateway.Outcome{Result: gateway.Failure(nil, "Payment gateway is not responding")}, nil
	}
	return &gateway.Outcome{Result: resultFromNVP(raw)}, nil
}

func (g *Direct) ParseResponse(url.Values) (*gateway.Result, error) {
	return nil, fmt.Errorf("paypal direct: merchant-hosted gateway does not accept callbacks")
}

func (g *Direct) PaymentDataRequirements() []string {
	return []string{gateway.FieldAmount, gateway.FieldCurrency, gateway.FieldCardNumber}
}

func (g *Direct) SupportedCurrencies() []string { return g.cfg.Currencies }
func (g *Direct) SupportedCardBrands() []string { return g.cfg.CardBrands }

// Express is the gateway-hosted SetExpressCheckout adapter. Process only
// initiates the checkout; the terminal result arrives via callback.
type Express struct {
	cfg    Config
	client *transport.Client
}

// NewExpress creates the SetExpressCheckout adapter.
func NewExpress(cfg Config, client *transport.Client) *Express {
	return &Express{cfg: cfg, client: client}
}

func (g *Express) Flow() gateway.Flow { return gateway.FlowGatewayHosted }

func (g *Express) Validate(req gateway.Request) *validation.Outcome {
	return gateway.ValidateRequest(req, g.cfg.Currencies, nil, time.Now())
}

func (g *Express) Process(ctx context.Context, req gateway.Request) (*gateway.Outcome, error) {
	form := g.cfg.baseForm("SetExpressCheckout", req)
	form.Set("RETURNURL", req.ReturnURL)
	form.Set("CANCELURL", req.ReturnURL)

	raw, err := g.client.PostForm(ctx, g.cfg.Endpoint, form)
	if err != nil {
		return &gateway.Outcome{Result: gateway.Failure(nil, "Payment gateway is not responding")}, nil
	}
	if raw.IsServerError() {
		return &gateway.Outcome{Result: gateway.Failure(raw, "Payment cannot be completed")}, nil
	}

	values, err := raw.Values()
	if err != nil {
		return &gateway.Outcome{Result: gateway.Failure(raw, "Unparseable gateway response")}, nil
	}

	ack := values.Get("ACK")
	if ack != ackSuccess && ack != ackSuccessWarning {
		result := gateway.Failure(raw, values.Get("L_SHORTMESSAGE0"))
		if code := values.Get("L_ERRORCODE0"); code != "" {
			result.AddError(code, values.Get("L_LONGMESSAGE0"))
		}
		return &gateway.Outcome{Result: result}, nil
	}

	token := values.Get("TOKEN")
	if token == "" {
		return &gateway.Outcome{Result: gateway.Failure(raw, "Checkout token missing from gateway response")}, nil
	}

	query := url.Values{}
	query.Set("cmd", "_express-checkout")
	query.Set("token", token)
	return &gateway.Outcome{Redirect: &gateway.Redirect{URL: g.cfg.CheckoutURL, Query: query}}, nil
}

// ParseResponse maps the return callback. PayPal sends the payer back with
// the checkout token and PayerID; the ACK field appears once the sale is
// finalized. Without a definite ACK the payment stays Incomplete.
func (g *Express) ParseResponse(params url.Values) (*gateway.Result, error) {
	switch params.Get("ACK") {
	case ackSuccess, ackSuccessWarning:
		return gateway.Success(), nil
	case ackFailure, ackFailureWarning:
		result := gateway.Failure(nil, params.Get("L_SHORTMESSAGE0"))
		if code := params.Get("L_ERRORCODE0"); code != "" {
			result.AddError(code, params.Get("L_LONGMESSAGE0"))
		}
		return result, nil
	default:
		return gateway.Incomplete(nil, "Awaiting payment confirmation"), nil
	}
}

func (g *Express) PaymentDataRequirements() []string {
	return []string{gateway.FieldAmount, gateway.FieldCurrency}
}

func (g *Express) SupportedCurrencies() []string { return g.cfg.Currencies }
func (g *Express) SupportedCardBrands() []string { return nil }
