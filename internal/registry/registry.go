// Package registry turns the configured methods table into ready-to-use
// processors. Adapter resolution happens once, at construction: a registry
// that builds successfully can serve every configured method.
package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/internal/gateway"
	"github.com/cassiomorais/paygate/internal/gateway/dummy"
	"github.com/cassiomorais/paygate/internal/gateway/paypal"
	"github.com/cassiomorais/paygate/internal/infrastructure/config"
	"github.com/cassiomorais/paygate/internal/infrastructure/observability"
	"github.com/cassiomorais/paygate/internal/infrastructure/transport"
	"github.com/cassiomorais/paygate/internal/processor"
	"github.com/cassiomorais/paygate/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Registered adapter names, usable in method config.
const (
	AdapterDummyMerchantHosted = "dummy_merchant_hosted"
	AdapterDummyGatewayHosted  = "dummy_gateway_hosted"
	AdapterPayPalDirect        = "paypal_direct"
	AdapterPayPalExpress       = "paypal_express"
)

// Dependencies are the shared collaborators every processor gets.
type Dependencies struct {
	Repo    payment.Repository
	Locker  processor.Locker
	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Registry maps logical method names to their processors.
type Registry struct {
	processors map[string]*processor.Processor
}

// New builds one processor per configured method. Any method whose adapter
// cannot be resolved for the active environment fails construction.
func New(cfg config.GatewayConfig, deps Dependencies) (*Registry, error) {
	r := &Registry{processors: make(map[string]*processor.Processor, len(cfg.Methods))}

	for name, mc := range cfg.Methods {
		gw, err := buildGateway(name, cfg, mc, deps.Logger)
		if err != nil {
			return nil, err
		}

		opts := []processor.Option{processor.WithLogger(deps.Logger)}
		if deps.Metrics != nil {
			opts = append(opts, processor.WithMetrics(deps.Metrics))
		}
		if cfg.PostProcessRedirect != "" {
			opts = append(opts, processor.WithPostProcessRedirect(cfg.PostProcessRedirect))
		}

		r.processors[name] = processor.New(name, gw, deps.Repo, deps.Locker, cfg.BaseCallbackURL, opts...)
	}

	return r, nil
}

// Resolve returns the processor serving the given method name.
func (r *Registry) Resolve(method string) (*processor.Processor, error) {
	p, ok := r.processors[method]
	if !ok {
		return nil, errors.NewConfigurationError(method, "payment method is not configured", errors.ErrMethodNotSupported)
	}
	return p, nil
}

// MethodInfo describes one configured method for discovery endpoints.
type MethodInfo struct {
	Name         string   `json:"name"`
	Flow         string   `json:"flow"`
	Currencies   []string `json:"currencies"`
	CardBrands   []string `json:"card_brands,omitempty"`
	Requirements []string `json:"requirements"`
}

// Methods lists the configured methods sorted by name.
func (r *Registry) Methods() []MethodInfo {
	out := make([]MethodInfo, 0, len(r.processors))
	for name, p := range r.processors {
		gw := p.Gateway()
		out = append(out, MethodInfo{
			Name:         name,
			Flow:         string(gw.Flow()),
			Currencies:   gw.SupportedCurrencies(),
			CardBrands:   gw.SupportedCardBrands(),
			Requirements: gw.PaymentDataRequirements(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// adapterFor resolves the adapter name for the active environment. An
// explicit per-environment override wins; otherwise the mock environment
// swaps the configured adapter for its sandbox equivalent of the same flow.
func adapterFor(env string, mc config.MethodConfig) string {
	if override := mc.AdapterOverrides[env]; override != "" {
		return override
	}
	if env == config.EnvMock {
		return mockEquivalent(mc.Adapter)
	}
	return mc.Adapter
}

func mockEquivalent(adapter string) string {
	switch adapter {
	case AdapterPayPalExpress, AdapterDummyGatewayHosted:
		return AdapterDummyGatewayHosted
	default:
		return AdapterDummyMerchantHosted
	}
}

func buildGateway(name string, cfg config.GatewayConfig, mc config.MethodConfig, logger zerolog.Logger) (gateway.Gateway, error) {
	adapter := adapterFor(cfg.Environment, mc)

	switch adapter {
	case AdapterDummyMerchantHosted:
		return dummy.NewMerchantHosted(dummyConfig(cfg.Environment, mc)), nil

	case AdapterDummyGatewayHosted:
		return dummy.NewGatewayHosted(dummyConfig(cfg.Environment, mc)), nil

	case AdapterPayPalDirect:
		pc, err := paypalConfig(name, cfg.Environment, mc)
		if err != nil {
			return nil, err
		}
		// No retry: a direct charge is not safe to replay.
		return paypal.NewDirect(pc, newTransportClient(name, cfg.RequestTimeout, false, logger)), nil

	case AdapterPayPalExpress:
		pc, err := paypalConfig(name, cfg.Environment, mc)
		if err != nil {
			return nil, err
		}
		if pc.CheckoutURL == "" {
			return nil, errors.NewConfigurationError(name,
				fmt.Sprintf("no %s checkout URL configured", cfg.Environment), nil)
		}
		return paypal.NewExpress(pc, newTransportClient(name, cfg.RequestTimeout, true, logger)), nil

	default:
		return nil, errors.NewConfigurationError(name,
			fmt.Sprintf("unknown adapter %q", adapter), errors.ErrAdapterNotFound)
	}
}

func dummyConfig(env string, mc config.MethodConfig) dummy.Config {
	return dummy.Config{
		Endpoint:   mc.Endpoints[env],
		Currencies: mc.Currencies,
		CardBrands: mc.CardBrands,
	}
}

func paypalConfig(name, env string, mc config.MethodConfig) (paypal.Config, error) {
	endpoint := mc.Endpoints[env]
	if endpoint == "" {
		return paypal.Config{}, errors.NewConfigurationError(name,
			fmt.Sprintf("no %s endpoint configured", env), nil)
	}
	return paypal.Config{
		Endpoint:    endpoint,
		CheckoutURL: mc.CheckoutURLs[env],
		Credentials: paypal.Credentials{
			User:      mc.Credentials.User,
			Password:  mc.Credentials.Password,
			Signature: mc.Credentials.Signature,
		},
		Action:     mc.Action,
		Currencies: mc.Currencies,
		CardBrands: mc.CardBrands,
	}, nil
}

func newTransportClient(method string, timeout time.Duration, withRetry bool, logger zerolog.Logger) *transport.Client {
	opts := []transport.Option{
		transport.WithLogger(logger.With().Str("method", method).Logger()),
		transport.WithBreaker(gobreaker.Settings{
			Name:    "gateway:" + method,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
	if withRetry {
		opts = append(opts, transport.WithRetry(retry.Config{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		}))
	}
	return transport.NewClient(timeout, opts...)
}
