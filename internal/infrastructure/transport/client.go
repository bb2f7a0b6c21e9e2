// Package transport implements the outbound "POST data, get status + body"
// capability consumed by gateway adapters.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cassiomorais/paygate/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Response is the raw transport-level reply from a gateway endpoint, kept on
// results for diagnostics.
type Response struct {
	StatusCode int
	Body       []byte
}

// IsServerError reports whether the gateway answered with a 5xx status.
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

// Values parses the body as a URL-encoded parameter set, the wire format
// used by NVP-style gateways.
func (r *Response) Values() (url.Values, error) {
	return url.ParseQuery(string(r.Body))
}

// Client posts form payloads to gateway endpoints with a bounded timeout.
// An optional circuit breaker and retry policy guard the call; retries only
// fire on connection-level failures, never on a delivered HTTP response.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*Response]
	retryCfg   *retry.Config
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBreaker wraps outbound calls in a circuit breaker.
func WithBreaker(settings gobreaker.Settings) Option {
	return func(c *Client) {
		c.breaker = gobreaker.NewCircuitBreaker[*Response](settings)
	}
}

// WithRetry retries connection-level failures with backoff. Only safe for
// requests the gateway treats as idempotent (e.g. checkout initiation).
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryCfg = &cfg
	}
}

// WithLogger attaches a contextual logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a transport client with the given request timeout.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// PostForm posts form data to the endpoint and returns the raw response.
// A non-2xx HTTP status is not an error at this layer; the adapter decides
// what it means. Connection failures and timeouts return an error.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values) (*Response, error) {
	call := func() (*Response, error) {
		return c.post(ctx, endpoint, form)
	}

	if c.breaker != nil {
		inner := call
		call = func() (*Response, error) {
			return c.breaker.Execute(inner)
		}
	}

	if c.retryCfg != nil {
		cfg := *c.retryCfg
		if cfg.OnRetry == nil {
			cfg.OnRetry = func(n uint, err error) {
				c.logger.Warn().Err(err).Uint("attempt", n+1).Str("endpoint", endpoint).Msg("gateway request retry")
			}
		}
		return retry.DoWithResult(ctx, cfg, call)
	}
	return call()
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("gateway request")

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
