// Package processor orchestrates one payment attempt: it binds a payment
// record to a gateway adapter, drives the merchant-hosted and gateway-hosted
// flows and maps gateway results onto record status transitions.
package processor

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/internal/gateway"
	"github.com/cassiomorais/paygate/internal/gateway/validation"
	"github.com/cassiomorais/paygate/internal/infrastructure/observability"
	"github.com/cassiomorais/paygate/pkg/money"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Locker serializes work per key. Acquire blocks until the key lock is held
// and returns the release function.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}

// RequestData is the caller-supplied input for one payment attempt.
type RequestData struct {
	gateway.Request
	PaidBy  *uuid.UUID
	PaidFor *payment.ResourceRef
}

// RequestOutcome is what ProcessRequest hands back. Exactly one of three
// shapes: Validation set (rejected before any record was created), Result
// set (merchant-hosted terminal outcome), or Redirect set (gateway-hosted,
// record left Pending).
type RequestOutcome struct {
	Record     *payment.Record
	Result     *gateway.Result
	Redirect   *gateway.Redirect
	Validation *validation.Outcome
}

// CallbackOutcome is what ProcessResponse hands back. Duplicate marks a
// replayed callback for an already-terminal record; the record is returned
// unchanged and the gateway still gets an acknowledgement.
type CallbackOutcome struct {
	Record              *payment.Record
	Duplicate           bool
	PostProcessRedirect string
}

// Processor drives one payment method's transactions. It is bound to one
// gateway adapter; the record travels through the repository because
// gateway-hosted flows cross a process boundary between request and callback.
type Processor struct {
	method  string
	gw      gateway.Gateway
	repo    payment.Repository
	locker  Locker
	baseURL string
	postProcessRedirect string
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger attaches a contextual logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// WithMetrics attaches application metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithPostProcessRedirect sets the URL surfaced to the caller after a
// terminal transition, replacing the default confirmation view.
func WithPostProcessRedirect(url string) Option {
	return func(p *Processor) { p.postProcessRedirect = url }
}

// New creates a Processor for one method backed by the given adapter.
func New(method string, gw gateway.Gateway, repo payment.Repository, locker Locker, baseURL string, opts ...Option) *Processor {
	p := &Processor{
		method:  method,
		gw:      gw,
		repo:    repo,
		locker:  locker,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	p.logger = p.logger.With().Str("method", method).Logger()
	return p
}

// Method returns the logical method name this processor serves.
func (p *Processor) Method() string { return p.method }

// Gateway returns the bound adapter.
func (p *Processor) Gateway() gateway.Gateway { return p.gw }

// CallbackURL builds the self-describing return URL for a record: it embeds
// the method name and record ID so a later callback can be re-resolved
// without any in-memory state.
func CallbackURL(base, method string, id uuid.UUID) string {
	return fmt.Sprintf("%s/api/v1/payments/callback/%s/%s", strings.TrimRight(base, "/"), method, id)
}

// ProcessRequest runs the request half of the state machine: requirements
// check, validation, record creation, gateway call. For merchant-hosted
// methods the returned record is already terminal; for gateway-hosted ones
// it stays Pending behind the returned redirect.
func (p *Processor) ProcessRequest(ctx context.Context, data RequestData) (*RequestOutcome, error) {
	// Precondition: the adapter's required fields must be present before
	// anything is persisted.
	for _, field := range p.gw.PaymentDataRequirements() {
		if !data.Has(field) {
			return nil, errors.NewDomainError("incomplete_data",
				"payment data is missing required field "+field, errors.ErrIncompleteData)
		}
	}

	if outcome := p.gw.Validate(data.Request); !outcome.Valid() {
		p.logger.Info().Strs("violations", outcome.Messages()).Msg("payment data rejected by validation")
		p.countValidationFailure()
		return &RequestOutcome{Validation: outcome}, nil
	}

	amount, err := money.Parse(data.Amount, data.Currency)
	if err != nil {
		return nil, errors.NewDomainError("invalid_amount", "amount is not numeric", errors.ErrInvalidAmount)
	}

	rec, err := payment.NewRecord(p.method, amount, data.PaidBy, data.PaidFor)
	if err != nil {
		return nil, err
	}
	if err := p.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create payment record: %w", err)
	}
	p.logger.Info().Stringer("payment_id", rec.ID).Str("amount", amount.String()).Msg("payment record created")

	if p.gw.Flow() == gateway.FlowGatewayHosted {
		data.Request.ReturnURL = CallbackURL(p.baseURL, p.method, rec.ID)
	}

	start := time.Now()
	out, err := p.gw.Process(ctx, data.Request)
	p.observeGatewayDuration(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("gateway process: %w", err)
	}

	// Gateway-hosted happy path: surface the redirect, leave the record
	// Pending until the callback arrives.
	if out.Redirect != nil {
		p.countPendingRedirect()
		p.logger.Info().Stringer("payment_id", rec.ID).Str("redirect", out.Redirect.URL).Msg("payer redirected to gateway")
		return &RequestOutcome{Record: rec, Redirect: out.Redirect}, nil
	}

	if out.Result == nil {
		return nil, errors.NewDomainError("empty_outcome", "gateway returned neither result nor redirect", nil)
	}

	if err := p.apply(ctx, rec, out.Result); err != nil {
		return nil, err
	}
	return &RequestOutcome{Record: rec, Result: out.Result}, nil
}

// ProcessResponse runs the response half: it re-loads the record named by
// the callback, parses the payload through the adapter and applies the
// terminal transition exactly once. Concurrent or replayed callbacks for the
// same record are serialized per-record and collapse into duplicates.
func (p *Processor) ProcessResponse(ctx context.Context, recordID uuid.UUID, params url.Values) (*CallbackOutcome, error) {
	release, err := p.locker.Acquire(ctx, "payment:"+recordID.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrLockAcquisitionFailed, err)
	}
	defer func() {
		if err := release(ctx); err != nil {
			p.logger.Warn().Err(err).Stringer("payment_id", recordID).Msg("failed to release record lock")
		}
	}()

	rec, err := p.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("load payment record: %w", err)
	}
	if rec == nil {
		return nil, errors.ErrPaymentNotFound
	}
	if rec.Method != p.method {
		return nil, errors.NewDomainError("method_mismatch",
			fmt.Sprintf("record %s belongs to method %q, callback addressed %q", recordID, rec.Method, p.method),
			errors.ErrMalformedCallback)
	}

	if rec.IsTerminal() {
		p.logger.Warn().Stringer("payment_id", rec.ID).Str("status", string(rec.Status)).Msg("duplicate callback for terminal payment")
		p.countDuplicate()
		return &CallbackOutcome{Record: rec, Duplicate: true, PostProcessRedirect: p.postProcessRedirect}, nil
	}

	result, err := p.gw.ParseResponse(params)
	if err != nil {
		return nil, fmt.Errorf("parse gateway response: %w", err)
	}

	if err := p.apply(ctx, rec, result); err != nil {
		if stderrors.Is(err, errors.ErrAlreadyProcessed) {
			// Lost the compare-and-set race to another delivery.
			current, loadErr := p.repo.GetByID(ctx, recordID)
			if loadErr != nil || current == nil {
				return nil, err
			}
			p.countDuplicate()
			return &CallbackOutcome{Record: current, Duplicate: true, PostProcessRedirect: p.postProcessRedirect}, nil
		}
		return nil, err
	}

	return &CallbackOutcome{Record: rec, Duplicate: false, PostProcessRedirect: p.postProcessRedirect}, nil
}

// apply maps a gateway result onto the record's one allowed terminal
// transition and persists it with a compare-and-set on Pending.
func (p *Processor) apply(ctx context.Context, rec *payment.Record, result *gateway.Result) error {
	rec.Message = strings.Join(result.Messages(), "; ")
	for _, e := range result.Errors() {
		rec.AddErrorCode(e.Code, e.Message)
	}
	if result.Raw != nil {
		rec.HTTPStatus = strconv.Itoa(result.Raw.StatusCode)
	}

	if err := rec.TransitionTo(statusFromResult(result.Status())); err != nil {
		return err
	}
	if err := p.repo.Update(ctx, rec, payment.StatusPending); err != nil {
		return err
	}

	p.countTerminal(rec.Status)
	p.logger.Info().Stringer("payment_id", rec.ID).Str("status", string(rec.Status)).Msg("payment reached terminal status")
	return nil
}

func statusFromResult(s gateway.Status) payment.Status {
	switch s {
	case gateway.StatusSuccess:
		return payment.StatusSuccess
	case gateway.StatusFailure:
		return payment.StatusFailure
	default:
		return payment.StatusIncomplete
	}
}

func (p *Processor) countTerminal(status payment.Status) {
	if p.metrics != nil {
		p.metrics.PaymentsTotal.WithLabelValues(p.method, string(status)).Inc()
	}
}

func (p *Processor) countValidationFailure() {
	if p.metrics != nil {
		p.metrics.ValidationFailures.WithLabelValues(p.method).Inc()
	}
}

func (p *Processor) countDuplicate() {
	if p.metrics != nil {
		p.metrics.DuplicateCallbacks.WithLabelValues(p.method).Inc()
	}
}

func (p *Processor) countPendingRedirect() {
	if p.metrics != nil {
		p.metrics.PendingRedirects.WithLabelValues(p.method).Inc()
	}
}

func (p *Processor) observeGatewayDuration(d time.Duration) {
	if p.metrics != nil {
		p.metrics.GatewayRequestDuration.WithLabelValues(p.method).Observe(d.Seconds())
	}
}
