package payment

import (
	"time"

	"github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/pkg/money"
	"github.com/google/uuid"
)

// Status represents the payment record status in the state machine.
type Status string

const (
	// StatusPending: record created, nothing confirmed yet.
	StatusPending Status = "Pending"
	// StatusSuccess: payment confirmed by the gateway.
	StatusSuccess Status = "Success"
	// StatusFailure: payment failed during processing.
	StatusFailure Status = "Failure"
	// StatusIncomplete: payment neither confirmed nor rejected (awaiting
	// confirmation, cancelled at the gateway, or an unverifiable callback).
	StatusIncomplete Status = "Incomplete"
)

// ValidStatus reports whether s is a member of the closed status set.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailure, StatusIncomplete:
		return true
	}
	return false
}

// ErrorCode is one gateway error attached to a record, in delivery order.
type ErrorCode struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResourceRef is a weak reference to the thing being paid for.
type ResourceRef struct {
	Class string `json:"class"`
	ID    string `json:"id"`
}

// Record is the persisted payment. It is created Pending by the processor
// before any network call and transitions exactly once to a terminal state.
type Record struct {
	ID          uuid.UUID
	Amount      money.Amount
	Status      Status
	Message     string
	ErrorCodes  []ErrorCode
	HTTPStatus  string
	Method      string
	PaidBy      *uuid.UUID
	PaidFor     *ResourceRef
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// NewRecord creates a Pending record for one processing attempt.
func NewRecord(method string, amount money.Amount, paidBy *uuid.UUID, paidFor *ResourceRef) (*Record, error) {
	if method == "" {
		return nil, errors.ErrInvalidInput
	}
	if amount.Currency == "" {
		return nil, errors.NewValidationError("currency", "cannot be empty")
	}

	now := time.Now()
	return &Record{
		ID:        uuid.New(),
		Amount:    amount,
		Status:    StatusPending,
		Method:    method,
		PaidBy:    paidBy,
		PaidFor:   paidFor,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsTerminal reports whether the record reached a terminal state.
func (r *Record) IsTerminal() bool {
	return r.Status == StatusSuccess || r.Status == StatusFailure || r.Status == StatusIncomplete
}

// CanTransitionTo checks the single allowed transition: Pending to any
// terminal state. Terminal states never change again.
func (r *Record) CanTransitionTo(newStatus Status) bool {
	if r.Status != StatusPending {
		return false
	}
	return newStatus == StatusSuccess || newStatus == StatusFailure || newStatus == StatusIncomplete
}

// TransitionTo moves the record to a terminal status. A terminal record
// returns ErrAlreadyProcessed so duplicate callbacks are detectable; any
// other disallowed move is an invalid transition.
func (r *Record) TransitionTo(newStatus Status) error {
	if !ValidStatus(newStatus) {
		return errors.NewDomainError("invalid_status",
			"unknown payment status "+string(newStatus), errors.ErrInvalidStateTransition)
	}
	if !r.CanTransitionTo(newStatus) {
		if r.IsTerminal() {
			return errors.ErrAlreadyProcessed
		}
		return errors.NewDomainError("invalid_transition",
			"cannot transition from "+string(r.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition)
	}

	now := time.Now()
	r.Status = newStatus
	r.UpdatedAt = now
	r.CompletedAt = &now
	return nil
}

// AddErrorCode appends one gateway error, keeping delivery order.
func (r *Record) AddErrorCode(code, message string) {
	r.ErrorCodes = append(r.ErrorCodes, ErrorCode{Code: code, Message: message})
}
