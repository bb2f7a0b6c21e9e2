package gateway

import (
	"github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/infrastructure/transport"
)

// Status is the closed set of gateway processing outcomes.
type Status string

const (
	StatusSuccess    Status = "Success"
	StatusFailure    Status = "Failure"
	StatusIncomplete Status = "Incomplete"
)

// ErrorEntry pairs a gateway error code with its message. Codes are unique
// within one result and keep their insertion order.
type ErrorEntry struct {
	Code    string
	Message string
}

// Result is the outcome of one gateway interaction. A Success result never
// carries errors; adding an error forces the status to Failure.
type Result struct {
	status   Status
	messages []string
	errors   []ErrorEntry
	// Raw keeps the transport-level response for diagnostics, when there
	// was one.
	Raw *transport.Response
}

// NewResult constructs a result, rejecting unrecognized status values.
func NewResult(status Status, messages ...string) (*Result, error) {
	switch status {
	case StatusSuccess, StatusFailure, StatusIncomplete:
	default:
		return nil, errors.NewDomainError("invalid_result_status",
			"unrecognized gateway result status "+string(status), errors.ErrInvalidResultStatus)
	}
	return &Result{status: status, messages: messages}, nil
}

// Success builds a successful result.
func Success(messages ...string) *Result {
	return &Result{status: StatusSuccess, messages: messages}
}

// Failure builds a failed result, optionally keeping the raw transport
// response that caused it.
func Failure(raw *transport.Response, messages ...string) *Result {
	return &Result{status: StatusFailure, messages: messages, Raw: raw}
}

// Incomplete builds a result for a transaction that is neither confirmed nor
// rejected. It is also the safe default for unrecognized callback statuses.
func Incomplete(raw *transport.Response, messages ...string) *Result {
	return &Result{status: StatusIncomplete, messages: messages, Raw: raw}
}

// Status returns the result status.
func (r *Result) Status() Status { return r.status }

func (r *Result) IsSuccess() bool    { return r.status == StatusSuccess }
func (r *Result) IsFailure() bool    { return r.status == StatusFailure }
func (r *Result) IsIncomplete() bool { return r.status == StatusIncomplete }

// Messages returns the human-readable messages in insertion order.
func (r *Result) Messages() []string { return r.messages }

// Message returns the first message, or "" when there is none.
func (r *Result) Message() string {
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[0]
}

// AddMessage appends a message.
func (r *Result) AddMessage(message string) {
	r.messages = append(r.messages, message)
}

// AddError records a gateway error and forces the status to Failure. A code
// already present is not re-added.
func (r *Result) AddError(code, message string) {
	for _, e := range r.errors {
		if e.Code == code {
			return
		}
	}
	r.errors = append(r.errors, ErrorEntry{Code: code, Message: message})
	r.status = StatusFailure
}

// Errors returns the recorded gateway errors in insertion order.
func (r *Result) Errors() []ErrorEntry { return r.errors }
