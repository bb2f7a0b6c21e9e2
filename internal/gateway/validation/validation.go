// Package validation accumulates payment-data validation failures without
// short-circuiting, so a caller sees every violated rule for one submission.
package validation

// Error is a single accumulated validation failure. Code is optional and
// gateway-specific.
type Error struct {
	Message string
	Code    string
}

// Outcome collects validation errors. The zero value is valid and ready to use.
// Once an error is added the outcome stays invalid.
type Outcome struct {
	errs []Error
}

// NewOutcome returns an empty, valid outcome.
func NewOutcome() *Outcome {
	return &Outcome{}
}

// Valid reports whether no errors have been accumulated.
func (o *Outcome) Valid() bool {
	return len(o.errs) == 0
}

// AddError appends an error message without a code.
func (o *Outcome) AddError(message string) {
	o.errs = append(o.errs, Error{Message: message})
}

// AddErrorCode appends an error message with a gateway-specific code.
func (o *Outcome) AddErrorCode(message, code string) {
	o.errs = append(o.errs, Error{Message: message, Code: code})
}

// Merge appends all errors from other onto o. The merged outcome is valid
// only if both were valid.
func (o *Outcome) Merge(other *Outcome) {
	if other == nil {
		return
	}
	o.errs = append(o.errs, other.errs...)
}

// Errors returns the accumulated errors in insertion order.
func (o *Outcome) Errors() []Error {
	return o.errs
}

// Messages returns the accumulated error messages in insertion order.
func (o *Outcome) Messages() []string {
	msgs := make([]string, len(o.errs))
	for i, e := range o.errs {
		msgs[i] = e.Message
	}
	return msgs
}

// Message returns the first error message, or "" when valid. Mirrors the
// common case of surfacing a single failure to the payer.
func (o *Outcome) Message() string {
	if len(o.errs) == 0 {
		return ""
	}
	return o.errs[0].Message
}
