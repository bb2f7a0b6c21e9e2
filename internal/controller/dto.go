package controller

import (
	"time"

	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/internal/gateway/card"
)

// CreatePaymentRequest is the POST /api/v1/payments/{method} body. Card and
// amount contents are deliberately left to the gateway validation pipeline
// so its messages reach the caller verbatim.
type CreatePaymentRequest struct {
	Amount   string              `json:"amount"`
	Currency string              `json:"currency" validate:"omitempty,len=3"`
	Card     *CardRequest        `json:"card,omitempty"`
	PaidBy   *string             `json:"paid_by,omitempty" validate:"omitempty,uuid4"`
	PaidFor  *ResourceRefRequest `json:"paid_for,omitempty"`
	Extra    map[string]string   `json:"extra,omitempty"`
}

// CardRequest carries raw card data for merchant-hosted methods.
type CardRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Number    string `json:"number"`
	Brand     string `json:"brand"`
	Month     int    `json:"expiry_month"`
	Year      int    `json:"expiry_year"`
	CVV       string `json:"cvv"`
}

// ToCard converts the wire representation to the domain card.
func (c *CardRequest) ToCard() *card.Card {
	if c == nil {
		return nil
	}
	return &card.Card{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Number:    c.Number,
		Brand:     c.Brand,
		Month:     c.Month,
		Year:      c.Year,
		CVV:       c.CVV,
	}
}

// ResourceRefRequest names the thing being paid for.
type ResourceRefRequest struct {
	Class string `json:"class" validate:"required"`
	ID    string `json:"id" validate:"required"`
}

// PaymentResponse is the wire representation of a payment record.
type PaymentResponse struct {
	ID          string              `json:"id"`
	Amount      string              `json:"amount"`
	Currency    string              `json:"currency"`
	Status      string              `json:"status"`
	Message     string              `json:"message,omitempty"`
	ErrorCodes  []payment.ErrorCode `json:"error_codes,omitempty"`
	HTTPStatus  string              `json:"http_status,omitempty"`
	Method      string              `json:"method"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// FromRecord maps a payment record to its response.
func FromRecord(rec *payment.Record) *PaymentResponse {
	return &PaymentResponse{
		ID:          rec.ID.String(),
		Amount:      rec.Amount.Decimal(),
		Currency:    rec.Amount.Currency,
		Status:      string(rec.Status),
		Message:     rec.Message,
		ErrorCodes:  rec.ErrorCodes,
		HTTPStatus:  rec.HTTPStatus,
		Method:      rec.Method,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		CompletedAt: rec.CompletedAt,
	}
}

// CreatePaymentResponse is the POST /api/v1/payments/{method} reply. Exactly
// one of Payment+terminal status, RedirectURL (gateway-hosted, payment still
// pending) or ValidationErrors is meaningful.
type CreatePaymentResponse struct {
	Payment          *PaymentResponse `json:"payment,omitempty"`
	RedirectURL      string           `json:"redirect_url,omitempty"`
	ValidationErrors []string         `json:"validation_errors,omitempty"`
}

// CallbackResponse acknowledges a gateway callback.
type CallbackResponse struct {
	Payment   *PaymentResponse `json:"payment"`
	Duplicate bool             `json:"duplicate"`
}

// ErrorResponse is the error envelope for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
