package testutil

import (
	"time"

	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/internal/gateway"
	"github.com/cassiomorais/paygate/internal/gateway/card"
	"github.com/cassiomorais/paygate/pkg/money"
	"github.com/google/uuid"
)

// NewTestRecord builds a Pending record for the given method and amount.
func NewTestRecord(method string, amountCents int64, currency string) *payment.Record {
	now := time.Now()
	return &payment.Record{
		ID:        uuid.New(),
		Amount:    money.Amount{ValueCents: amountCents, Currency: currency},
		Status:    payment.StatusPending,
		Method:    method,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestCard builds a card that passes every validation rule.
func NewTestCard() *card.Card {
	return &card.Card{
		FirstName: "Test",
		LastName:  "Testoferson",
		Month:     11,
		Year:      time.Now().Year() + 1,
		Brand:     "visa",
		Number:    "4381258770269608",
		CVV:       "123",
	}
}

// NewTestRequest builds valid merchant payment data.
func NewTestRequest(amount, currency string) gateway.Request {
	return gateway.Request{Amount: amount, Currency: currency}
}
