package payment_test

import (
	"testing"

	"github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/pkg/money"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(cents int64) money.Amount {
	return money.Amount{ValueCents: cents, Currency: "USD"}
}

func TestNewRecord_StartsPending(t *testing.T) {
	payer := uuid.New()
	rec, err := payment.NewRecord("dummy", usd(1000), &payer, &payment.ResourceRef{Class: "Order", ID: "42"})
	require.NoError(t, err)

	assert.Equal(t, payment.StatusPending, rec.Status)
	assert.Equal(t, "dummy", rec.Method)
	assert.Equal(t, int64(1000), rec.Amount.ValueCents)
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.IsTerminal())
	assert.Nil(t, rec.CompletedAt)
	assert.Equal(t, "Order", rec.PaidFor.Class)
}

func TestNewRecord_RequiresMethodAndCurrency(t *testing.T) {
	_, err := payment.NewRecord("", usd(1000), nil, nil)
	assert.Error(t, err)

	_, err = payment.NewRecord("dummy", money.Amount{ValueCents: 1000}, nil, nil)
	assert.Error(t, err)
}

func TestTransitionTo_PendingToTerminal(t *testing.T) {
	for _, terminal := range []payment.Status{payment.StatusSuccess, payment.StatusFailure, payment.StatusIncomplete} {
		rec, err := payment.NewRecord("dummy", usd(1000), nil, nil)
		require.NoError(t, err)

		require.NoError(t, rec.TransitionTo(terminal))
		assert.Equal(t, terminal, rec.Status)
		assert.True(t, rec.IsTerminal())
		assert.NotNil(t, rec.CompletedAt)
	}
}

func TestTransitionTo_TerminalStatesAreImmutable(t *testing.T) {
	rec, err := payment.NewRecord("dummy", usd(1000), nil, nil)
	require.NoError(t, err)
	require.NoError(t, rec.TransitionTo(payment.StatusSuccess))

	// Repeat callbacks must not flip between terminal states nor regress.
	for _, next := range []payment.Status{payment.StatusFailure, payment.StatusIncomplete, payment.StatusSuccess, payment.StatusPending} {
		err := rec.TransitionTo(next)
		assert.ErrorIs(t, err, errors.ErrAlreadyProcessed, "transition to %s", next)
		assert.Equal(t, payment.StatusSuccess, rec.Status)
	}
}

func TestTransitionTo_PendingToPendingRejected(t *testing.T) {
	rec, err := payment.NewRecord("dummy", usd(1000), nil, nil)
	require.NoError(t, err)

	err = rec.TransitionTo(payment.StatusPending)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidStateTransition)
}

func TestTransitionTo_UnknownStatusRejected(t *testing.T) {
	rec, err := payment.NewRecord("dummy", usd(1000), nil, nil)
	require.NoError(t, err)

	err = rec.TransitionTo(payment.Status("Paid"))
	assert.ErrorIs(t, err, errors.ErrInvalidStateTransition)
	assert.Equal(t, payment.StatusPending, rec.Status)
}

func TestAddErrorCode_KeepsOrder(t *testing.T) {
	rec, err := payment.NewRecord("dummy", usd(1000), nil, nil)
	require.NoError(t, err)

	rec.AddErrorCode("101", "Internal Server Error")
	rec.AddErrorCode("102", "Declined")
	require.Len(t, rec.ErrorCodes, 2)
	assert.Equal(t, "101", rec.ErrorCodes[0].Code)
	assert.Equal(t, "102", rec.ErrorCodes[1].Code)
}

func TestValidStatus(t *testing.T) {
	assert.True(t, payment.ValidStatus(payment.StatusPending))
	assert.True(t, payment.ValidStatus(payment.StatusIncomplete))
	assert.False(t, payment.ValidStatus(payment.Status("Cancelled")))
}
