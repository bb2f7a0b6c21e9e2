package processor_test

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/internal/gateway/dummy"
	"github.com/cassiomorais/paygate/internal/processor"
	"github.com/cassiomorais/paygate/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://localhost:8080"

func merchantProcessor(repo *testutil.MockPaymentRepository) *processor.Processor {
	gw := dummy.NewMerchantHosted(dummy.Config{})
	return processor.New("dummy", gw, repo, testutil.NewKeyLocker(), baseURL)
}

func hostedProcessor(repo *testutil.MockPaymentRepository) *processor.Processor {
	gw := dummy.NewGatewayHosted(dummy.Config{Endpoint: "http://localhost:9999/dummy/external/pay"})
	return processor.New("dummy_hosted", gw, repo, testutil.NewKeyLocker(), baseURL)
}

func request(amount, currency string) processor.RequestData {
	return processor.RequestData{Request: testutil.NewTestRequest(amount, currency)}
}

func TestProcessRequest_MerchantHostedSuccess(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := merchantProcessor(repo)

	out, err := p.ProcessRequest(context.Background(), request("10.00", "USD"))
	require.NoError(t, err)
	require.NotNil(t, out.Record)
	require.NotNil(t, out.Result)
	assert.Nil(t, out.Redirect)

	assert.Equal(t, payment.StatusSuccess, out.Record.Status)
	assert.Empty(t, out.Record.ErrorCodes)

	stored, err := repo.GetByID(context.Background(), out.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSuccess, stored.Status)
	assert.Equal(t, int64(1000), stored.Amount.ValueCents)
	assert.Equal(t, "dummy", stored.Method)
}

func TestProcessRequest_MerchantHostedTransportFailure(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := merchantProcessor(repo)

	out, err := p.ProcessRequest(context.Background(), request("10.01", "USD"))
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailure, out.Record.Status)
	assert.Equal(t, "500", out.Record.HTTPStatus)
}

func TestProcessRequest_MerchantHostedDeclined(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := merchantProcessor(repo)

	out, err := p.ProcessRequest(context.Background(), request("10.02", "USD"))
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailure, out.Record.Status)
	assert.Equal(t, "Payment cannot be completed", out.Record.Message)
}

func TestProcessRequest_MerchantHostedIncomplete(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := merchantProcessor(repo)

	out, err := p.ProcessRequest(context.Background(), request("10.03", "USD"))
	require.NoError(t, err)
	assert.Equal(t, payment.StatusIncomplete, out.Record.Status)
	assert.Equal(t, "Awaiting payment confirmation", out.Record.Message)
}

func TestProcessRequest_CardValidatedWhenPresent(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := merchantProcessor(repo)

	data := request("10.00", "USD")
	data.Card = testutil.NewTestCard()
	out, err := p.ProcessRequest(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSuccess, out.Record.Status)

	data = request("10.00", "USD")
	data.Card = testutil.NewTestCard()
	data.Card.Brand = "amex"
	out, err = p.ProcessRequest(context.Background(), data)
	require.NoError(t, err)
	require.NotNil(t, out.Validation)
	assert.Contains(t, out.Validation.Messages(), "Credit card type is invalid")
}

func TestProcessResponse_SeededPendingRecord(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := hostedProcessor(repo)

	rec := testutil.NewTestRecord("dummy_hosted", 1000, "USD")
	require.NoError(t, repo.Create(context.Background(), rec))

	cb, err := p.ProcessResponse(context.Background(), rec.ID, url.Values{"Status": {"Success"}})
	require.NoError(t, err)
	assert.False(t, cb.Duplicate)
	assert.Equal(t, payment.StatusSuccess, cb.Record.Status)
}

func TestProcessRequest_ValidationFailureCreatesNoRecord(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	created := false
	repo.CreateFunc = func(context.Context, *payment.Record) error {
		created = true
		return nil
	}
	p := merchantProcessor(repo)

	out, err := p.ProcessRequest(context.Background(), request("10.00", "AUD"))
	require.NoError(t, err)
	require.NotNil(t, out.Validation)
	assert.False(t, out.Validation.Valid())
	assert.Equal(t, "Currency AUD not supported by this gateway", out.Validation.Message())
	assert.Nil(t, out.Record)
	assert.False(t, created, "no record may be created before validation passes")
}

func TestProcessRequest_MissingRequiredFieldIsPreconditionFailure(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := merchantProcessor(repo)

	_, err := p.ProcessRequest(context.Background(), request("", "USD"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrIncompleteData)
}

func TestProcessRequest_GatewayHostedLeavesRecordPending(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := hostedProcessor(repo)

	out, err := p.ProcessRequest(context.Background(), request("10.00", "USD"))
	require.NoError(t, err)
	require.NotNil(t, out.Redirect)
	require.NotNil(t, out.Record)
	assert.Nil(t, out.Result)

	// The return URL embeds the method name and record ID.
	returnURL := out.Redirect.Query.Get("ReturnURL")
	assert.Contains(t, returnURL, out.Record.ID.String())
	assert.Contains(t, returnURL, "/api/v1/payments/callback/dummy_hosted/")

	stored, err := repo.GetByID(context.Background(), out.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, stored.Status)
}

func TestProcessResponse_IncompleteCallback(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := hostedProcessor(repo)

	out, err := p.ProcessRequest(context.Background(), request("10.00", "USD"))
	require.NoError(t, err)

	cb, err := p.ProcessResponse(context.Background(), out.Record.ID, url.Values{
		"Status":  {"Incomplete"},
		"Message": {"Awaiting payment confirmation"},
	})
	require.NoError(t, err)
	assert.False(t, cb.Duplicate)
	assert.Equal(t, payment.StatusIncomplete, cb.Record.Status)
}

func TestProcessResponse_FailureCallbackCopiesErrorDetail(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := hostedProcessor(repo)

	out, err := p.ProcessRequest(context.Background(), request("10.00", "USD"))
	require.NoError(t, err)

	cb, err := p.ProcessResponse(context.Background(), out.Record.ID, url.Values{
		"Status":       {"Failure"},
		"Message":      {"Payment cannot be completed"},
		"ErrorCode":    {"101"},
		"ErrorMessage": {"Internal Server Error"},
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailure, cb.Record.Status)
	assert.Equal(t, "Payment cannot be completed", cb.Record.Message)
	require.Len(t, cb.Record.ErrorCodes, 1)
	assert.Equal(t, payment.ErrorCode{Code: "101", Message: "Internal Server Error"}, cb.Record.ErrorCodes[0])
}

func TestProcessResponse_DuplicateCallbackIsNoOp(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := hostedProcessor(repo)

	out, err := p.ProcessRequest(context.Background(), request("10.00", "USD"))
	require.NoError(t, err)

	params := url.Values{"Status": {"Success"}}
	first, err := p.ProcessResponse(context.Background(), out.Record.ID, params)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, payment.StatusSuccess, first.Record.Status)

	// Replayed delivery: same terminal status, nothing mutated.
	second, err := p.ProcessResponse(context.Background(), out.Record.ID, params)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, payment.StatusSuccess, second.Record.Status)
	assert.Equal(t, first.Record.Message, second.Record.Message)
	assert.Equal(t, first.Record.ErrorCodes, second.Record.ErrorCodes)
}

func TestProcessResponse_ConflictingReplayCannotFlipTerminalState(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := hostedProcessor(repo)

	out, err := p.ProcessRequest(context.Background(), request("10.00", "USD"))
	require.NoError(t, err)

	_, err = p.ProcessResponse(context.Background(), out.Record.ID, url.Values{"Status": {"Success"}})
	require.NoError(t, err)

	cb, err := p.ProcessResponse(context.Background(), out.Record.ID, url.Values{"Status": {"Failure"}})
	require.NoError(t, err)
	assert.True(t, cb.Duplicate)
	assert.Equal(t, payment.StatusSuccess, cb.Record.Status)
}

func TestProcessResponse_ConcurrentDeliveriesSingleWinner(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := hostedProcessor(repo)

	out, err := p.ProcessRequest(context.Background(), request("10.00", "USD"))
	require.NoError(t, err)

	const deliveries = 8
	var wg sync.WaitGroup
	duplicates := make(chan bool, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb, err := p.ProcessResponse(context.Background(), out.Record.ID, url.Values{"Status": {"Success"}})
			if err == nil {
				duplicates <- cb.Duplicate
			}
		}()
	}
	wg.Wait()
	close(duplicates)

	applied := 0
	for dup := range duplicates {
		if !dup {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "exactly one delivery may apply the terminal transition")
}

func TestProcessResponse_UnknownRecord(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := hostedProcessor(repo)

	_, err := p.ProcessResponse(context.Background(), uuid.New(), url.Values{"Status": {"Success"}})
	assert.ErrorIs(t, err, errors.ErrPaymentNotFound)
}

func TestProcessResponse_MethodMismatch(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	p := hostedProcessor(repo)

	out, err := p.ProcessRequest(context.Background(), request("10.00", "USD"))
	require.NoError(t, err)

	other := processor.New("other_method",
		dummy.NewGatewayHosted(dummy.Config{Endpoint: "http://example.com"}),
		repo, testutil.NewKeyLocker(), baseURL)

	_, err = other.ProcessResponse(context.Background(), out.Record.ID, url.Values{"Status": {"Success"}})
	assert.ErrorIs(t, err, errors.ErrMalformedCallback)
}

func TestCallbackURL(t *testing.T) {
	id := uuid.New()
	u := processor.CallbackURL("http://localhost:8080/", "paypal_express", id)
	assert.Equal(t, "http://localhost:8080/api/v1/payments/callback/paypal_express/"+id.String(), u)
}

func TestProcessRequest_PostProcessRedirectSurfacedOnCallback(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	gw := dummy.NewGatewayHosted(dummy.Config{Endpoint: "http://localhost:9999/pay"})
	p := processor.New("dummy_hosted", gw, repo, testutil.NewKeyLocker(), baseURL,
		processor.WithPostProcessRedirect("http://merchant/thanks"))

	out, err := p.ProcessRequest(context.Background(), request("10.00", "USD"))
	require.NoError(t, err)

	cb, err := p.ProcessResponse(context.Background(), out.Record.ID, url.Values{"Status": {"Success"}})
	require.NoError(t, err)
	assert.Equal(t, "http://merchant/thanks", cb.PostProcessRedirect)
}
