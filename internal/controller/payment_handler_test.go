package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cassiomorais/paygate/internal/controller"
	"github.com/cassiomorais/paygate/internal/infrastructure/config"
	"github.com/cassiomorais/paygate/internal/registry"
	"github.com/cassiomorais/paygate/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *testutil.MockPaymentRepository) {
	t.Helper()

	repo := testutil.NewMockPaymentRepository()
	reg, err := registry.New(config.GatewayConfig{
		Environment:     config.EnvSandbox,
		BaseCallbackURL: "http://localhost:8080",
		RequestTimeout:  5 * time.Second,
		LockTTL:         30 * time.Second,
		Methods: map[string]config.MethodConfig{
			"dummy": {
				Adapter:    registry.AdapterDummyMerchantHosted,
				Currencies: []string{"USD"},
			},
			"dummy_hosted": {
				Adapter:    registry.AdapterDummyGatewayHosted,
				Endpoints:  map[string]string{config.EnvSandbox: "http://localhost:9999/pay"},
				Currencies: []string{"USD"},
			},
		},
	}, registry.Dependencies{Repo: repo, Locker: testutil.NewKeyLocker()})
	require.NoError(t, err)

	router := controller.NewRouter(controller.RouterDeps{
		Registry:    reg,
		PaymentRepo: repo,
	})
	return router, repo
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreatePayment_MerchantHostedSuccess(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/v1/payments/dummy", map[string]any{
		"amount":   "25.00",
		"currency": "USD",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp controller.CreatePaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Payment)
	assert.Equal(t, "Success", resp.Payment.Status)
	assert.Equal(t, "25.00", resp.Payment.Amount)
	assert.Empty(t, resp.RedirectURL)
}

func TestCreatePayment_ValidationFailure(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/v1/payments/dummy", map[string]any{
		"amount":   "25.00",
		"currency": "EUR",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp controller.CreatePaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Payment)
	assert.Contains(t, resp.ValidationErrors, "Currency EUR not supported by this gateway")
}

func TestCreatePayment_MissingAmount(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/v1/payments/dummy", map[string]any{
		"currency": "USD",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp controller.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "incomplete_data", resp.Code)
}

func TestCreatePayment_UnknownMethod(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/v1/payments/bitcoin", map[string]any{
		"amount":   "25.00",
		"currency": "USD",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp controller.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "method_not_supported", resp.Code)
}

func TestCreatePayment_GatewayHostedRedirect(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/v1/payments/dummy_hosted", map[string]any{
		"amount":   "25.00",
		"currency": "USD",
	})

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp controller.CreatePaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Payment)
	assert.Equal(t, "Pending", resp.Payment.Status)
	assert.Contains(t, resp.RedirectURL, "http://localhost:9999/pay")
	assert.Contains(t, resp.RedirectURL, resp.Payment.ID)
}

func TestCallback_CompletesAndAcknowledgesDuplicates(t *testing.T) {
	router, _ := newTestRouter(t)

	created := postJSON(t, router, "/api/v1/payments/dummy_hosted", map[string]any{
		"amount":   "25.00",
		"currency": "USD",
	})
	require.Equal(t, http.StatusAccepted, created.Code)

	var createResp controller.CreatePaymentResponse
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &createResp))
	callbackPath := "/api/v1/payments/callback/dummy_hosted/" + createResp.Payment.ID + "?Status=Success"

	req := httptest.NewRequest(http.MethodGet, callbackPath, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var cb controller.CallbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cb))
	assert.False(t, cb.Duplicate)
	assert.Equal(t, "Success", cb.Payment.Status)

	// Replayed delivery still gets a 200 so the gateway stops retrying.
	req = httptest.NewRequest(http.MethodGet, callbackPath, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cb))
	assert.True(t, cb.Duplicate)
	assert.Equal(t, "Success", cb.Payment.Status)
}

func TestCallback_UnknownRecord(t *testing.T) {
	router, _ := newTestRouter(t)

	path := "/api/v1/payments/callback/dummy_hosted/" + uuid.NewString() + "?Status=Success"
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPayment_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMethods(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/methods", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var methods []registry.MethodInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &methods))
	require.Len(t, methods, 2)
	assert.Equal(t, "dummy", methods[0].Name)
	assert.Equal(t, "dummy_hosted", methods[1].Name)
}
