package controller

import (
	"net/http"
	"strconv"

	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/internal/processor"
	"github.com/cassiomorais/paygate/internal/registry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PaymentController handles payment-related HTTP requests.
type PaymentController struct {
	registry    *registry.Registry
	paymentRepo payment.Repository
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(reg *registry.Registry, paymentRepo payment.Repository) *PaymentController {
	return &PaymentController{
		registry:    reg,
		paymentRepo: paymentRepo,
	}
}

// CreatePayment handles POST /api/v1/payments/{method}
func (h *PaymentController) CreatePayment(w http.ResponseWriter, r *http.Request) {
	proc, err := h.registry.Resolve(chi.URLParam(r, "method"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req CreatePaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	data := processor.RequestData{}
	data.Amount = req.Amount
	data.Currency = req.Currency
	data.Card = req.Card.ToCard()
	data.Extra = req.Extra
	if req.PaidBy != nil {
		id, err := uuid.Parse(*req.PaidBy)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid paid_by", Code: "invalid_id"})
			return
		}
		data.PaidBy = &id
	}
	if req.PaidFor != nil {
		data.PaidFor = &payment.ResourceRef{Class: req.PaidFor.Class, ID: req.PaidFor.ID}
	}

	out, err := proc.ProcessRequest(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}

	if out.Validation != nil {
		writeJSON(w, http.StatusUnprocessableEntity, CreatePaymentResponse{
			ValidationErrors: out.Validation.Messages(),
		})
		return
	}

	if out.Redirect != nil {
		// Gateway-hosted: the payment stays pending until the callback.
		writeJSON(w, http.StatusAccepted, CreatePaymentResponse{
			Payment:     FromRecord(out.Record),
			RedirectURL: out.Redirect.Location(),
		})
		return
	}

	writeJSON(w, http.StatusCreated, CreatePaymentResponse{Payment: FromRecord(out.Record)})
}

// Callback handles GET and POST /api/v1/payments/callback/{method}/{id}.
// Duplicate deliveries are acknowledged with 200 so the gateway stops
// retrying.
func (h *PaymentController) Callback(w http.ResponseWriter, r *http.Request) {
	proc, err := h.registry.Resolve(chi.URLParam(r, "method"))
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payment id", Code: "invalid_id"})
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed callback payload", Code: "malformed_callback"})
		return
	}

	out, err := proc.ProcessResponse(r.Context(), id, r.Form)
	if err != nil {
		writeError(w, err)
		return
	}

	// A payer returning through the browser gets sent on to the
	// configured landing page; server-to-server notifications get JSON.
	if out.PostProcessRedirect != "" && r.Method == http.MethodGet {
		http.Redirect(w, r, out.PostProcessRedirect, http.StatusSeeOther)
		return
	}

	writeJSON(w, http.StatusOK, CallbackResponse{
		Payment:   FromRecord(out.Record),
		Duplicate: out.Duplicate,
	})
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *PaymentController) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payment id", Code: "invalid_id"})
		return
	}

	rec, err := h.paymentRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "payment not found", Code: "not_found"})
		return
	}

	writeJSON(w, http.StatusOK, FromRecord(rec))
}

// ListPayments handles GET /api/v1/payments
func (h *PaymentController) ListPayments(w http.ResponseWriter, r *http.Request) {
	filter := payment.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := payment.Status(s)
		filter.Status = &status
	}
	if s := r.URL.Query().Get("method"); s != "" {
		filter.Method = &s
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := h.paymentRepo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*PaymentResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, FromRecord(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListMethods handles GET /api/v1/payments/methods
func (h *PaymentController) ListMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Methods())
}
