package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/netzah/ledger-engine/internal/domain"
	"github.com/netzah/ledger-engine/internal/service"
	"github.com/netzah/ledger-engine/pkg/response"
)

type FeesHandler struct {
	service   *service.FeesService
	validator *validator.Validate
}

func NewFeesHandler(service *service.FeesService) *FeesHandler {
	return &FeesHandler{
		service:   service,
		validator: newValidator(),
	}
}

// IssueInvoice handles POST /api/v1/invoices
func (h *FeesHandler) IssueInvoice(w http.ResponseWriter, r *http.Request) {
	var request domain.IssueInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	invoice, err := h.service.IssueInvoice(r.Context(), &request)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Created(w, &domain.InvoiceResponse{
		Invoice: invoice,
		Status:  invoice.Status(),
		Balance: invoice.Balance(),
	})
}

// GetInvoice handles GET /api/v1/invoices/{invoiceId}
func (h *FeesHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := pathID(w, r, "invoiceId")
	if !ok {
		return
	}

	result, err := h.service.GetInvoice(r.Context(), invoiceID)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Success(w, result)
}

// Balance handles GET /api/v1/invoices/{invoiceId}/balance
func (h *FeesHandler) Balance(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := pathID(w, r, "invoiceId")
	if !ok {
		return
	}

	result, err := h.service.Balance(r.Context(), invoiceID)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Success(w, result)
}

// RecordPayment handles POST /api/v1/invoices/{invoiceId}/payments
func (h *FeesHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := pathID(w, r, "invoiceId")
	if !ok {
		return
	}

	var request domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	result, err := h.service.RecordPayment(r.Context(), invoiceID, &request)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Created(w, result)
}

// InvoicePayments handles GET /api/v1/invoices/{invoiceId}/payments
func (h *FeesHandler) InvoicePayments(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := pathID(w, r, "invoiceId")
	if !ok {
		return
	}

	payments, err := h.service.InvoicePayments(r.Context(), invoiceID)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Success(w, payments)
}

// ReversePayment handles POST /api/v1/payments/{paymentId}/reverse
func (h *FeesHandler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(w, r, "paymentId")
	if !ok {
		return
	}

	payment, err := h.service.ReversePayment(r.Context(), paymentID)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Success(w, payment)
}

// StudentPayments handles GET /api/v1/students/{studentId}/payments
func (h *FeesHandler) StudentPayments(w http.ResponseWriter, r *http.Request) {
	studentID := mux.Vars(r)["studentId"]

	payments, err := h.service.ListStudentPayments(r.Context(), studentID)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Success(w, payments)
}

// FinanceSummary handles GET /api/v1/finance/summary
func (h *FeesHandler) FinanceSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.FinanceSummary(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	response.Success(w, summary)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}
