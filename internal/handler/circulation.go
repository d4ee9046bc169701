package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/netzah/ledger-engine/internal/domain"
	"github.com/netzah/ledger-engine/internal/service"
	"github.com/netzah/ledger-engine/pkg/response"
)

type CirculationHandler struct {
	service   *service.LibraryService
	validator *validator.Validate
}

func NewCirculationHandler(service *service.LibraryService) *CirculationHandler {
	return &CirculationHandler{
		service:   service,
		validator: newValidator(),
	}
}

// IssueBook handles POST /api/v1/loans
func (h *CirculationHandler) IssueBook(w http.ResponseWriter, r *http.Request) {
	var request domain.IssueLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	borrowing, err := h.service.IssueBook(r.Context(), &request)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Created(w, borrowing)
}

// AssessFine handles GET /api/v1/loans/{loanId}/assessment?condition=Good
// The returned figure is the suggested default shown to the operator.
func (h *CirculationHandler) AssessFine(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	condition := domain.ReturnCondition(r.URL.Query().Get("condition"))
	switch condition {
	case domain.ConditionGood, domain.ConditionDamaged, domain.ConditionLost:
	case "":
		condition = domain.ConditionGood
	default:
		response.BadRequest(w, "invalid condition", nil)
		return
	}

	assessment, err := h.service.AssessFine(r.Context(), loanID, condition)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Success(w, assessment)
}

// ReturnBook handles POST /api/v1/loans/{loanId}/return
func (h *CirculationHandler) ReturnBook(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	var request domain.ReturnLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	borrowing, err := h.service.ReturnBook(r.Context(), loanID, request.Condition, request.FinalFine)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Success(w, borrowing)
}

// CollectFine handles POST /api/v1/loans/{loanId}/fine-payments
func (h *CirculationHandler) CollectFine(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	var request domain.CollectFineRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	borrowing, err := h.service.CollectFine(r.Context(), loanID, request.Amount, request.Method)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Success(w, borrowing)
}

// Outstanding handles GET /api/v1/loans/{loanId}/outstanding
func (h *CirculationHandler) Outstanding(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	result, err := h.service.Outstanding(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Success(w, result)
}

// BorrowerLoans handles GET /api/v1/borrowers/{borrowerId}/loans
func (h *CirculationHandler) BorrowerLoans(w http.ResponseWriter, r *http.Request) {
	borrowerID := mux.Vars(r)["borrowerId"]

	borrowings, err := h.service.BorrowerLoans(r.Context(), borrowerID)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Success(w, borrowings)
}

// LibrarySummary handles GET /api/v1/library/summary
func (h *CirculationHandler) LibrarySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.LibrarySummary(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	response.Success(w, summary)
}
