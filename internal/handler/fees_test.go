package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/netzah/ledger-engine/internal/config"
	"github.com/netzah/ledger-engine/internal/domain"
	"github.com/netzah/ledger-engine/internal/service"
	"github.com/netzah/ledger-engine/tests/mocks"
)

func handlerTestConfig() *config.Config {
	return &config.Config{
		Library: config.LibraryConfig{
			DailyFineRate:   "500",
			DamagedFlatFee:  "5000",
			LostFlatFee:     "20000",
			DefaultLoanDays: 7,
			StudentLoanCap:  5,
			StaffLoanCap:    30,
		},
		Cache: config.CacheConfig{SummaryTTL: "5m"},
	}
}

type feesFixture struct {
	invoiceRepo *mocks.MockInvoiceRepository
	paymentRepo *mocks.MockPaymentRepository
	tx          *mocks.MockTxManager
	router      *mux.Router
}

func newFeesFixture() *feesFixture {
	f := &feesFixture{
		invoiceRepo: &mocks.MockInvoiceRepository{},
		paymentRepo: &mocks.MockPaymentRepository{},
		tx:          &mocks.MockTxManager{},
	}

	feesService := service.NewFeesService(f.invoiceRepo, f.paymentRepo, f.tx, nil, handlerTestConfig())
	feesHandler := NewFeesHandler(feesService)

	f.router = mux.NewRouter()
	f.router.HandleFunc("/api/v1/invoices", feesHandler.IssueInvoice).Methods("POST")
	f.router.HandleFunc("/api/v1/invoices/{invoiceId}", feesHandler.GetInvoice).Methods("GET")
	f.router.HandleFunc("/api/v1/invoices/{invoiceId}/payments", feesHandler.RecordPayment).Methods("POST")
	f.router.HandleFunc("/api/v1/payments/{paymentId}/reverse", feesHandler.ReversePayment).Methods("POST")
	return f
}

func (f *feesFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestIssueInvoiceEndpoint(t *testing.T) {
	validRequest := domain.IssueInvoiceRequest{
		StudentID:   "NISC/2025/041",
		StudentName: "A. Nakato",
		DueDate:     time.Now().AddDate(0, 1, 0),
		Items: []domain.LineItemRequest{
			{Description: "Term 1 tuition", Amount: decimal.NewFromInt(100000)},
		},
	}

	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*feesFixture)
		expectedStatus int
	}{
		{
			name: "created",
			body: validRequest,
			setupMock: func(f *feesFixture) {
				f.invoiceRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "malformed body",
			body:           `{"student_id": `,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing line items fails validation",
			body: domain.IssueInvoiceRequest{
				StudentID:   "NISC/2025/041",
				StudentName: "A. Nakato",
				DueDate:     time.Now().AddDate(0, 1, 0),
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "zero line item amount fails validation",
			body: domain.IssueInvoiceRequest{
				StudentID:   "NISC/2025/041",
				StudentName: "A. Nakato",
				DueDate:     time.Now().AddDate(0, 1, 0),
				Items: []domain.LineItemRequest{
					{Description: "Term 1 tuition", Amount: decimal.Zero},
				},
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFeesFixture()
			if tt.setupMock != nil {
				tt.setupMock(f)
			}

			w := f.do("POST", "/api/v1/invoices", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusCreated {
				var wrapper struct {
					Success bool                   `json:"success"`
					Data    domain.InvoiceResponse `json:"data"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wrapper))
				assert.True(t, wrapper.Success)
				assert.Equal(t, domain.InvoiceStatusUnpaid, wrapper.Data.Status)
				assert.True(t, wrapper.Data.Balance.Equal(decimal.NewFromInt(100000)))
			}

			f.invoiceRepo.AssertExpectations(t)
		})
	}
}

func TestRecordPaymentEndpoint(t *testing.T) {
	invoiceID := uuid.New()

	t.Run("created", func(t *testing.T) {
		f := newFeesFixture()
		f.invoiceRepo.On("GetByID", mock.Anything, invoiceID).Return(&domain.Invoice{
			ID:         invoiceID,
			StudentID:  "NISC/2025/041",
			Total:      decimal.NewFromInt(100000),
			PaidAmount: decimal.Zero,
			DueDate:    time.Now().AddDate(0, 1, 0),
		}, nil)
		f.tx.On("RunInTx", mock.Anything).Return(nil)
		f.paymentRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.invoiceRepo.On("AddPaidAmount", mock.Anything, mock.Anything, invoiceID, mock.Anything).Return(nil)

		w := f.do("POST", "/api/v1/invoices/"+invoiceID.String()+"/payments", domain.RecordPaymentRequest{
			Amount: decimal.NewFromInt(40000),
			Method: domain.MethodMobileMoney,
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var wrapper struct {
			Data domain.RecordPaymentResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wrapper))
		assert.Equal(t, domain.InvoiceStatusPartial, wrapper.Data.Status)
		assert.True(t, wrapper.Data.Payment.Amount.Equal(decimal.NewFromInt(40000)))
	})

	t.Run("zero amount fails validation", func(t *testing.T) {
		f := newFeesFixture()

		w := f.do("POST", "/api/v1/invoices/"+invoiceID.String()+"/payments", domain.RecordPaymentRequest{
			Amount: decimal.Zero,
			Method: domain.MethodCash,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown method fails validation", func(t *testing.T) {
		f := newFeesFixture()

		w := f.do("POST", "/api/v1/invoices/"+invoiceID.String()+"/payments", domain.RecordPaymentRequest{
			Amount: decimal.NewFromInt(1000),
			Method: "Cowrie Shells",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown invoice maps to 404", func(t *testing.T) {
		f := newFeesFixture()
		f.invoiceRepo.On("GetByID", mock.Anything, invoiceID).Return(nil, sql.ErrNoRows)

		w := f.do("POST", "/api/v1/invoices/"+invoiceID.String()+"/payments", domain.RecordPaymentRequest{
			Amount: decimal.NewFromInt(1000),
			Method: domain.MethodCash,
		})
		require.Equal(t, http.StatusNotFound, w.Code)

		var errResp struct {
			Success bool   `json:"success"`
			Code    string `json:"code"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.False(t, errResp.Success)
		assert.Equal(t, "INVOICE_NOT_FOUND", errResp.Code)
	})

	t.Run("bad invoice id in path", func(t *testing.T) {
		f := newFeesFixture()

		w := f.do("POST", "/api/v1/invoices/not-a-uuid/payments", domain.RecordPaymentRequest{
			Amount: decimal.NewFromInt(1000),
			Method: domain.MethodCash,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReversePaymentEndpoint(t *testing.T) {
	f := newFeesFixture()

	paymentID := uuid.New()
	invoiceID := uuid.New()
	f.paymentRepo.On("GetByID", mock.Anything, paymentID).Return(&domain.Payment{
		ID:        paymentID,
		InvoiceID: invoiceID,
		Amount:    decimal.NewFromInt(50000),
	}, nil)
	f.tx.On("RunInTx", mock.Anything).Return(nil)
	f.paymentRepo.On("MarkReversed", mock.Anything, mock.Anything, paymentID).Return(nil)
	f.invoiceRepo.On("AddPaidAmount", mock.Anything, mock.Anything, invoiceID, mock.Anything).Return(nil)

	w := f.do("POST", "/api/v1/payments/"+paymentID.String()+"/reverse", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var wrapper struct {
		Data domain.Payment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wrapper))
	assert.True(t, wrapper.Data.Reversed)
}
