package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/netzah/ledger-engine/internal/config"
	"github.com/netzah/ledger-engine/internal/domain"
	"github.com/netzah/ledger-engine/internal/repository"
	customError "github.com/netzah/ledger-engine/pkg/errors"
	"github.com/netzah/ledger-engine/pkg/logger"
)

const financeSummaryKey = "summary:finance"

// FeesService owns the invoice and payment ledgers. Every mutation that
// touches both ledgers runs in one database transaction, so a payment row and
// its invoice's paid_amount can never diverge.
type FeesService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	tx          repository.TxManager
	redis       *redis.Client
	config      *config.Config
	now         func() time.Time
}

func NewFeesService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	tx repository.TxManager,
	redisClient *redis.Client,
	cfg *config.Config,
) *FeesService {
	return &FeesService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		tx:          tx,
		redis:       redisClient,
		config:      cfg,
		now:         time.Now,
	}
}

// IssueInvoice creates a new invoice from line items minus discount.
func (s *FeesService) IssueInvoice(ctx context.Context, request *domain.IssueInvoiceRequest) (*domain.Invoice, error) {
	if len(request.Items) == 0 {
		return nil, customError.WrapEmptyLineItems()
	}

	items := make(domain.LineItems, 0, len(request.Items))
	total := decimal.Zero
	for _, item := range request.Items {
		if item.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, customError.WrapInvalidAmount(item.Amount.String())
		}
		items = append(items, domain.LineItem{Description: item.Description, Amount: item.Amount})
		total = total.Add(item.Amount)
	}

	if request.Discount.IsNegative() {
		return nil, customError.WrapInvalidAmount(request.Discount.String())
	}

	total = total.Sub(request.Discount)
	if total.IsNegative() {
		return nil, customError.WrapNegativeTotal(total.String())
	}

	now := s.now()
	invoice := &domain.Invoice{
		ID:          uuid.New(),
		StudentID:   request.StudentID,
		StudentName: request.StudentName,
		IssueDate:   now,
		DueDate:     request.DueDate,
		Items:       items,
		Discount:    request.Discount,
		Total:       total,
		PaidAmount:  decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.invalidateSummary(ctx)

	logger.Info().
		Str("invoice_id", invoice.ID.String()).
		Str("student_id", invoice.StudentID).
		Str("total", invoice.Total.String()).
		Msg("invoice issued")

	return invoice, nil
}

// GetInvoice returns an invoice with its derived status and balance.
func (s *FeesService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.InvoiceResponse, error) {
	invoice, err := s.getInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	return &domain.InvoiceResponse{
		Invoice: invoice,
		Status:  invoice.StatusAsOf(s.now()),
		Balance: invoice.Balance(),
	}, nil
}

// Balance returns the current balance of an invoice. The status reported here
// includes the overdue classification once past the due date.
func (s *FeesService) Balance(ctx context.Context, invoiceID uuid.UUID) (*domain.BalanceResponse, error) {
	invoice, err := s.getInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	return &domain.BalanceResponse{
		InvoiceID: invoice.ID,
		Status:    invoice.StatusAsOf(s.now()),
		Balance:   invoice.Balance(),
	}, nil
}

// RecordPayment records a receipt against an invoice. The payment insert and
// the invoice paid_amount update commit or roll back together. Overshoot past
// the invoice total is allowed and the balance goes negative.
func (s *FeesService) RecordPayment(ctx context.Context, invoiceID uuid.UUID, request *domain.RecordPaymentRequest) (*domain.RecordPaymentResponse, error) {
	if request.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, customError.WrapInvalidAmount(request.Amount.String())
	}

	invoice, err := s.getInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	payment := &domain.Payment{
		ID:        uuid.New(),
		InvoiceID: invoice.ID,
		StudentID: invoice.StudentID,
		Amount:    request.Amount,
		PaidAt:    now,
		Method:    request.Method,
		Reference: request.Reference,
		Reversed:  false,
		CreatedAt: now,
	}

	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return err
		}
		return s.invoiceRepo.AddPaidAmount(ctx, tx, invoice.ID, request.Amount)
	})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	invoice.PaidAmount = invoice.PaidAmount.Add(request.Amount)
	s.invalidateSummary(ctx)

	logger.Info().
		Str("payment_id", payment.ID.String()).
		Str("invoice_id", invoice.ID.String()).
		Str("amount", payment.Amount.String()).
		Str("method", string(payment.Method)).
		Msg("payment recorded")

	return &domain.RecordPaymentResponse{
		Payment: payment,
		Invoice: invoice,
		Status:  invoice.Status(),
	}, nil
}

// ReversePayment soft-voids a payment and rolls its amount back off the
// invoice in the same transaction. Reversing an already-reversed payment is a
// no-op, not an error.
func (s *FeesService) ReversePayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapPaymentNotFound(paymentID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if payment.Reversed {
		return payment, nil
	}

	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.paymentRepo.MarkReversed(ctx, tx, payment.ID); err != nil {
			return err
		}
		return s.invoiceRepo.AddPaidAmount(ctx, tx, payment.InvoiceID, payment.Amount.Neg())
	})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	payment.Reversed = true
	s.invalidateSummary(ctx)

	logger.Info().
		Str("payment_id", payment.ID.String()).
		Str("invoice_id", payment.InvoiceID.String()).
		Str("amount", payment.Amount.String()).
		Msg("payment reversed")

	return payment, nil
}

// ListStudentPayments returns every payment recorded for a student, reversed
// ones included so the caller can render them struck through.
func (s *FeesService) ListStudentPayments(ctx context.Context, studentID string) ([]*domain.Payment, error) {
	payments, err := s.paymentRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// InvoicePayments returns the payments recorded against one invoice.
func (s *FeesService) InvoicePayments(ctx context.Context, invoiceID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.getInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// FinanceSummary computes the dashboard totals. Collected money is always the
// sum over non-reversed payments, never a stored aggregate.
func (s *FeesService) FinanceSummary(ctx context.Context) (*domain.FinanceSummary, error) {
	if cached, ok := s.cachedSummary(ctx); ok {
		return cached, nil
	}

	invoiced, _, err := s.invoiceRepo.Totals(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	collected, err := s.paymentRepo.SumActive(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summary := &domain.FinanceSummary{
		TotalInvoiced:    invoiced,
		TotalCollected:   collected,
		TotalOutstanding: invoiced.Sub(collected),
		GeneratedAt:      s.now(),
	}

	s.cacheSummary(ctx, summary)

	return summary, nil
}

func (s *FeesService) getInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapInvoiceNotFound(invoiceID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return invoice, nil
}

func (s *FeesService) cachedSummary(ctx context.Context) (*domain.FinanceSummary, bool) {
	if s.redis == nil {
		return nil, false
	}

	raw, err := s.redis.Get(ctx, financeSummaryKey).Result()
	if err != nil {
		return nil, false
	}

	var summary domain.FinanceSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, false
	}
	return &summary, true
}

func (s *FeesService) cacheSummary(ctx context.Context, summary *domain.FinanceSummary) {
	if s.redis == nil {
		return
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, financeSummaryKey, raw, s.config.SummaryCacheTTL()).Err(); err != nil {
		logger.Warn().Err(err).Msg("caching finance summary")
	}
}

func (s *FeesService) invalidateSummary(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, financeSummaryKey).Err(); err != nil {
		logger.Warn().Err(err).Msg("invalidating finance summary cache")
	}
}
