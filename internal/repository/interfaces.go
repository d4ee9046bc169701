package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/netzah/ledger-engine/internal/domain"
)

// TxManager runs a function inside a single database transaction. The service
// layer uses it to make "create payment" and "update invoice paid_amount" one
// indivisible write.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// InvoiceRepository defines the interface for invoice ledger data operations
type InvoiceRepository interface {
	// Create creates a new invoice
	Create(ctx context.Context, invoice *domain.Invoice) error

	// GetByID retrieves an invoice by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)

	// ListByStudent retrieves all invoices for a student
	ListByStudent(ctx context.Context, studentID string) ([]*domain.Invoice, error)

	// AddPaidAmount adjusts the invoice's running paid total inside tx.
	// Delta is negative when a payment is reversed.
	AddPaidAmount(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta decimal.Decimal) error

	// Totals returns the invoiced sum and the paid sum across all invoices
	Totals(ctx context.Context) (invoiced, paid decimal.Decimal, err error)
}

// PaymentRepository defines the interface for payment ledger data operations
type PaymentRepository interface {
	// Create creates a new payment record inside tx
	Create(ctx context.Context, tx *sqlx.Tx, payment *domain.Payment) error

	// GetByID retrieves a payment by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// ListByInvoice retrieves all payments recorded against an invoice
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*domain.Payment, error)

	// ListByStudent retrieves all payments made for a student
	ListByStudent(ctx context.Context, studentID string) ([]*domain.Payment, error)

	// MarkReversed soft-voids a payment inside tx
	MarkReversed(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error

	// SumActive returns the sum of all non-reversed payment amounts
	SumActive(ctx context.Context) (decimal.Decimal, error)
}

// BorrowingRepository defines the interface for library loan data operations
type BorrowingRepository interface {
	// Create creates a new loan record
	Create(ctx context.Context, borrowing *domain.Borrowing) error

	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Borrowing, error)

	// ListByBorrower retrieves all loans for a borrower
	ListByBorrower(ctx context.Context, borrowerID string) ([]*domain.Borrowing, error)

	// Update persists the return fields and committed fine of a loan
	Update(ctx context.Context, borrowing *domain.Borrowing) error

	// AddFinePaid adjusts the loan's running fine-paid total
	AddFinePaid(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error

	// MarkOverdue flips borrowed loans past their due date to overdue,
	// returning how many rows changed
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)

	// FineTotals returns the assessed and collected fine sums
	FineTotals(ctx context.Context) (assessed, paid decimal.Decimal, err error)

	// CountActiveOverdue counts unreturned loans past their due date
	CountActiveOverdue(ctx context.Context, asOf time.Time) (int, error)
}
