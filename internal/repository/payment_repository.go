package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/netzah/ledger-engine/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, tx *sqlx.Tx, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, invoice_id, student_id, amount, paid_at, method, reference, reversed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.ExecContext(ctx, query,
		payment.ID,
		payment.InvoiceID,
		payment.StudentID,
		payment.Amount,
		payment.PaidAt,
		payment.Method,
		payment.Reference,
		payment.Reversed,
		payment.CreatedAt,
	)

	return err
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT id, invoice_id, student_id, amount, paid_at, method, reference, reversed, created_at
		FROM payments
		WHERE id = $1
	`

	var payment domain.Payment
	err := r.db.GetContext(ctx, &payment, query, id)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT id, invoice_id, student_id, amount, paid_at, method, reference, reversed, created_at
		FROM payments
		WHERE invoice_id = $1
		ORDER BY paid_at
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query, invoiceID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) ListByStudent(ctx context.Context, studentID string) ([]*domain.Payment, error) {
	query := `
		SELECT id, invoice_id, student_id, amount, paid_at, method, reference, reversed, created_at
		FROM payments
		WHERE student_id = $1
		ORDER BY paid_at DESC
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query, studentID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) MarkReversed(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	query := `
		UPDATE payments
		SET reversed = TRUE
		WHERE id = $1
	`

	_, err := tx.ExecContext(ctx, query, id)
	return err
}

func (r *paymentRepository) SumActive(ctx context.Context) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE NOT reversed
	`

	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return decimal.Zero, err
	}

	return total, nil
}
