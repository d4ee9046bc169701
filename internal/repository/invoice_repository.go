package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/netzah/ledger-engine/internal/domain"
)

type invoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	query := `
		INSERT INTO invoices (id, student_id, student_name, issue_date, due_date, items, discount, total, paid_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		invoice.ID,
		invoice.StudentID,
		invoice.StudentName,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Items,
		invoice.Discount,
		invoice.Total,
		invoice.PaidAmount,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	)

	return err
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	query := `
		SELECT id, student_id, student_name, issue_date, due_date, items, discount, total, paid_amount, created_at, updated_at
		FROM invoices
		WHERE id = $1
	`

	var invoice domain.Invoice
	err := r.db.GetContext(ctx, &invoice, query, id)
	if err != nil {
		return nil, err
	}

	return &invoice, nil
}

func (r *invoiceRepository) ListByStudent(ctx context.Context, studentID string) ([]*domain.Invoice, error) {
	query := `
		SELECT id, student_id, student_name, issue_date, due_date, items, discount, total, paid_amount, created_at, updated_at
		FROM invoices
		WHERE student_id = $1
		ORDER BY issue_date DESC
	`

	var invoices []*domain.Invoice
	err := r.db.SelectContext(ctx, &invoices, query, studentID)
	if err != nil {
		return nil, err
	}

	return invoices, nil
}

func (r *invoiceRepository) AddPaidAmount(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta decimal.Decimal) error {
	query := `
		UPDATE invoices
		SET paid_amount = paid_amount + $2, updated_at = $3
		WHERE id = $1
	`

	_, err := tx.ExecContext(ctx, query, id, delta, time.Now())
	return err
}

func (r *invoiceRepository) Totals(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(total), 0) AS invoiced, COALESCE(SUM(paid_amount), 0) AS paid
		FROM invoices
	`

	var row struct {
		Invoiced decimal.Decimal `db:"invoiced"`
		Paid     decimal.Decimal `db:"paid"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return row.Invoiced, row.Paid, nil
}
