package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/netzah/ledger-engine/internal/domain"
)

type borrowingRepository struct {
	db *sqlx.DB
}

func NewBorrowingRepository(db *sqlx.DB) BorrowingRepository {
	return &borrowingRepository{db: db}
}

func (r *borrowingRepository) Create(ctx context.Context, b *domain.Borrowing) error {
	query := `
		INSERT INTO borrowings (id, book_id, book_title, borrower_id, borrower_name, borrower_role, borrow_date, due_date, status, fine, fine_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		b.ID,
		b.BookID,
		b.BookTitle,
		b.BorrowerID,
		b.BorrowerName,
		b.BorrowerRole,
		b.BorrowDate,
		b.DueDate,
		b.Status,
		b.Fine,
		b.FinePaid,
		b.CreatedAt,
		b.UpdatedAt,
	)

	return err
}

func (r *borrowingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Borrowing, error) {
	query := `
		SELECT id, book_id, book_title, borrower_id, borrower_name, borrower_role, borrow_date, due_date, return_date, return_condition, status, fine, fine_paid, created_at, updated_at
		FROM borrowings
		WHERE id = $1
	`

	var b domain.Borrowing
	err := r.db.GetContext(ctx, &b, query, id)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *borrowingRepository) ListByBorrower(ctx context.Context, borrowerID string) ([]*domain.Borrowing, error) {
	query := `
		SELECT id, book_id, book_title, borrower_id, borrower_name, borrower_role, borrow_date, due_date, return_date, return_condition, status, fine, fine_paid, created_at, updated_at
		FROM borrowings
		WHERE borrower_id = $1
		ORDER BY borrow_date DESC
	`

	var borrowings []*domain.Borrowing
	err := r.db.SelectContext(ctx, &borrowings, query, borrowerID)
	if err != nil {
		return nil, err
	}

	return borrowings, nil
}

func (r *borrowingRepository) Update(ctx context.Context, b *domain.Borrowing) error {
	query := `
		UPDATE borrowings
		SET return_date = $2, return_condition = $3, status = $4, fine = $5, updated_at = $6
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		b.ID,
		b.ReturnDate,
		b.ReturnCondition,
		b.Status,
		b.Fine,
		time.Now(),
	)

	return err
}

func (r *borrowingRepository) AddFinePaid(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	query := `
		UPDATE borrowings
		SET fine_paid = fine_paid + $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, delta, time.Now())
	return err
}

func (r *borrowingRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE borrowings
		SET status = $1, updated_at = $2
		WHERE status = $3 AND due_date < $4
	`

	result, err := r.db.ExecContext(ctx, query, domain.LoanStatusOverdue, time.Now(), domain.LoanStatusBorrowed, asOf)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *borrowingRepository) FineTotals(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(fine), 0) AS assessed, COALESCE(SUM(fine_paid), 0) AS paid
		FROM borrowings
	`

	var row struct {
		Assessed decimal.Decimal `db:"assessed"`
		Paid     decimal.Decimal `db:"paid"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return row.Assessed, row.Paid, nil
}

func (r *borrowingRepository) CountActiveOverdue(ctx context.Context, asOf time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM borrowings
		WHERE status <> $1 AND due_date < $2
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, domain.LoanStatusReturned, asOf); err != nil {
		return 0, err
	}

	return count, nil
}
