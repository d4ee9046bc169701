package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus tracks a loan through its lifecycle. Unlike invoice status it is
// stored: the overdue transition is applied by the daily sweep, not derived.
type LoanStatus string

const (
	LoanStatusBorrowed LoanStatus = "borrowed"
	LoanStatusReturned LoanStatus = "returned"
	LoanStatusOverdue  LoanStatus = "overdue"
)

// ReturnCondition is the state of a book when it comes back.
type ReturnCondition string

const (
	ConditionGood    ReturnCondition = "Good"
	ConditionDamaged ReturnCondition = "Damaged"
	ConditionLost    ReturnCondition = "Lost"
)

// BorrowerRole decides the active-loan cap that applies to a borrower.
type BorrowerRole string

const (
	RoleStudent BorrowerRole = "student"
	RoleTeacher BorrowerRole = "teacher"
	RoleStaff   BorrowerRole = "staff"
)

// Borrowing is one loan and its penalty state. The fine is assessed exactly
// once, at return time; FinePaid accumulates through later collections. The
// library money trail stays separate from the fee invoice ledger.
type Borrowing struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	BookID          string           `json:"book_id" db:"book_id"`
	BookTitle       string           `json:"book_title" db:"book_title"`
	BorrowerID      string           `json:"borrower_id" db:"borrower_id"`
	BorrowerName    string           `json:"borrower_name" db:"borrower_name"`
	BorrowerRole    BorrowerRole     `json:"borrower_role" db:"borrower_role"`
	BorrowDate      time.Time        `json:"borrow_date" db:"borrow_date"`
	DueDate         time.Time        `json:"due_date" db:"due_date"`
	ReturnDate      *time.Time       `json:"return_date,omitempty" db:"return_date"`
	ReturnCondition *ReturnCondition `json:"return_condition,omitempty" db:"return_condition"`
	Status          LoanStatus       `json:"status" db:"status"`
	Fine            decimal.Decimal  `json:"fine" db:"fine"`
	FinePaid        decimal.Decimal  `json:"fine_paid" db:"fine_paid"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// Active reports whether the book is still out.
func (b *Borrowing) Active() bool {
	return b.Status != LoanStatusReturned
}

// Outstanding returns fine minus fine paid. Collections are not clamped, so
// overshoot drives this negative.
func (b *Borrowing) Outstanding() decimal.Decimal {
	return b.Fine.Sub(b.FinePaid)
}

// DTOs for requests and responses

type IssueLoanRequest struct {
	BookID       string       `json:"book_id" validate:"required"`
	BookTitle    string       `json:"book_title" validate:"required"`
	BorrowerID   string       `json:"borrower_id" validate:"required"`
	BorrowerName string       `json:"borrower_name" validate:"required"`
	BorrowerRole BorrowerRole `json:"borrower_role" validate:"required,oneof=student teacher staff"`
	LoanDays     int          `json:"loan_days" validate:"omitempty,gt=0"`
}

type ReturnLoanRequest struct {
	Condition ReturnCondition `json:"condition" validate:"required,oneof=Good Damaged Lost"`
	FinalFine decimal.Decimal `json:"final_fine" validate:"decimal_gte=0"`
}

type CollectFineRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,decimal_gt=0"`
	Method PaymentMethod   `json:"method" validate:"required,oneof=Cash 'Mobile Money' 'Bank Transfer' Card"`
}

type OutstandingFineResponse struct {
	LoanID      uuid.UUID       `json:"loan_id"`
	Fine        decimal.Decimal `json:"fine"`
	FinePaid    decimal.Decimal `json:"fine_paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type FineAssessmentResponse struct {
	LoanID        uuid.UUID       `json:"loan_id"`
	DaysOverdue   int             `json:"days_overdue"`
	Condition     ReturnCondition `json:"condition"`
	SuggestedFine decimal.Decimal `json:"suggested_fine"`
}

// LibrarySummary carries the dashboard aggregates for the fine ledger.
type LibrarySummary struct {
	FinesRecorded    decimal.Decimal `json:"fines_recorded"`
	FinesCollected   decimal.Decimal `json:"fines_collected"`
	FinesOutstanding decimal.Decimal `json:"fines_outstanding"`
	ActiveOverdue    int             `json:"active_overdue"`
	GeneratedAt      time.Time       `json:"generated_at"`
}
