package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus classifies an invoice by how much of it has been paid.
type InvoiceStatus string

const (
	InvoiceStatusUnpaid  InvoiceStatus = "unpaid"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// LineItem is a single billable entry on an invoice.
type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// LineItems is stored as a JSONB column.
type LineItems []LineItem

func (li LineItems) Value() (driver.Value, error) {
	return json.Marshal(li)
}

func (li *LineItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, li)
	case string:
		return json.Unmarshal([]byte(v), li)
	default:
		return fmt.Errorf("unsupported line items column type %T", src)
	}
}

// Invoice is one billable charge issued to a student. Status is never stored:
// it is always derived from PaidAmount vs Total so the two cannot drift apart.
type Invoice struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	StudentID   string          `json:"student_id" db:"student_id"`
	StudentName string          `json:"student_name" db:"student_name"`
	IssueDate   time.Time       `json:"issue_date" db:"issue_date"`
	DueDate     time.Time       `json:"due_date" db:"due_date"`
	Items       LineItems       `json:"items" db:"items"`
	Discount    decimal.Decimal `json:"discount" db:"discount"`
	Total       decimal.Decimal `json:"total" db:"total"`
	PaidAmount  decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Status classifies the invoice from its paid amount alone.
func (i *Invoice) Status() InvoiceStatus {
	switch {
	case i.PaidAmount.LessThanOrEqual(decimal.Zero):
		if i.Total.LessThanOrEqual(decimal.Zero) {
			return InvoiceStatusPaid
		}
		return InvoiceStatusUnpaid
	case i.PaidAmount.GreaterThanOrEqual(i.Total):
		return InvoiceStatusPaid
	default:
		return InvoiceStatusPartial
	}
}

// StatusAsOf additionally reports overdue once the due date has passed with a
// balance still owing.
func (i *Invoice) StatusAsOf(now time.Time) InvoiceStatus {
	status := i.Status()
	if status != InvoiceStatusPaid && now.After(i.DueDate) {
		return InvoiceStatusOverdue
	}
	return status
}

// Balance returns total minus paid amount. Overpayment is not clamped, so the
// balance of an overshot invoice is negative.
func (i *Invoice) Balance() decimal.Decimal {
	return i.Total.Sub(i.PaidAmount)
}

// DTOs for requests and responses

type IssueInvoiceRequest struct {
	StudentID   string            `json:"student_id" validate:"required"`
	StudentName string            `json:"student_name" validate:"required"`
	DueDate     time.Time         `json:"due_date" validate:"required"`
	Items       []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	Discount    decimal.Decimal   `json:"discount" validate:"decimal_gte=0"`
}

type LineItemRequest struct {
	Description string          `json:"description" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required,decimal_gt=0"`
}

type InvoiceResponse struct {
	Invoice *Invoice        `json:"invoice"`
	Status  InvoiceStatus   `json:"status"`
	Balance decimal.Decimal `json:"balance"`
}

type BalanceResponse struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Status    InvoiceStatus   `json:"status"`
	Balance   decimal.Decimal `json:"balance"`
}

// FinanceSummary carries the dashboard aggregates for the fee ledger. Collected
// figures always come from summing non-reversed payments, never from a cached
// column.
type FinanceSummary struct {
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	GeneratedAt      time.Time       `json:"generated_at"`
}
