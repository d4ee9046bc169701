package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is the closed set of accepted payment channels.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "Cash"
	MethodMobileMoney  PaymentMethod = "Mobile Money"
	MethodBankTransfer PaymentMethod = "Bank Transfer"
	MethodCard         PaymentMethod = "Card"
)

// Payment is one receipt credited against an invoice. A payment is never
// deleted; reversal flags it so aggregates exclude it.
type Payment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	InvoiceID uuid.UUID       `json:"invoice_id" db:"invoice_id"`
	StudentID string          `json:"student_id" db:"student_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	PaidAt    time.Time       `json:"paid_at" db:"paid_at"`
	Method    PaymentMethod   `json:"method" db:"method"`
	Reference string          `json:"reference,omitempty" db:"reference"`
	Reversed  bool            `json:"reversed" db:"reversed"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// TotalCollected sums the non-reversed payments. This is the only sanctioned
// way to report money received.
func TotalCollected(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Reversed {
			continue
		}
		total = total.Add(p.Amount)
	}
	return total
}

type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required,decimal_gt=0"`
	Method    PaymentMethod   `json:"method" validate:"required,oneof=Cash 'Mobile Money' 'Bank Transfer' Card"`
	Reference string          `json:"reference"`
}

type RecordPaymentResponse struct {
	Payment *Payment      `json:"payment"`
	Invoice *Invoice      `json:"invoice"`
	Status  InvoiceStatus `json:"status"`
}
