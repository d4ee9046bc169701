package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceStatus(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		paid     int64
		expected InvoiceStatus
	}{
		{"nothing paid", 100000, 0, InvoiceStatusUnpaid},
		{"partially paid", 100000, 40000, InvoiceStatusPartial},
		{"exactly paid", 100000, 100000, InvoiceStatusPaid},
		{"overpaid still paid", 100000, 120000, InvoiceStatusPaid},
		{"zero total is immediately paid", 0, 0, InvoiceStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoice := &Invoice{
				Total:      decimal.NewFromInt(tt.total),
				PaidAmount: decimal.NewFromInt(tt.paid),
			}
			assert.Equal(t, tt.expected, invoice.Status())
		})
	}
}

func TestInvoiceStatusAsOf(t *testing.T) {
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	invoice := &Invoice{
		DueDate:    due,
		Total:      decimal.NewFromInt(100000),
		PaidAmount: decimal.NewFromInt(40000),
	}

	assert.Equal(t, InvoiceStatusPartial, invoice.StatusAsOf(due))
	assert.Equal(t, InvoiceStatusOverdue, invoice.StatusAsOf(due.AddDate(0, 0, 1)))

	// A settled invoice never reports overdue, however late the clock is.
	invoice.PaidAmount = decimal.NewFromInt(100000)
	assert.Equal(t, InvoiceStatusPaid, invoice.StatusAsOf(due.AddDate(0, 1, 0)))
}

func TestInvoiceBalance(t *testing.T) {
	invoice := &Invoice{
		Total:      decimal.NewFromInt(100000),
		PaidAmount: decimal.NewFromInt(40000),
	}
	assert.True(t, invoice.Balance().Equal(decimal.NewFromInt(60000)))

	// Overpayment is not clamped; balance goes negative.
	invoice.PaidAmount = decimal.NewFromInt(120000)
	assert.True(t, invoice.Balance().Equal(decimal.NewFromInt(-20000)))
}

func TestTotalCollectedExcludesReversed(t *testing.T) {
	a := &Payment{Amount: decimal.NewFromInt(40000)}
	b := &Payment{Amount: decimal.NewFromInt(60000), Reversed: true}
	c := &Payment{Amount: decimal.NewFromInt(25000)}

	expected := decimal.NewFromInt(65000)

	assert.True(t, TotalCollected([]*Payment{a, b, c}).Equal(expected))

	// Order-independent.
	assert.True(t, TotalCollected([]*Payment{c, b, a}).Equal(expected))
	assert.True(t, TotalCollected([]*Payment{b, a, c}).Equal(expected))

	// All reversed collects nothing.
	a.Reversed, c.Reversed = true, true
	assert.True(t, TotalCollected([]*Payment{a, b, c}).Equal(decimal.Zero))

	assert.True(t, TotalCollected(nil).Equal(decimal.Zero))
}

// Serializing each ledger record and reading it back must preserve every
// field of the persisted shape.
func TestRecordRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	returnDate := now.AddDate(0, 0, 12)
	condition := ConditionDamaged

	invoice := &Invoice{
		ID:          uuid.New(),
		StudentID:   "NISC/2025/041",
		StudentName: "A. Nakato",
		IssueDate:   now,
		DueDate:     now.AddDate(0, 1, 0),
		Items: LineItems{
			{Description: "Term 1 tuition", Amount: decimal.NewFromInt(90000)},
			{Description: "Activity fee", Amount: decimal.NewFromInt(10000)},
		},
		Discount:   decimal.NewFromInt(5000),
		Total:      decimal.NewFromInt(95000),
		PaidAmount: decimal.NewFromInt(40000),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	payment := &Payment{
		ID:        uuid.New(),
		InvoiceID: invoice.ID,
		StudentID: invoice.StudentID,
		Amount:    decimal.NewFromInt(40000),
		PaidAt:    now,
		Method:    MethodMobileMoney,
		Reference: "MM-778812",
		Reversed:  true,
		CreatedAt: now,
	}

	borrowing := &Borrowing{
		ID:              uuid.New(),
		BookID:          "BK-031",
		BookTitle:       "A History of East Africa",
		BorrowerID:      "STF-009",
		BorrowerName:    "J. Okello",
		BorrowerRole:    RoleTeacher,
		BorrowDate:      now,
		DueDate:         now.AddDate(0, 0, 7),
		ReturnDate:      &returnDate,
		ReturnCondition: &condition,
		Status:          LoanStatusReturned,
		Fine:            decimal.NewFromInt(7500),
		FinePaid:        decimal.NewFromInt(3000),
		CreatedAt:       now,
		UpdatedAt:       returnDate,
	}

	for name, record := range map[string]interface{}{
		"invoice":   invoice,
		"payment":   payment,
		"borrowing": borrowing,
	} {
		t.Run(name, func(t *testing.T) {
			first, err := json.Marshal(record)
			require.NoError(t, err)

			fresh := map[string]interface{}{
				"invoice":   &Invoice{},
				"payment":   &Payment{},
				"borrowing": &Borrowing{},
			}[name]
			require.NoError(t, json.Unmarshal(first, fresh))

			second, err := json.Marshal(fresh)
			require.NoError(t, err)
			assert.JSONEq(t, string(first), string(second))
		})
	}
}
