package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrEmptyLineItems      = errors.New("invoice requires at least one line item")
	ErrNegativeTotal       = errors.New("invoice total cannot be negative")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrNegativeFine        = errors.New("fine cannot be negative")
	ErrLoanAlreadyReturned = errors.New("loan is already returned")
	ErrLoanBlocked         = errors.New("borrower is blocked from new loans")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvoiceNotFound     = "INVOICE_NOT_FOUND"
	ErrCodePaymentNotFound     = "PAYMENT_NOT_FOUND"
	ErrCodeLoanNotFound        = "LOAN_NOT_FOUND"
	ErrCodeEmptyLineItems      = "EMPTY_LINE_ITEMS"
	ErrCodeNegativeTotal       = "NEGATIVE_TOTAL"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeNegativeFine        = "NEGATIVE_FINE"
	ErrCodeLoanAlreadyReturned = "LOAN_ALREADY_RETURNED"
	ErrCodeLoanBlocked         = "LOAN_BLOCKED"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeCacheError          = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapInvoiceNotFound(invoiceID string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvoiceNotFound,
		fmt.Sprintf("Invoice with ID %s not found", invoiceID),
		ErrInvoiceNotFound,
	)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentNotFound,
		fmt.Sprintf("Payment with ID %s not found", paymentID),
		ErrPaymentNotFound,
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapEmptyLineItems() *BusinessError {
	return NewBusinessError(
		ErrCodeEmptyLineItems,
		"An invoice needs at least one line item",
		ErrEmptyLineItems,
	)
}

func WrapNegativeTotal(total string) *BusinessError {
	return NewBusinessError(
		ErrCodeNegativeTotal,
		fmt.Sprintf("Line items minus discount produced a negative total of %s", total),
		ErrNegativeTotal,
	)
}

func WrapInvalidAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Invalid amount: %s", amount),
		ErrInvalidAmount,
	)
}

func WrapNegativeFine(fine string) *BusinessError {
	return NewBusinessError(
		ErrCodeNegativeFine,
		fmt.Sprintf("Committed fine cannot be negative, got %s", fine),
		ErrNegativeFine,
	)
}

func WrapLoanAlreadyReturned(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyReturned,
		fmt.Sprintf("Loan with ID %s is already returned", loanID),
		ErrLoanAlreadyReturned,
	)
}

func WrapLoanBlocked(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanBlocked,
		reason,
		ErrLoanBlocked,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// IsNotFound reports whether err is one of the not-found kinds.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrLoanNotFound)
}

// IsValidation reports whether err is a rejected-input kind. Validation
// failures are local and non-fatal; callers re-prompt.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyLineItems) ||
		errors.Is(err, ErrNegativeTotal) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNegativeFine) ||
		errors.Is(err, ErrLoanAlreadyReturned) ||
		errors.Is(err, ErrLoanBlocked)
}
