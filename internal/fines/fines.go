package fines

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/netzah/ledger-engine/internal/domain"
)

// Rates holds the configured penalty figures.
type Rates struct {
	DailyRate  decimal.Decimal
	DamagedFee decimal.Decimal
	LostFee    decimal.Decimal
}

// DaysOverdue returns the whole days elapsed past the due date, rounded up
// and floored at zero. Pure function of its two arguments so callers inject
// the clock.
func DaysOverdue(due, asOf time.Time) int {
	if !asOf.After(due) {
		return 0
	}
	diff := asOf.Sub(due)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// Assess computes the suggested fine for a return: overdue days times the
// daily rate, plus the flat condition penalty. The figure is advisory; the
// operator's final fine at return time always wins.
func Assess(daysOverdue int, condition domain.ReturnCondition, rates Rates) decimal.Decimal {
	fine := rates.DailyRate.Mul(decimal.NewFromInt(int64(daysOverdue)))
	switch condition {
	case domain.ConditionDamaged:
		fine = fine.Add(rates.DamagedFee)
	case domain.ConditionLost:
		fine = fine.Add(rates.LostFee)
	}
	return fine
}
