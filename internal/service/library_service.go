package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/netzah/ledger-engine/internal/config"
	"github.com/netzah/ledger-engine/internal/domain"
	"github.com/netzah/ledger-engine/internal/fines"
	"github.com/netzah/ledger-engine/internal/repository"
	customError "github.com/netzah/ledger-engine/pkg/errors"
	"github.com/netzah/ledger-engine/pkg/logger"
)

const librarySummaryKey = "summary:library"

// LibraryService owns the circulation records and the fine ledger. Fines are
// a money trail of their own, never folded into the fee invoice ledger.
type LibraryService struct {
	borrowingRepo repository.BorrowingRepository
	redis         *redis.Client
	config        *config.Config
	now           func() time.Time
}

func NewLibraryService(
	borrowingRepo repository.BorrowingRepository,
	redisClient *redis.Client,
	cfg *config.Config,
) *LibraryService {
	return &LibraryService{
		borrowingRepo: borrowingRepo,
		redis:         redisClient,
		config:        cfg,
		now:           time.Now,
	}
}

// IssueBook creates a loan after checking the blocking rules: a borrower with
// any active overdue item, or at their role's active-loan cap, is refused with
// the reason.
func (s *LibraryService) IssueBook(ctx context.Context, request *domain.IssueLoanRequest) (*domain.Borrowing, error) {
	history, err := s.borrowingRepo.ListByBorrower(ctx, request.BorrowerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	now := s.now()
	active, overdue := 0, 0
	for _, b := range history {
		if !b.Active() {
			continue
		}
		active++
		if fines.DaysOverdue(b.DueDate, now) > 0 {
			overdue++
		}
	}

	if overdue > 0 {
		return nil, customError.WrapLoanBlocked(
			fmt.Sprintf("Borrower has %d overdue item(s). Return them before borrowing more.", overdue))
	}

	limit := s.config.LoanCap(request.BorrowerRole)
	if active >= limit {
		return nil, customError.WrapLoanBlocked(
			fmt.Sprintf("Borrowing limit reached (%d/%d).", active, limit))
	}

	loanDays := request.LoanDays
	if loanDays <= 0 {
		loanDays = s.config.Library.DefaultLoanDays
	}

	borrowing := &domain.Borrowing{
		ID:           uuid.New(),
		BookID:       request.BookID,
		BookTitle:    request.BookTitle,
		BorrowerID:   request.BorrowerID,
		BorrowerName: request.BorrowerName,
		BorrowerRole: request.BorrowerRole,
		BorrowDate:   now,
		DueDate:      now.AddDate(0, 0, loanDays),
		Status:       domain.LoanStatusBorrowed,
		Fine:         decimal.Zero,
		FinePaid:     decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.borrowingRepo.Create(ctx, borrowing); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.invalidateSummary(ctx)

	logger.Info().
		Str("loan_id", borrowing.ID.String()).
		Str("borrower_id", borrowing.BorrowerID).
		Str("book_id", borrowing.BookID).
		Time("due_date", borrowing.DueDate).
		Msg("book issued")

	return borrowing, nil
}

// AssessFine computes the suggested fine for returning a loan in the given
// condition right now. The figure is advisory; the operator's final fine at
// return time wins.
func (s *LibraryService) AssessFine(ctx context.Context, loanID uuid.UUID, condition domain.ReturnCondition) (*domain.FineAssessmentResponse, error) {
	borrowing, err := s.getBorrowing(ctx, loanID)
	if err != nil {
		return nil, err
	}

	days := fines.DaysOverdue(borrowing.DueDate, s.now())
	suggested := fines.Assess(days, condition, s.config.FineRates())

	return &domain.FineAssessmentResponse{
		LoanID:        borrowing.ID,
		DaysOverdue:   days,
		Condition:     condition,
		SuggestedFine: suggested,
	}, nil
}

// ReturnBook closes a loan and commits its fine. The fine is set exactly once
// here; finalFine is whatever the operator settled on, not the assessed
// default.
func (s *LibraryService) ReturnBook(ctx context.Context, loanID uuid.UUID, condition domain.ReturnCondition, finalFine decimal.Decimal) (*domain.Borrowing, error) {
	if finalFine.IsNegative() {
		return nil, customError.WrapNegativeFine(finalFine.String())
	}

	borrowing, err := s.getBorrowing(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if borrowing.Status == domain.LoanStatusReturned {
		return nil, customError.WrapLoanAlreadyReturned(loanID.String())
	}

	now := s.now()
	borrowing.ReturnDate = &now
	borrowing.ReturnCondition = &condition
	borrowing.Status = domain.LoanStatusReturned
	borrowing.Fine = finalFine
	borrowing.UpdatedAt = now

	if err := s.borrowingRepo.Update(ctx, borrowing); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.invalidateSummary(ctx)

	logger.Info().
		Str("loan_id", borrowing.ID.String()).
		Str("condition", string(condition)).
		Str("fine", finalFine.String()).
		Msg("book returned")

	return borrowing, nil
}

// CollectFine records a payment against a loan's fine. Collections accumulate
// without a clamp, so fine_paid can exceed the fine.
func (s *LibraryService) CollectFine(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, method domain.PaymentMethod) (*domain.Borrowing, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, customError.WrapInvalidAmount(amount.String())
	}

	borrowing, err := s.getBorrowing(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if err := s.borrowingRepo.AddFinePaid(ctx, borrowing.ID, amount); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	borrowing.FinePaid = borrowing.FinePaid.Add(amount)
	s.invalidateSummary(ctx)

	logger.Info().
		Str("loan_id", borrowing.ID.String()).
		Str("amount", amount.String()).
		Str("method", string(method)).
		Str("outstanding", borrowing.Outstanding().String()).
		Msg("fine collected")

	return borrowing, nil
}

// Outstanding returns the unsettled fine on a loan.
func (s *LibraryService) Outstanding(ctx context.Context, loanID uuid.UUID) (*domain.OutstandingFineResponse, error) {
	borrowing, err := s.getBorrowing(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return &domain.OutstandingFineResponse{
		LoanID:      borrowing.ID,
		Fine:        borrowing.Fine,
		FinePaid:    borrowing.FinePaid,
		Outstanding: borrowing.Outstanding(),
	}, nil
}

// BorrowerLoans lists a borrower's full loan history.
func (s *LibraryService) BorrowerLoans(ctx context.Context, borrowerID string) ([]*domain.Borrowing, error) {
	borrowings, err := s.borrowingRepo.ListByBorrower(ctx, borrowerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return borrowings, nil
}

// LibrarySummary computes the fine ledger dashboard aggregates.
func (s *LibraryService) LibrarySummary(ctx context.Context) (*domain.LibrarySummary, error) {
	if cached, ok := s.cachedSummary(ctx); ok {
		return cached, nil
	}

	assessed, paid, err := s.borrowingRepo.FineTotals(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	activeOverdue, err := s.borrowingRepo.CountActiveOverdue(ctx, s.now())
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summary := &domain.LibrarySummary{
		FinesRecorded:    assessed,
		FinesCollected:   paid,
		FinesOutstanding: assessed.Sub(paid),
		ActiveOverdue:    activeOverdue,
		GeneratedAt:      s.now(),
	}

	s.cacheSummary(ctx, summary)

	return summary, nil
}

// SweepOverdue marks borrowed loans past their due date as overdue. Run daily
// by the scheduler.
func (s *LibraryService) SweepOverdue(ctx context.Context) (int64, error) {
	marked, err := s.borrowingRepo.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	if marked > 0 {
		s.invalidateSummary(ctx)
	}

	logger.Info().Int64("marked", marked).Msg("overdue sweep finished")

	return marked, nil
}

func (s *LibraryService) getBorrowing(ctx context.Context, loanID uuid.UUID) (*domain.Borrowing, error) {
	borrowing, err := s.borrowingRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return borrowing, nil
}

func (s *LibraryService) cachedSummary(ctx context.Context) (*domain.LibrarySummary, bool) {
	if s.redis == nil {
		return nil, false
	}

	raw, err := s.redis.Get(ctx, librarySummaryKey).Result()
	if err != nil {
		return nil, false
	}

	var summary domain.LibrarySummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, false
	}
	return &summary, true
}

func (s *LibraryService) cacheSummary(ctx context.Context, summary *domain.LibrarySummary) {
	if s.redis == nil {
		return
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, librarySummaryKey, raw, s.config.SummaryCacheTTL()).Err(); err != nil {
		logger.Warn().Err(err).Msg("caching library summary")
	}
}

func (s *LibraryService) invalidateSummary(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, librarySummaryKey).Err(); err != nil {
		logger.Warn().Err(err).Msg("invalidating library summary cache")
	}
}
