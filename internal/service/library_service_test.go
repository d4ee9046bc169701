package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/netzah/ledger-engine/internal/domain"
	customError "github.com/netzah/ledger-engine/pkg/errors"
	"github.com/netzah/ledger-engine/tests/mocks"
)

func newTestLibraryService(borrowingRepo *mocks.MockBorrowingRepository) *LibraryService {
	return &LibraryService{
		borrowingRepo: borrowingRepo,
		config:        testConfig(),
		now:           func() time.Time { return testClock },
	}
}

func activeLoan(borrowerID string, dueDate time.Time) *domain.Borrowing {
	return &domain.Borrowing{
		ID:         uuid.New(),
		BorrowerID: borrowerID,
		BorrowDate: dueDate.AddDate(0, 0, -7),
		DueDate:    dueDate,
		Status:     domain.LoanStatusBorrowed,
		Fine:       decimal.Zero,
		FinePaid:   decimal.Zero,
	}
}

func returnedLoan(borrowerID string) *domain.Borrowing {
	loan := activeLoan(borrowerID, testClock.AddDate(0, 0, -30))
	returned := testClock.AddDate(0, 0, -25)
	condition := domain.ConditionGood
	loan.ReturnDate = &returned
	loan.ReturnCondition = &condition
	loan.Status = domain.LoanStatusReturned
	return loan
}

func TestIssueBook(t *testing.T) {
	issueRequest := &domain.IssueLoanRequest{
		BookID:       "BK-0042",
		BookTitle:    "Things Fall Apart",
		BorrowerID:   "NISC/2025/041",
		BorrowerName: "A. Nakato",
		BorrowerRole: domain.RoleStudent,
	}

	tests := []struct {
		name        string
		role        domain.BorrowerRole
		history     []*domain.Borrowing
		wantBlocked bool
	}{
		{
			name:    "first loan succeeds",
			role:    domain.RoleStudent,
			history: []*domain.Borrowing{},
		},
		{
			name: "returned loans do not count toward the cap",
			role: domain.RoleStudent,
			history: []*domain.Borrowing{
				returnedLoan("NISC/2025/041"),
				returnedLoan("NISC/2025/041"),
				returnedLoan("NISC/2025/041"),
				returnedLoan("NISC/2025/041"),
				returnedLoan("NISC/2025/041"),
			},
		},
		{
			name: "blocked by overdue item",
			role: domain.RoleStudent,
			history: []*domain.Borrowing{
				activeLoan("NISC/2025/041", testClock.AddDate(0, 0, -3)),
			},
			wantBlocked: true,
		},
		{
			name: "blocked at student cap",
			role: domain.RoleStudent,
			history: []*domain.Borrowing{
				activeLoan("NISC/2025/041", testClock.AddDate(0, 0, 5)),
				activeLoan("NISC/2025/041", testClock.AddDate(0, 0, 5)),
				activeLoan("NISC/2025/041", testClock.AddDate(0, 0, 5)),
				activeLoan("NISC/2025/041", testClock.AddDate(0, 0, 5)),
				activeLoan("NISC/2025/041", testClock.AddDate(0, 0, 5)),
			},
			wantBlocked: true,
		},
		{
			name: "staff cap is higher than the student cap",
			role: domain.RoleStaff,
			history: []*domain.Borrowing{
				activeLoan("STF/014", testClock.AddDate(0, 0, 5)),
				activeLoan("STF/014", testClock.AddDate(0, 0, 5)),
				activeLoan("STF/014", testClock.AddDate(0, 0, 5)),
				activeLoan("STF/014", testClock.AddDate(0, 0, 5)),
				activeLoan("STF/014", testClock.AddDate(0, 0, 5)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			borrowingRepo := &mocks.MockBorrowingRepository{}
			svc := newTestLibraryService(borrowingRepo)

			request := *issueRequest
			request.BorrowerRole = tt.role

			borrowingRepo.On("ListByBorrower", mock.Anything, request.BorrowerID).Return(tt.history, nil)
			if !tt.wantBlocked {
				borrowingRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
			}

			borrowing, err := svc.IssueBook(context.Background(), &request)

			if tt.wantBlocked {
				require.Error(t, err)
				assert.ErrorIs(t, err, customError.ErrLoanBlocked)
				assert.Nil(t, borrowing)
				borrowingRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.LoanStatusBorrowed, borrowing.Status)
			assert.Equal(t, testClock, borrowing.BorrowDate)
			assert.Equal(t, testClock.AddDate(0, 0, 7), borrowing.DueDate)
			assert.True(t, borrowing.Fine.IsZero())
			borrowingRepo.AssertExpectations(t)
		})
	}
}

func TestIssueBook_ExplicitLoanDays(t *testing.T) {
	borrowingRepo := &mocks.MockBorrowingRepository{}
	svc := newTestLibraryService(borrowingRepo)

	borrowingRepo.On("ListByBorrower", mock.Anything, "STF/014").Return([]*domain.Borrowing{}, nil)
	borrowingRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	borrowing, err := svc.IssueBook(context.Background(), &domain.IssueLoanRequest{
		BookID:       "BK-0091",
		BookTitle:    "A Grain of Wheat",
		BorrowerID:   "STF/014",
		BorrowerName: "J. Okello",
		BorrowerRole: domain.RoleStaff,
		LoanDays:     21,
	})
	require.NoError(t, err)
	assert.Equal(t, testClock.AddDate(0, 0, 21), borrowing.DueDate)
}

// Ten days overdue at 500 per day suggests a 5,000 fine for a clean return;
// a lost book adds the flat replacement fee on top.
func TestAssessFine(t *testing.T) {
	tests := []struct {
		name      string
		dueDate   time.Time
		condition domain.ReturnCondition
		wantDays  int
		wantFine  decimal.Decimal
	}{
		{
			name:      "ten days overdue good condition",
			dueDate:   testClock.AddDate(0, 0, -10),
			condition: domain.ConditionGood,
			wantDays:  10,
			wantFine:  decimal.NewFromInt(5000),
		},
		{
			name:      "on time good condition",
			dueDate:   testClock.AddDate(0, 0, 3),
			condition: domain.ConditionGood,
			wantDays:  0,
			wantFine:  decimal.Zero,
		},
		{
			name:      "lost on time",
			dueDate:   testClock.AddDate(0, 0, 3),
			condition: domain.ConditionLost,
			wantDays:  0,
			wantFine:  decimal.NewFromInt(20000),
		},
		{
			name:      "damaged and two days late",
			dueDate:   testClock.AddDate(0, 0, -2),
			condition: domain.ConditionDamaged,
			wantDays:  2,
			wantFine:  decimal.NewFromInt(6000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			borrowingRepo := &mocks.MockBorrowingRepository{}
			svc := newTestLibraryService(borrowingRepo)

			loan := activeLoan("NISC/2025/041", tt.dueDate)
			borrowingRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)

			assessment, err := svc.AssessFine(context.Background(), loan.ID, tt.condition)
			require.NoError(t, err)

			assert.Equal(t, tt.wantDays, assessment.DaysOverdue)
			assert.True(t, assessment.SuggestedFine.Equal(tt.wantFine),
				"suggested %s, want %s", assessment.SuggestedFine, tt.wantFine)
		})
	}
}

// The operator's final figure wins over the assessed default: a loan assessed
// at 5,000 closed with an override of 3,000 carries a 3,000 fine.
func TestReturnBook_OperatorOverrideWins(t *testing.T) {
	borrowingRepo := &mocks.MockBorrowingRepository{}
	svc := newTestLibraryService(borrowingRepo)

	loan := activeLoan("NISC/2025/041", testClock.AddDate(0, 0, -10))
	borrowingRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	borrowingRepo.On("Update", mock.Anything, mock.MatchedBy(func(b *domain.Borrowing) bool {
		return b.Status == domain.LoanStatusReturned && b.Fine.Equal(decimal.NewFromInt(3000))
	})).Return(nil)

	returned, err := svc.ReturnBook(context.Background(), loan.ID, domain.ConditionGood, decimal.NewFromInt(3000))
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStatusReturned, returned.Status)
	assert.True(t, returned.Fine.Equal(decimal.NewFromInt(3000)))
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, testClock, *returned.ReturnDate)
	require.NotNil(t, returned.ReturnCondition)
	assert.Equal(t, domain.ConditionGood, *returned.ReturnCondition)
	borrowingRepo.AssertExpectations(t)
}

func TestReturnBook_Rejections(t *testing.T) {
	t.Run("negative fine", func(t *testing.T) {
		svc := newTestLibraryService(&mocks.MockBorrowingRepository{})

		_, err := svc.ReturnBook(context.Background(), uuid.New(), domain.ConditionGood, decimal.NewFromInt(-100))
		assert.ErrorIs(t, err, customError.ErrNegativeFine)
	})

	t.Run("already returned", func(t *testing.T) {
		borrowingRepo := &mocks.MockBorrowingRepository{}
		svc := newTestLibraryService(borrowingRepo)

		loan := returnedLoan("NISC/2025/041")
		borrowingRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)

		_, err := svc.ReturnBook(context.Background(), loan.ID, domain.ConditionGood, decimal.Zero)
		assert.ErrorIs(t, err, customError.ErrLoanAlreadyReturned)
		borrowingRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		borrowingRepo := &mocks.MockBorrowingRepository{}
		svc := newTestLibraryService(borrowingRepo)

		loanID := uuid.New()
		borrowingRepo.On("GetByID", mock.Anything, loanID).Return(nil, sql.ErrNoRows)

		_, err := svc.ReturnBook(context.Background(), loanID, domain.ConditionGood, decimal.Zero)
		assert.ErrorIs(t, err, customError.ErrLoanNotFound)
	})
}

// Collecting 3,000 against a 3,000 fine settles it; a second collection is
// not clamped and drives the outstanding negative.
func TestCollectFine_AccumulatesWithoutClamp(t *testing.T) {
	collect := func(fine, finePaid, amount int64) *domain.Borrowing {
		borrowingRepo := &mocks.MockBorrowingRepository{}
		svc := newTestLibraryService(borrowingRepo)

		loan := returnedLoan("NISC/2025/041")
		loan.Fine = decimal.NewFromInt(fine)
		loan.FinePaid = decimal.NewFromInt(finePaid)

		borrowingRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
		borrowingRepo.On("AddFinePaid", mock.Anything, loan.ID, decimalEq(decimal.NewFromInt(amount))).Return(nil)

		updated, err := svc.CollectFine(context.Background(), loan.ID, decimal.NewFromInt(amount), domain.MethodCash)
		require.NoError(t, err)

		borrowingRepo.AssertExpectations(t)
		return updated
	}

	settled := collect(3000, 0, 3000)
	assert.True(t, settled.Outstanding().Equal(decimal.Zero))

	overshot := collect(3000, 3000, 1000)
	assert.True(t, overshot.FinePaid.Equal(decimal.NewFromInt(4000)))
	assert.True(t, overshot.Outstanding().Equal(decimal.NewFromInt(-1000)))
}

func TestCollectFine_InvalidAmount(t *testing.T) {
	svc := newTestLibraryService(&mocks.MockBorrowingRepository{})

	_, err := svc.CollectFine(context.Background(), uuid.New(), decimal.Zero, domain.MethodCash)
	assert.ErrorIs(t, err, customError.ErrInvalidAmount)

	_, err = svc.CollectFine(context.Background(), uuid.New(), decimal.NewFromInt(-500), domain.MethodCash)
	assert.ErrorIs(t, err, customError.ErrInvalidAmount)
}

func TestOutstanding(t *testing.T) {
	borrowingRepo := &mocks.MockBorrowingRepository{}
	svc := newTestLibraryService(borrowingRepo)

	loan := returnedLoan("NISC/2025/041")
	loan.Fine = decimal.NewFromInt(5000)
	loan.FinePaid = decimal.NewFromInt(2000)
	borrowingRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)

	outstanding, err := svc.Outstanding(context.Background(), loan.ID)
	require.NoError(t, err)

	assert.Equal(t, loan.ID, outstanding.LoanID)
	assert.True(t, outstanding.Outstanding.Equal(decimal.NewFromInt(3000)))
}

func TestLibrarySummary(t *testing.T) {
	borrowingRepo := &mocks.MockBorrowingRepository{}
	svc := newTestLibraryService(borrowingRepo)

	borrowingRepo.On("FineTotals", mock.Anything).Return(decimal.NewFromInt(25000), decimal.NewFromInt(9000), nil)
	borrowingRepo.On("CountActiveOverdue", mock.Anything, testClock).Return(3, nil)

	summary, err := svc.LibrarySummary(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.FinesRecorded.Equal(decimal.NewFromInt(25000)))
	assert.True(t, summary.FinesCollected.Equal(decimal.NewFromInt(9000)))
	assert.True(t, summary.FinesOutstanding.Equal(decimal.NewFromInt(16000)))
	assert.Equal(t, 3, summary.ActiveOverdue)
}

func TestSweepOverdue(t *testing.T) {
	borrowingRepo := &mocks.MockBorrowingRepository{}
	svc := newTestLibraryService(borrowingRepo)

	borrowingRepo.On("MarkOverdue", mock.Anything, testClock).Return(int64(4), nil)

	marked, err := svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), marked)
	borrowingRepo.AssertExpectations(t)
}
