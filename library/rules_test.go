package library

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func TestComputeFine(t *testing.T) {
	due := date(2024, 1, 1, 0, 0, 0)

	tests := []struct {
		name     string
		returned time.Time
		want     string
	}{
		{"two days late", date(2024, 1, 3, 0, 0, 0), "1.00"},
		{"at the due instant", due, "0.00"},
		{"early", date(2023, 12, 30, 9, 0, 0), "0.00"},
		{"one second late", date(2024, 1, 1, 0, 0, 1), "0.50"},
		{"one second into the second day", date(2024, 1, 2, 0, 0, 1), "1.00"},
		{"exactly one day", date(2024, 1, 2, 0, 0, 0), "0.50"},
		{"thirty days", date(2024, 1, 31, 0, 0, 0), "15.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeFine(due, tt.returned)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got.StringFixed(2), tt.want)
		})
	}
}

func TestComputeFineIgnoresTimeZone(t *testing.T) {
	due := date(2024, 1, 1, 23, 59, 0)
	returned := due.In(time.FixedZone("UTC+5", 5*60*60))

	assert.True(t, ComputeFine(due, returned).IsZero())
	assert.Equal(t, int64(0), OverdueDays(due, returned))
}

func TestComputeDueDate(t *testing.T) {
	borrowed := date(2024, 2, 20, 15, 30, 0)

	assert.Equal(t, date(2024, 3, 5, 15, 30, 0), ComputeDueDate(borrowed))
}

func TestCanBorrowChecksInOrder(t *testing.T) {
	active := Member{Status: MemberActive}
	suspended := Member{Status: MemberSuspended}

	// every rule broken at once: status wins
	assert.ErrorIs(t, CanBorrow(Standing{Member: suspended, UnpaidFines: 2, OpenLoans: MaxBorrows}), ErrMemberSuspended)
	// fines beat the limit
	assert.ErrorIs(t, CanBorrow(Standing{Member: active, UnpaidFines: 1, OpenLoans: MaxBorrows}), ErrUnpaidFinesExist)
	assert.ErrorIs(t, CanBorrow(Standing{Member: active, OpenLoans: MaxBorrows}), ErrBorrowLimitExceeded)
	assert.NoError(t, CanBorrow(Standing{Member: active, OpenLoans: MaxBorrows - 1}))
}

func TestIsAvailable(t *testing.T) {
	assert.NoError(t, IsAvailable(Book{Status: BookAvailable, AvailableCopies: 1}))
	assert.ErrorIs(t, IsAvailable(Book{Status: BookAvailable, AvailableCopies: 0}), ErrBookNotAvailable)
	assert.ErrorIs(t, IsAvailable(Book{Status: BookBorrowed, AvailableCopies: 0}), ErrBookNotAvailable)
	assert.ErrorIs(t, IsAvailable(Book{Status: BookMaintenance, AvailableCopies: 3}), ErrBookNotAvailable)
	assert.ErrorIs(t, IsAvailable(Book{Status: BookReserved, AvailableCopies: 3}), ErrBookNotAvailable)
}

func TestSuspensionThreshold(t *testing.T) {
	assert.False(t, ShouldSuspend(SuspensionThreshold-1))
	assert.True(t, ShouldSuspend(SuspensionThreshold))

	assert.True(t, ShouldReinstate(Member{Status: MemberSuspended}, SuspensionThreshold-1))
	assert.False(t, ShouldReinstate(Member{Status: MemberSuspended}, SuspensionThreshold))
	assert.False(t, ShouldReinstate(Member{Status: MemberActive}, 0))
}

func TestErrorsMatchByCode(t *testing.T) {
	detailed := newError(CodeCopiesBelowBorrowed, "cannot reduce total copies below %d", 2)

	assert.ErrorIs(t, detailed, ErrCopiesBelowBorrowed)
	assert.NotErrorIs(t, detailed, ErrBookInUse)

	code, ok := CodeOf(detailed)
	assert.True(t, ok)
	assert.Equal(t, CodeCopiesBelowBorrowed, code)

	_, ok = CodeOf(ErrStoreFailure)
	assert.False(t, ok)
}
