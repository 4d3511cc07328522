package library

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lending policy.
const (
	MaxBorrows          = 3
	LoanDays            = 14
	SuspensionThreshold = 3
)

// FinePerDay is charged for every started day a book is returned late.
var FinePerDay = decimal.RequireFromString("0.50")

const day = 24 * time.Hour

// Standing is what the borrow rules need to know about a member.
type Standing struct {
	Member      Member `json:"member"`
	UnpaidFines int    `json:"unpaid_fines"`
	OpenLoans   int    `json:"open_loans"` // ACTIVE + OVERDUE transactions
}

// CanBorrow checks a member's standing in the order Borrow applies it:
// status, then unpaid fines, then the borrow limit. It returns nil when the member is eligible.
func CanBorrow(s Standing) error {
	if s.Member.Status != MemberActive {
		return ErrMemberSuspended
	}
	if s.UnpaidFines > 0 {
		return ErrUnpaidFinesExist
	}
	if s.OpenLoans >= MaxBorrows {
		return ErrBorrowLimitExceeded
	}
	return nil
}

// IsAvailable reports whether a copy of b can be lent right now.
func IsAvailable(b Book) error {
	if b.Status != BookAvailable || b.AvailableCopies <= 0 {
		return ErrBookNotAvailable
	}
	return nil
}

// OverdueDays counts started days between dueDate and returnDate. A return at or before the due
// instant is zero days late; one second late is one day.
func OverdueDays(dueDate, returnDate time.Time) int64 {
	if !returnDate.After(dueDate) {
		return 0
	}
	late := returnDate.Sub(dueDate)
	days := int64(late / day)
	if late%day != 0 {
		days++
	}
	return days
}

// ComputeFine returns the fine owed for returning a book due at dueDate on returnDate.
func ComputeFine(dueDate, returnDate time.Time) decimal.Decimal {
	return FinePerDay.Mul(decimal.NewFromInt(OverdueDays(dueDate, returnDate)))
}

// ComputeDueDate returns the end of the loan period starting at borrowDate.
func ComputeDueDate(borrowDate time.Time) time.Time {
	return borrowDate.AddDate(0, 0, LoanDays)
}

// ShouldSuspend reports whether overdue open loans reach the suspension threshold.
func ShouldSuspend(overdue int) bool {
	return overdue >= SuspensionThreshold
}

// ShouldReinstate reports whether a suspended member drops back under the threshold.
// Only a return re-evaluates this; the overdue sweep never lifts a suspension.
func ShouldReinstate(m Member, overdue int) bool {
	return m.Status == MemberSuspended && overdue < SuspensionThreshold
}

// nextBookStatus is the status after lending one copy and leaving remaining copies on the shelf.
func nextBookStatus(remaining int) BookStatus {
	if remaining == 0 {
		return BookBorrowed
	}
	return BookAvailable
}
