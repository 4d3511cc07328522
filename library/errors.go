package library

import (
	"errors"
	"fmt"
)

// Code tags a domain rule violation. The set is closed: callers can switch on it exhaustively.
type Code string

const (
	CodeMemberNotFound      Code = "MEMBER_NOT_FOUND"
	CodeMemberSuspended     Code = "MEMBER_SUSPENDED"
	CodeUnpaidFinesExist    Code = "UNPAID_FINES_EXIST"
	CodeBorrowLimitExceeded Code = "BORROW_LIMIT_EXCEEDED"
	CodeBookNotFound        Code = "BOOK_NOT_FOUND"
	CodeBookNotAvailable    Code = "BOOK_NOT_AVAILABLE"
	CodeTransactionNotFound Code = "TRANSACTION_NOT_FOUND"
	CodeAlreadyReturned     Code = "ALREADY_RETURNED"

	CodeFineNotFound        Code = "FINE_NOT_FOUND"
	CodeFineAlreadyPaid     Code = "FINE_ALREADY_PAID"
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeDuplicate           Code = "DUPLICATE"
	CodeBookInUse           Code = "BOOK_IN_USE"
	CodeMemberInUse         Code = "MEMBER_IN_USE"
	CodeCopiesBelowBorrowed Code = "COPIES_BELOW_BORROWED"
)

// Error is a domain rule violation. Two errors match under errors.Is when their codes are equal,
// so a detailed message never hides the tag.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrMemberNotFound      = &Error{Code: CodeMemberNotFound, Message: "member not found"}
	ErrMemberSuspended     = &Error{Code: CodeMemberSuspended, Message: "member is suspended"}
	ErrUnpaidFinesExist    = &Error{Code: CodeUnpaidFinesExist, Message: "member has unpaid fines"}
	ErrBorrowLimitExceeded = &Error{Code: CodeBorrowLimitExceeded, Message: fmt.Sprintf("borrow limit exceeded (max %d books)", MaxBorrows)}
	ErrBookNotFound        = &Error{Code: CodeBookNotFound, Message: "book not found"}
	ErrBookNotAvailable    = &Error{Code: CodeBookNotAvailable, Message: "book is not available"}
	ErrTransactionNotFound = &Error{Code: CodeTransactionNotFound, Message: "transaction not found"}
	ErrAlreadyReturned     = &Error{Code: CodeAlreadyReturned, Message: "book has already been returned"}

	ErrFineNotFound        = &Error{Code: CodeFineNotFound, Message: "fine not found"}
	ErrFineAlreadyPaid     = &Error{Code: CodeFineAlreadyPaid, Message: "fine has already been paid"}
	ErrInvalidInput        = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrDuplicate           = &Error{Code: CodeDuplicate, Message: "duplicate value"}
	ErrBookInUse           = &Error{Code: CodeBookInUse, Message: "cannot delete book with active transactions"}
	ErrMemberInUse         = &Error{Code: CodeMemberInUse, Message: "cannot delete member with active transactions or unpaid fines"}
	ErrCopiesBelowBorrowed = &Error{Code: CodeCopiesBelowBorrowed, Message: "cannot reduce total copies below borrowed copies"}
)

// ErrStoreFailure marks errors that originate in the data store rather than in a lending rule.
// The driver error is joined to it, so errors.Is(err, ErrStoreFailure) separates the two categories.
var ErrStoreFailure = errors.New("store failure")

// ErrBuildingQueryFailed is joined with ErrStoreFailure when a query cannot be rendered.
var ErrBuildingQueryFailed = errors.New("building query failed")

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the tag carried by err. ok is false for store failures and foreign errors.
func CodeOf(err error) (code Code, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
