package library

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookStatus is the lending state of a catalog entry.
type BookStatus string

const (
	BookAvailable   BookStatus = "AVAILABLE"
	BookBorrowed    BookStatus = "BORROWED"
	BookReserved    BookStatus = "RESERVED"
	BookMaintenance BookStatus = "MAINTENANCE"
)

// Valid reports whether s is one of the known book statuses.
func (s BookStatus) Valid() bool {
	switch s {
	case BookAvailable, BookBorrowed, BookReserved, BookMaintenance:
		return true
	}
	return false
}

// MemberStatus is the standing of a library member.
type MemberStatus string

const (
	MemberActive    MemberStatus = "ACTIVE"
	MemberSuspended MemberStatus = "SUSPENDED"
)

// Valid reports whether s is one of the known member statuses.
func (s MemberStatus) Valid() bool {
	return s == MemberActive || s == MemberSuspended
}

// TransactionStatus is the lifecycle state of a borrowing transaction.
// RETURNED is terminal.
type TransactionStatus string

const (
	TransactionActive   TransactionStatus = "ACTIVE"
	TransactionOverdue  TransactionStatus = "OVERDUE"
	TransactionReturned TransactionStatus = "RETURNED"
)

// Valid reports whether s is one of the known transaction statuses.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionActive, TransactionOverdue, TransactionReturned:
		return true
	}
	return false
}

// Open reports whether the book is still out with the member.
func (s TransactionStatus) Open() bool {
	return s == TransactionActive || s == TransactionOverdue
}

// Book is a catalog entry with its copy inventory.
type Book struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	ISBN            string     `json:"isbn" db:"isbn"`
	Title           string     `json:"title" db:"title"`
	Author          string     `json:"author" db:"author"`
	Category        string     `json:"category" db:"category"`
	TotalCopies     int        `json:"total_copies" db:"total_copies"`
	AvailableCopies int        `json:"available_copies" db:"available_copies"`
	Status          BookStatus `json:"status" db:"status"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Member represents a registered library member.
type Member struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	Name             string       `json:"name" db:"name"`
	Email            string       `json:"email" db:"email"`
	MembershipNumber string       `json:"membership_number" db:"membership_number"`
	Status           MemberStatus `json:"status" db:"status"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// Transaction records one copy of a book lent to a member.
type Transaction struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	MemberID   uuid.UUID         `json:"member_id" db:"member_id"`
	BookID     uuid.UUID         `json:"book_id" db:"book_id"`
	BorrowedAt time.Time         `json:"borrowed_at" db:"borrowed_at"`
	DueDate    time.Time         `json:"due_date" db:"due_date"`
	ReturnedAt *time.Time        `json:"returned_at" db:"returned_at"`
	Status     TransactionStatus `json:"status" db:"status"`
}

// Fine is the penalty recorded for a late return. The amount is fixed at creation.
type Fine struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	MemberID      uuid.UUID       `json:"member_id" db:"member_id"`
	TransactionID uuid.UUID       `json:"transaction_id" db:"transaction_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	PaidAt        *time.Time      `json:"paid_at" db:"paid_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Paid reports whether the fine has been settled.
func (f Fine) Paid() bool { return f.PaidAt != nil }

// Loan is a transaction joined with the book and member it refers to.
type Loan struct {
	Transaction
	Book   Book   `json:"book"`
	Member Member `json:"member"`
}

// ReturnResult is everything a return changed.
type ReturnResult struct {
	Transaction Transaction `json:"transaction"`
	Fine        *Fine       `json:"fine"`
	Book        Book        `json:"book"`
}

// BookDetail is a book together with the loans currently holding its copies.
type BookDetail struct {
	Book
	Loans []Loan `json:"transactions"`
}

// MemberDetail is a member together with open loans and unpaid fines.
type MemberDetail struct {
	Member
	Loans       []Loan `json:"transactions"`
	UnpaidFines []Fine `json:"fines"`
}

// FineDetail is a fine joined with the member and the book of the late transaction.
type FineDetail struct {
	Fine
	Member      Member      `json:"member"`
	Transaction Transaction `json:"transaction"`
	Book        Book        `json:"book"`
}
