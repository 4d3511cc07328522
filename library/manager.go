package library

import (
	"context"

	"github.com/google/uuid"
)

// LibraryManager is a thin façade over the Database and the lending engine, keeping the CLI
// and HTTP code simple.
type LibraryManager struct {
	db     *Database
	lender *Lender
}

// NewLibraryManager wires a lending engine to db.
func NewLibraryManager(db *Database, options ...LenderOption) (*LibraryManager, error) {
	lender, err := NewLender(db, options...)
	if err != nil {
		return nil, err
	}
	return &LibraryManager{db: db, lender: lender}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// Ping checks the database connection.
func (lm *LibraryManager) Ping(ctx context.Context) error { return lm.db.Ping(ctx) }

// ------------------ Books ------------------

func (lm *LibraryManager) CreateBook(ctx context.Context, in NewBook) (Book, error) {
	return lm.db.CreateBook(ctx, in)
}

func (lm *LibraryManager) ListBooks(ctx context.Context, f BookFilter) ([]Book, error) {
	return lm.db.ListBooks(ctx, f)
}

func (lm *LibraryManager) ListAvailableBooks(ctx context.Context) ([]Book, error) {
	return lm.db.ListAvailableBooks(ctx)
}

func (lm *LibraryManager) GetBook(ctx context.Context, id uuid.UUID) (BookDetail, error) {
	return lm.db.GetBook(ctx, id)
}

func (lm *LibraryManager) UpdateBook(ctx context.Context, id uuid.UUID, patch BookPatch) (Book, error) {
	return lm.db.UpdateBook(ctx, id, patch)
}

func (lm *LibraryManager) DeleteBook(ctx context.Context, id uuid.UUID) error {
	return lm.db.DeleteBook(ctx, id)
}

// CheckAvailability pre-flights a borrow of bookID without changing anything.
func (lm *LibraryManager) CheckAvailability(ctx context.Context, id uuid.UUID) (Book, error) {
	return lm.lender.CheckAvailability(ctx, id)
}

// ------------------ Members ------------------

func (lm *LibraryManager) CreateMember(ctx context.Context, in NewMember) (Member, error) {
	return lm.db.CreateMember(ctx, in)
}

func (lm *LibraryManager) ListMembers(ctx context.Context, f MemberFilter) ([]Member, error) {
	return lm.db.ListMembers(ctx, f)
}

func (lm *LibraryManager) GetMember(ctx context.Context, id uuid.UUID) (MemberDetail, error) {
	return lm.db.GetMember(ctx, id)
}

func (lm *LibraryManager) MemberLoans(ctx context.Context, id uuid.UUID) ([]Loan, error) {
	return lm.db.MemberLoans(ctx, id)
}

func (lm *LibraryManager) UpdateMember(ctx context.Context, id uuid.UUID, patch MemberPatch) (Member, error) {
	return lm.db.UpdateMember(ctx, id, patch)
}

func (lm *LibraryManager) DeleteMember(ctx context.Context, id uuid.UUID) error {
	return lm.db.DeleteMember(ctx, id)
}

// CheckBorrow pre-flights a borrow by memberID without changing anything.
func (lm *LibraryManager) CheckBorrow(ctx context.Context, id uuid.UUID) (Standing, error) {
	return lm.lender.CheckBorrow(ctx, id)
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) Borrow(ctx context.Context, memberID, bookID uuid.UUID) (Transaction, error) {
	return lm.lender.Borrow(ctx, memberID, bookID)
}

func (lm *LibraryManager) Return(ctx context.Context, transactionID uuid.UUID) (ReturnResult, error) {
	return lm.lender.Return(ctx, transactionID)
}

// Overdue brings overdue state up to date and returns every overdue loan.
func (lm *LibraryManager) Overdue(ctx context.Context) ([]Loan, error) {
	return lm.lender.SweepOverdue(ctx)
}

func (lm *LibraryManager) GetTransaction(ctx context.Context, id uuid.UUID) (Loan, error) {
	return lm.db.GetTransaction(ctx, id)
}

func (lm *LibraryManager) ListTransactions(ctx context.Context, f TransactionFilter) ([]Loan, error) {
	return lm.db.ListTransactions(ctx, f)
}

// ------------------ Fines ------------------

func (lm *LibraryManager) ListFines(ctx context.Context, f FineFilter) ([]FineDetail, error) {
	return lm.db.ListFines(ctx, f)
}

func (lm *LibraryManager) GetFine(ctx context.Context, id uuid.UUID) (FineDetail, error) {
	return lm.db.GetFine(ctx, id)
}

func (lm *LibraryManager) PayFine(ctx context.Context, id uuid.UUID) (Fine, error) {
	return lm.db.PayFine(ctx, id)
}
