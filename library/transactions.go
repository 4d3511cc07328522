package library

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
)

// TransactionOrder selects how transaction listings are sorted.
type TransactionOrder int

const (
	// OrderNewestBorrowFirst sorts by borrowed_at descending.
	OrderNewestBorrowFirst TransactionOrder = iota
	// OrderEarliestDueFirst sorts by due_date ascending.
	OrderEarliestDueFirst
)

// TransactionFilter narrows a transaction listing. Zero fields match everything.
type TransactionFilter struct {
	MemberID *uuid.UUID
	BookID   *uuid.UUID
	Statuses []TransactionStatus
	Order    TransactionOrder
}

// Transactions lists transactions matching f.
func (t *Tx) Transactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	ds := t.dialect.From(tableTransactions).Select(transactionColumns...)
	if f.MemberID != nil {
		ds = ds.Where(goqu.C("member_id").Eq(f.MemberID.String()))
	}
	if f.BookID != nil {
		ds = ds.Where(goqu.C("book_id").Eq(f.BookID.String()))
	}
	if len(f.Statuses) > 0 {
		ds = ds.Where(goqu.C("status").In(statusStrings(f.Statuses)))
	}

	var order []exp.OrderedExpression
	switch f.Order {
	case OrderEarliestDueFirst:
		order = append(order, goqu.C("due_date").Asc())
	default:
		order = append(order, goqu.C("borrowed_at").Desc())
	}
	ds = ds.Order(append(order, goqu.C("id").Asc())...)

	txs := []Transaction{}
	if err := t.selectAll(ctx, &txs, ds); err != nil {
		return nil, err
	}
	return txs, nil
}

// GetTransaction returns one transaction joined with its book and member.
func (d *Database) GetTransaction(ctx context.Context, id uuid.UUID) (Loan, error) {
	s := d.session()
	tr, err := s.Transaction(ctx, id, false)
	if err != nil {
		return Loan{}, err
	}
	loans, err := s.Loans(ctx, []Transaction{tr})
	if err != nil {
		return Loan{}, err
	}
	return loans[0], nil
}

// ListTransactions returns transactions matching f joined with their books and members.
func (d *Database) ListTransactions(ctx context.Context, f TransactionFilter) ([]Loan, error) {
	s := d.session()
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, newError(CodeInvalidInput, "invalid transaction status %q", st)
		}
	}
	txs, err := s.Transactions(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.Loans(ctx, txs)
}
