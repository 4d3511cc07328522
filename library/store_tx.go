package library

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	tableBooks        = "books"
	tableMembers      = "members"
	tableTransactions = "transactions"
	tableFines        = "fines"
)

var (
	bookColumns        = []any{"id", "isbn", "title", "author", "category", "total_copies", "available_copies", "status", "created_at", "updated_at"}
	memberColumns      = []any{"id", "name", "email", "membership_number", "status", "created_at", "updated_at"}
	transactionColumns = []any{"id", "member_id", "book_id", "borrowed_at", "due_date", "returned_at", "status"}
	fineColumns        = []any{"id", "member_id", "transaction_id", "amount", "paid_at", "created_at"}
)

// Tx executes queries against either an open store transaction or the bare pool.
// Row locks are only taken when the engine supports them.
type Tx struct {
	ext      sqlx.ExtContext
	dialect  goqu.DialectWrapper
	lockRows bool
	db       *Database
}

type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func (t *Tx) render(b sqlBuilder) (string, []any, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return "", nil, errors.Join(ErrStoreFailure, ErrBuildingQueryFailed, err)
	}
	t.db.logDebug(logMsgSQLExecuted, logAttrQuery, query)
	return query, args, nil
}

func (t *Tx) get(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := t.render(ds.Prepared(true))
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, t.ext, dest, query, args...)
}

func (t *Tx) selectAll(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := t.render(ds.Prepared(true))
	if err != nil {
		return err
	}
	if err := sqlx.SelectContext(ctx, t.ext, dest, query, args...); err != nil {
		return t.db.storeError(err)
	}
	return nil
}

func (t *Tx) exec(ctx context.Context, b sqlBuilder) (int64, error) {
	query, args, err := t.render(b)
	if err != nil {
		return 0, err
	}
	res, err := t.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, t.db.storeError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, t.db.storeError(err)
	}
	return n, nil
}

// lookup fetches a single row, translating "no rows" into the caller's not-found error.
func (t *Tx) lookup(ctx context.Context, dest any, ds *goqu.SelectDataset, lock bool, notFound error) error {
	if lock && t.lockRows {
		ds = ds.ForUpdate(exp.Wait)
	}
	err := t.get(ctx, dest, ds)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	case err != nil:
		return t.db.storeError(err)
	}
	return nil
}

func (t *Tx) count(ctx context.Context, ds *goqu.SelectDataset) (int, error) {
	var n int
	if err := t.get(ctx, &n, ds.Select(goqu.COUNT(goqu.Star()))); err != nil {
		return 0, t.db.storeError(err)
	}
	return n, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func statusStrings(statuses []TransactionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

var openStatuses = []TransactionStatus{TransactionActive, TransactionOverdue}

// ---------------------------------------------------------------------------
// Single-row lookups
// ---------------------------------------------------------------------------

// Member loads a member by ID. With lock set the row stays locked until the transaction ends.
func (t *Tx) Member(ctx context.Context, id uuid.UUID, lock bool) (Member, error) {
	var m Member
	ds := t.dialect.From(tableMembers).Select(memberColumns...).Where(goqu.C("id").Eq(id.String()))
	err := t.lookup(ctx, &m, ds, lock, ErrMemberNotFound)
	return m, err
}

// Book loads a book by ID.
func (t *Tx) Book(ctx context.Context, id uuid.UUID, lock bool) (Book, error) {
	var b Book
	ds := t.dialect.From(tableBooks).Select(bookColumns...).Where(goqu.C("id").Eq(id.String()))
	err := t.lookup(ctx, &b, ds, lock, ErrBookNotFound)
	return b, err
}

// Transaction loads a borrowing transaction by ID.
func (t *Tx) Transaction(ctx context.Context, id uuid.UUID, lock bool) (Transaction, error) {
	var tr Transaction
	ds := t.dialect.From(tableTransactions).Select(transactionColumns...).Where(goqu.C("id").Eq(id.String()))
	err := t.lookup(ctx, &tr, ds, lock, ErrTransactionNotFound)
	return tr, err
}

// Fine loads a fine by ID.
func (t *Tx) Fine(ctx context.Context, id uuid.UUID, lock bool) (Fine, error) {
	var f Fine
	ds := t.dialect.From(tableFines).Select(fineColumns...).Where(goqu.C("id").Eq(id.String()))
	err := t.lookup(ctx, &f, ds, lock, ErrFineNotFound)
	return f, err
}

// ---------------------------------------------------------------------------
// Counters
// ---------------------------------------------------------------------------

// CountUnpaidFines counts the member's fines with no payment recorded.
func (t *Tx) CountUnpaidFines(ctx context.Context, memberID uuid.UUID) (int, error) {
	return t.count(ctx, t.dialect.From(tableFines).Where(
		goqu.C("member_id").Eq(memberID.String()),
		goqu.C("paid_at").IsNull(),
	))
}

// CountTransactions counts the member's transactions in any of statuses.
func (t *Tx) CountTransactions(ctx context.Context, memberID uuid.UUID, statuses ...TransactionStatus) (int, error) {
	return t.count(ctx, t.dialect.From(tableTransactions).Where(
		goqu.C("member_id").Eq(memberID.String()),
		goqu.C("status").In(statusStrings(statuses)),
	))
}

// ---------------------------------------------------------------------------
// Lending writes
// ---------------------------------------------------------------------------

// InsertTransaction records a new loan.
func (t *Tx) InsertTransaction(ctx context.Context, tr Transaction) error {
	_, err := t.exec(ctx, t.dialect.Insert(tableTransactions).Prepared(true).Rows(goqu.Record{
		"id":          tr.ID.String(),
		"member_id":   tr.MemberID.String(),
		"book_id":     tr.BookID.String(),
		"borrowed_at": tr.BorrowedAt,
		"due_date":    tr.DueDate,
		"returned_at": nullTime(tr.ReturnedAt),
		"status":      string(tr.Status),
	}))
	return err
}

// InsertFine records a fine. A transaction carries at most one fine.
func (t *Tx) InsertFine(ctx context.Context, f Fine) error {
	_, err := t.exec(ctx, t.dialect.Insert(tableFines).Prepared(true).Rows(goqu.Record{
		"id":             f.ID.String(),
		"member_id":      f.MemberID.String(),
		"transaction_id": f.TransactionID.String(),
		"amount":         f.Amount.StringFixed(2),
		"paid_at":        nullTime(f.PaidAt),
		"created_at":     f.CreatedAt,
	}))
	return err
}

// UpdateBookInventory sets the available copy count and status of a book.
func (t *Tx) UpdateBookInventory(ctx context.Context, id uuid.UUID, available int, status BookStatus, at time.Time) error {
	n, err := t.exec(ctx, t.dialect.Update(tableBooks).Prepared(true).Set(goqu.Record{
		"available_copies": available,
		"status":           string(status),
		"updated_at":       at,
	}).Where(goqu.C("id").Eq(id.String())))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}

// MarkReturned closes an open transaction. It fails with ErrAlreadyReturned when the
// transaction was closed in the meantime.
func (t *Tx) MarkReturned(ctx context.Context, id uuid.UUID, at time.Time) error {
	n, err := t.exec(ctx, t.dialect.Update(tableTransactions).Prepared(true).Set(goqu.Record{
		"returned_at": at,
		"status":      string(TransactionReturned),
	}).Where(
		goqu.C("id").Eq(id.String()),
		goqu.C("status").In(statusStrings(openStatuses)),
	))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyReturned
	}
	return nil
}

// SetMemberStatus changes a member's standing.
func (t *Tx) SetMemberStatus(ctx context.Context, id uuid.UUID, status MemberStatus, at time.Time) error {
	n, err := t.exec(ctx, t.dialect.Update(tableMembers).Prepared(true).Set(goqu.Record{
		"status":     string(status),
		"updated_at": at,
	}).Where(goqu.C("id").Eq(id.String())))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Overdue sweep
// ---------------------------------------------------------------------------

// OverdueCandidates returns ACTIVE transactions whose due date lies strictly before now.
func (t *Tx) OverdueCandidates(ctx context.Context, now time.Time) ([]Transaction, error) {
	ds := t.dialect.From(tableTransactions).Select(transactionColumns...).Where(
		goqu.C("status").Eq(string(TransactionActive)),
		goqu.C("due_date").Lt(now),
	).Order(goqu.C("due_date").Asc())
	if t.lockRows {
		ds = ds.ForUpdate(exp.Wait)
	}
	var out []Transaction
	if err := t.selectAll(ctx, &out, ds); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkOverdue moves the given ACTIVE transactions to OVERDUE.
func (t *Tx) MarkOverdue(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return t.exec(ctx, t.dialect.Update(tableTransactions).Prepared(true).Set(goqu.Record{
		"status": string(TransactionOverdue),
	}).Where(
		goqu.C("id").In(idStrings(ids)),
		goqu.C("status").Eq(string(TransactionActive)),
	))
}

// ---------------------------------------------------------------------------
// Batch lookups
// ---------------------------------------------------------------------------

// BooksByID loads the given books keyed by ID. Unknown IDs are absent from the result.
func (t *Tx) BooksByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Book, error) {
	out := make(map[uuid.UUID]Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var books []Book
	ds := t.dialect.From(tableBooks).Select(bookColumns...).Where(goqu.C("id").In(idStrings(ids)))
	if err := t.selectAll(ctx, &books, ds); err != nil {
		return nil, err
	}
	for _, b := range books {
		out[b.ID] = b
	}
	return out, nil
}

// MembersByID loads the given members keyed by ID.
func (t *Tx) MembersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Member, error) {
	out := make(map[uuid.UUID]Member, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var members []Member
	ds := t.dialect.From(tableMembers).Select(memberColumns...).Where(goqu.C("id").In(idStrings(ids)))
	if err := t.selectAll(ctx, &members, ds); err != nil {
		return nil, err
	}
	for _, m := range members {
		out[m.ID] = m
	}
	return out, nil
}

// Loans joins transactions with their books and members, keeping the input order.
func (t *Tx) Loans(ctx context.Context, txs []Transaction) ([]Loan, error) {
	bookIDs := make([]uuid.UUID, 0, len(txs))
	memberIDs := make([]uuid.UUID, 0, len(txs))
	for _, tr := range txs {
		bookIDs = append(bookIDs, tr.BookID)
		memberIDs = append(memberIDs, tr.MemberID)
	}
	books, err := t.BooksByID(ctx, bookIDs)
	if err != nil {
		return nil, err
	}
	members, err := t.MembersByID(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	loans := make([]Loan, len(txs))
	for i, tr := range txs {
		loans[i] = Loan{Transaction: tr, Book: books[tr.BookID], Member: members[tr.MemberID]}
	}
	return loans, nil
}
