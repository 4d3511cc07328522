package library

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "library-lending/library"

	spanBorrow           = "library.borrow"
	spanReturn           = "library.return"
	spanSweepOverdue     = "library.sweep_overdue"
	spanAttrErrorCode    = "library.error_code"
	spanAttrMemberID     = "library.member_id"
	spanAttrBookID       = "library.book_id"
	spanAttrTransaction  = "library.transaction_id"
	spanAttrFined        = "library.fined"
	spanAttrMarked       = "library.marked_overdue"
	spanAttrOverdueTotal = "library.overdue_total"

	logMsgBorrowed         = "book borrowed"
	logMsgReturned         = "book returned"
	logMsgFineRecorded     = "fine recorded"
	logMsgMemberSuspended  = "member suspended"
	logMsgMemberReinstated = "member reinstated"
	logMsgSweepCompleted   = "overdue sweep completed"
	logMsgOperationFailed  = "lending operation failed"
)

// StoreTx is the view of the data store a lending operation works against. Every read and write
// made through one StoreTx commits or rolls back together.
type StoreTx interface {
	Member(ctx context.Context, id uuid.UUID, lock bool) (Member, error)
	Book(ctx context.Context, id uuid.UUID, lock bool) (Book, error)
	Transaction(ctx context.Context, id uuid.UUID, lock bool) (Transaction, error)
	CountUnpaidFines(ctx context.Context, memberID uuid.UUID) (int, error)
	CountTransactions(ctx context.Context, memberID uuid.UUID, statuses ...TransactionStatus) (int, error)
	InsertTransaction(ctx context.Context, tr Transaction) error
	InsertFine(ctx context.Context, f Fine) error
	UpdateBookInventory(ctx context.Context, id uuid.UUID, available int, status BookStatus, at time.Time) error
	MarkReturned(ctx context.Context, id uuid.UUID, at time.Time) error
	SetMemberStatus(ctx context.Context, id uuid.UUID, status MemberStatus, at time.Time) error
	OverdueCandidates(ctx context.Context, now time.Time) ([]Transaction, error)
	MarkOverdue(ctx context.Context, ids []uuid.UUID) (int64, error)
	Transactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)
	Loans(ctx context.Context, txs []Transaction) ([]Loan, error)
}

// Store runs fn atomically with InTx, or as plain reads with View. *Database is the production
// implementation.
type Store interface {
	InTx(ctx context.Context, fn func(tx StoreTx) error) error
	View(ctx context.Context, fn func(tx StoreTx) error) error
}

// Lender is the lending engine: it borrows, returns, and reconciles overdue loans.
// It keeps no state between calls; everything lives in the store.
type Lender struct {
	store  Store
	clock  func() time.Time
	logger Logger
	tracer trace.Tracer
}

// LenderOption configures a Lender.
type LenderOption func(*Lender) error

// WithClock replaces time.Now, e.g. for tests.
func WithClock(clock func() time.Time) LenderOption {
	return func(l *Lender) error {
		if clock == nil {
			return newError(CodeInvalidInput, "clock must not be nil")
		}
		l.clock = clock
		return nil
	}
}

// WithLenderLogger sets the logger for state transitions.
func WithLenderLogger(logger Logger) LenderOption {
	return func(l *Lender) error {
		l.logger = logger
		return nil
	}
}

// WithTracer sets the tracer used for one span per operation. The global provider is used otherwise.
func WithTracer(tracer trace.Tracer) LenderOption {
	return func(l *Lender) error {
		l.tracer = tracer
		return nil
	}
}

// NewLender creates a lending engine on top of store.
func NewLender(store Store, options ...LenderOption) (*Lender, error) {
	l := &Lender{
		store:  store,
		clock:  time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, option := range options {
		if err := option(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// now is normalized to the precision every supported store keeps.
func (l *Lender) now() time.Time {
	return l.clock().UTC().Truncate(time.Microsecond)
}

// Borrow lends one copy of bookID to memberID. Member checks run before book checks and the
// first failing rule is returned: MEMBER_NOT_FOUND, MEMBER_SUSPENDED, UNPAID_FINES_EXIST,
// BORROW_LIMIT_EXCEEDED, BOOK_NOT_FOUND, BOOK_NOT_AVAILABLE.
func (l *Lender) Borrow(ctx context.Context, memberID, bookID uuid.UUID) (Transaction, error) {
	ctx, span := l.tracer.Start(ctx, spanBorrow, trace.WithAttributes(
		attribute.String(spanAttrMemberID, memberID.String()),
		attribute.String(spanAttrBookID, bookID.String()),
	))
	defer span.End()

	var tr Transaction
	var remaining int
	err := l.store.InTx(ctx, func(tx StoreTx) error {
		member, err := tx.Member(ctx, memberID, true)
		if err != nil {
			return err
		}
		standing, err := memberStanding(ctx, tx, member)
		if err != nil {
			return err
		}
		if err := CanBorrow(standing); err != nil {
			return err
		}

		book, err := tx.Book(ctx, bookID, true)
		if err != nil {
			return err
		}
		if err := IsAvailable(book); err != nil {
			return err
		}

		now := l.now()
		tr = Transaction{
			ID:         uuid.New(),
			MemberID:   member.ID,
			BookID:     book.ID,
			BorrowedAt: now,
			DueDate:    ComputeDueDate(now),
			Status:     TransactionActive,
		}
		if err := tx.InsertTransaction(ctx, tr); err != nil {
			return err
		}

		remaining = book.AvailableCopies - 1
		return tx.UpdateBookInventory(ctx, book.ID, remaining, nextBookStatus(remaining), now)
	})
	if err != nil {
		l.fail(span, spanBorrow, err, logAttrMemberID, memberID, logAttrBookID, bookID)
		return Transaction{}, err
	}

	span.SetAttributes(attribute.String(spanAttrTransaction, tr.ID.String()))
	span.SetStatus(codes.Ok, "")
	l.logInfo(logMsgBorrowed,
		logAttrTransactionID, tr.ID,
		logAttrMemberID, memberID,
		logAttrBookID, bookID,
		logAttrDueDate, tr.DueDate,
		logAttrAvailableCopies, remaining,
	)
	return tr, nil
}

// Return closes transactionID, records a fine when the book is late, puts the copy back on the
// shelf, and reinstates the member once their overdue count is below the suspension threshold.
func (l *Lender) Return(ctx context.Context, transactionID uuid.UUID) (ReturnResult, error) {
	ctx, span := l.tracer.Start(ctx, spanReturn, trace.WithAttributes(
		attribute.String(spanAttrTransaction, transactionID.String()),
	))
	defer span.End()

	var res ReturnResult
	var reinstated bool
	err := l.store.InTx(ctx, func(tx StoreTx) error {
		tr, err := tx.Transaction(ctx, transactionID, true)
		if err != nil {
			return err
		}
		if !tr.Status.Open() {
			return ErrAlreadyReturned
		}
		member, err := tx.Member(ctx, tr.MemberID, true)
		if err != nil {
			return err
		}
		book, err := tx.Book(ctx, tr.BookID, true)
		if err != nil {
			return err
		}

		now := l.now()
		if amount := ComputeFine(tr.DueDate, now); amount.IsPositive() {
			fine := Fine{
				ID:            uuid.New(),
				MemberID:      tr.MemberID,
				TransactionID: tr.ID,
				Amount:        amount,
				CreatedAt:     now,
			}
			if err := tx.InsertFine(ctx, fine); err != nil {
				return err
			}
			res.Fine = &fine
		}

		if err := tx.MarkReturned(ctx, tr.ID, now); err != nil {
			return err
		}
		tr.ReturnedAt = &now
		tr.Status = TransactionReturned
		res.Transaction = tr

		// The copy goes back as AVAILABLE even when the book was RESERVED or MAINTENANCE before.
		book.AvailableCopies++
		book.Status = BookAvailable
		book.UpdatedAt = now
		if err := tx.UpdateBookInventory(ctx, book.ID, book.AvailableCopies, book.Status, now); err != nil {
			return err
		}
		res.Book = book

		overdue, err := tx.CountTransactions(ctx, member.ID, TransactionOverdue)
		if err != nil {
			return err
		}
		reinstated = ShouldReinstate(member, overdue)
		if reinstated {
			return tx.SetMemberStatus(ctx, member.ID, MemberActive, now)
		}
		return nil
	})
	if err != nil {
		l.fail(span, spanReturn, err, logAttrTransactionID, transactionID)
		return ReturnResult{}, err
	}

	span.SetAttributes(attribute.Bool(spanAttrFined, res.Fine != nil))
	span.SetStatus(codes.Ok, "")
	l.logInfo(logMsgReturned,
		logAttrTransactionID, transactionID,
		logAttrMemberID, res.Transaction.MemberID,
		logAttrBookID, res.Book.ID,
		logAttrAvailableCopies, res.Book.AvailableCopies,
	)
	if res.Fine != nil {
		l.logInfo(logMsgFineRecorded,
			logAttrFineID, res.Fine.ID,
			logAttrMemberID, res.Fine.MemberID,
			logAttrFineAmount, res.Fine.Amount.StringFixed(2),
		)
	}
	if reinstated {
		l.logInfo(logMsgMemberReinstated, logAttrMemberID, res.Transaction.MemberID)
	}
	return res, nil
}

// SweepOverdue marks every ACTIVE transaction past its due date as OVERDUE and suspends members
// who reach the suspension threshold. It never lifts a suspension. The result is every OVERDUE
// transaction, earliest due date first. Running it twice in a row changes nothing the second time.
func (l *Lender) SweepOverdue(ctx context.Context) ([]Loan, error) {
	ctx, span := l.tracer.Start(ctx, spanSweepOverdue)
	defer span.End()

	var loans []Loan
	var marked int64
	var suspended []uuid.UUID
	err := l.store.InTx(ctx, func(tx StoreTx) error {
		now := l.now()
		candidates, err := tx.OverdueCandidates(ctx, now)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(candidates))
		var memberIDs []uuid.UUID
		for _, tr := range candidates {
			ids = append(ids, tr.ID)
			if !slices.Contains(memberIDs, tr.MemberID) {
				memberIDs = append(memberIDs, tr.MemberID)
			}
		}
		if marked, err = tx.MarkOverdue(ctx, ids); err != nil {
			return err
		}

		// Fixed order keeps member row locks consistent across concurrent sweeps.
		slices.SortFunc(memberIDs, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
		for _, memberID := range memberIDs {
			overdue, err := tx.CountTransactions(ctx, memberID, TransactionOverdue)
			if err != nil {
				return err
			}
			if !ShouldSuspend(overdue) {
				continue
			}
			member, err := tx.Member(ctx, memberID, true)
			if err != nil {
				return err
			}
			if member.Status == MemberSuspended {
				continue
			}
			if err := tx.SetMemberStatus(ctx, memberID, MemberSuspended, now); err != nil {
				return err
			}
			suspended = append(suspended, memberID)
		}

		overdue, err := tx.Transactions(ctx, TransactionFilter{
			Statuses: []TransactionStatus{TransactionOverdue},
			Order:    OrderEarliestDueFirst,
		})
		if err != nil {
			return err
		}
		loans, err = tx.Loans(ctx, overdue)
		return err
	})
	if err != nil {
		l.fail(span, spanSweepOverdue, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64(spanAttrMarked, marked),
		attribute.Int(spanAttrOverdueTotal, len(loans)),
	)
	span.SetStatus(codes.Ok, "")
	for _, memberID := range suspended {
		l.logInfo(logMsgMemberSuspended, logAttrMemberID, memberID)
	}
	l.logInfo(logMsgSweepCompleted, logAttrCount, marked, logAttrOverdueCount, len(loans))
	return loans, nil
}

// CheckBorrow reports whether memberID could borrow right now, without changing anything.
// It applies the same rules as Borrow outside any transaction, so it never waits on a writer;
// a concurrent operation may still change the outcome.
func (l *Lender) CheckBorrow(ctx context.Context, memberID uuid.UUID) (Standing, error) {
	var standing Standing
	err := l.store.View(ctx, func(tx StoreTx) error {
		member, err := tx.Member(ctx, memberID, false)
		if err != nil {
			return err
		}
		standing, err = memberStanding(ctx, tx, member)
		return err
	})
	if err != nil {
		return Standing{}, err
	}
	return standing, CanBorrow(standing)
}

// CheckAvailability reports whether a copy of bookID could be lent right now.
func (l *Lender) CheckAvailability(ctx context.Context, bookID uuid.UUID) (Book, error) {
	var book Book
	err := l.store.View(ctx, func(tx StoreTx) error {
		var err error
		book, err = tx.Book(ctx, bookID, false)
		return err
	})
	if err != nil {
		return Book{}, err
	}
	return book, IsAvailable(book)
}

func memberStanding(ctx context.Context, tx StoreTx, member Member) (Standing, error) {
	unpaid, err := tx.CountUnpaidFines(ctx, member.ID)
	if err != nil {
		return Standing{}, err
	}
	open, err := tx.CountTransactions(ctx, member.ID, openStatuses...)
	if err != nil {
		return Standing{}, err
	}
	return Standing{Member: member, UnpaidFines: unpaid, OpenLoans: open}, nil
}

func (l *Lender) fail(span trace.Span, operation string, err error, args ...any) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if code, ok := CodeOf(err); ok {
		span.SetAttributes(attribute.String(spanAttrErrorCode, string(code)))
		return
	}
	if l.logger != nil {
		l.logger.Error(logMsgOperationFailed, append([]any{logAttrOperation, operation, logAttrError, err.Error()}, args...)...)
	}
}

func (l *Lender) logInfo(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}
