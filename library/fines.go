package library

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

// FineFilter narrows a fine listing. A nil Paid matches paid and unpaid fines.
type FineFilter struct {
	MemberID *uuid.UUID
	Paid     *bool
}

// Fines lists fines matching f, newest first.
func (t *Tx) Fines(ctx context.Context, f FineFilter) ([]Fine, error) {
	ds := t.dialect.From(tableFines).Select(fineColumns...)
	if f.MemberID != nil {
		ds = ds.Where(goqu.C("member_id").Eq(f.MemberID.String()))
	}
	if f.Paid != nil {
		if *f.Paid {
			ds = ds.Where(goqu.C("paid_at").IsNotNull())
		} else {
			ds = ds.Where(goqu.C("paid_at").IsNull())
		}
	}

	fines := []Fine{}
	if err := t.selectAll(ctx, &fines, ds.Order(goqu.C("created_at").Desc(), goqu.C("id").Asc())); err != nil {
		return nil, err
	}
	return fines, nil
}

func (t *Tx) fineDetails(ctx context.Context, fines []Fine) ([]FineDetail, error) {
	txIDs := make([]uuid.UUID, len(fines))
	for i, f := range fines {
		txIDs[i] = f.TransactionID
	}
	var txs []Transaction
	if len(txIDs) > 0 {
		ds := t.dialect.From(tableTransactions).Select(transactionColumns...).Where(goqu.C("id").In(idStrings(txIDs)))
		if err := t.selectAll(ctx, &txs, ds); err != nil {
			return nil, err
		}
	}
	loans, err := t.Loans(ctx, txs)
	if err != nil {
		return nil, err
	}
	byTx := make(map[uuid.UUID]Loan, len(loans))
	for _, l := range loans {
		byTx[l.ID] = l
	}

	out := make([]FineDetail, len(fines))
	for i, f := range fines {
		l := byTx[f.TransactionID]
		out[i] = FineDetail{Fine: f, Member: l.Member, Transaction: l.Transaction, Book: l.Book}
	}
	return out, nil
}

// ListFines returns fines matching f with the member and book involved, newest first.
func (d *Database) ListFines(ctx context.Context, f FineFilter) ([]FineDetail, error) {
	s := d.session()
	fines, err := s.Fines(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.fineDetails(ctx, fines)
}

// GetFine returns one fine with the member and book involved.
func (d *Database) GetFine(ctx context.Context, id uuid.UUID) (FineDetail, error) {
	s := d.session()
	f, err := s.Fine(ctx, id, false)
	if err != nil {
		return FineDetail{}, err
	}
	details, err := s.fineDetails(ctx, []Fine{f})
	if err != nil {
		return FineDetail{}, err
	}
	return details[0], nil
}

// PayFine records payment of a fine. A fine is paid at most once.
func (d *Database) PayFine(ctx context.Context, id uuid.UUID) (Fine, error) {
	var f Fine
	err := d.inTx(ctx, func(tx *Tx) error {
		var err error
		if f, err = tx.Fine(ctx, id, true); err != nil {
			return err
		}
		if f.Paid() {
			return ErrFineAlreadyPaid
		}
		now := d.now()
		n, err := tx.exec(ctx, d.dialect.Update(tableFines).Prepared(true).
			Set(goqu.Record{"paid_at": now}).
			Where(goqu.C("id").Eq(id.String()), goqu.C("paid_at").IsNull()))
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrFineAlreadyPaid
		}
		f.PaidAt = &now
		return nil
	})
	if err != nil {
		return Fine{}, err
	}
	return f, nil
}
