package library

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

// NewMember is the input for registering a member.
type NewMember struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	MembershipNumber string `json:"membership_number"`
}

func (in NewMember) validate() error {
	var p problems
	p.require(!blank(in.Name), "name is required")
	p.require(!blank(in.Email), "email is required")
	p.require(!blank(in.MembershipNumber), "membership number is required")
	p.require(blank(in.Email) || ValidEmail(in.Email), "invalid email format")
	return p.err()
}

// MemberPatch changes the non-nil fields of a member. Setting the status by hand is how a
// librarian lifts or imposes a suspension outside the lending rules.
type MemberPatch struct {
	Name   *string       `json:"name,omitempty"`
	Email  *string       `json:"email,omitempty"`
	Status *MemberStatus `json:"status,omitempty"`
}

func (in MemberPatch) validate() error {
	var p problems
	p.require(in.Name == nil || !blank(*in.Name), "name must not be empty")
	p.require(in.Email == nil || ValidEmail(*in.Email), "invalid email format")
	p.require(in.Status == nil || in.Status.Valid(), "invalid member status")
	return p.err()
}

// MemberFilter narrows a member listing. Name and email match case-insensitive substrings.
type MemberFilter struct {
	Status MemberStatus
	Name   string
	Email  string
}

// CreateMember registers an ACTIVE member. The membership number must be unique.
func (d *Database) CreateMember(ctx context.Context, in NewMember) (Member, error) {
	if err := in.validate(); err != nil {
		return Member{}, err
	}
	now := d.now()
	m := Member{
		ID:               uuid.New(),
		Name:             strings.TrimSpace(in.Name),
		Email:            strings.TrimSpace(in.Email),
		MembershipNumber: strings.TrimSpace(in.MembershipNumber),
		Status:           MemberActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	_, err := d.session().exec(ctx, d.dialect.Insert(tableMembers).Prepared(true).Rows(goqu.Record{
		"id":                m.ID.String(),
		"name":              m.Name,
		"email":             m.Email,
		"membership_number": m.MembershipNumber,
		"status":            string(m.Status),
		"created_at":        m.CreatedAt,
		"updated_at":        m.UpdatedAt,
	}))
	if err != nil {
		return Member{}, err
	}
	return m, nil
}

// ListMembers returns members ordered by name.
func (d *Database) ListMembers(ctx context.Context, f MemberFilter) ([]Member, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, newError(CodeInvalidInput, "invalid member status %q", f.Status)
	}
	ds := d.dialect.From(tableMembers).Select(memberColumns...)
	if f.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(f.Status)))
	}
	if f.Name != "" {
		ds = ds.Where(d.containsFold("name", f.Name))
	}
	if f.Email != "" {
		ds = ds.Where(d.containsFold("email", f.Email))
	}

	members := []Member{}
	if err := d.session().selectAll(ctx, &members, ds.Order(goqu.C("name").Asc(), goqu.C("id").Asc())); err != nil {
		return nil, err
	}
	return members, nil
}

// GetMember returns a member with their open loans and unpaid fines.
func (d *Database) GetMember(ctx context.Context, id uuid.UUID) (MemberDetail, error) {
	s := d.session()
	m, err := s.Member(ctx, id, false)
	if err != nil {
		return MemberDetail{}, err
	}
	txs, err := s.Transactions(ctx, TransactionFilter{MemberID: &id, Statuses: openStatuses})
	if err != nil {
		return MemberDetail{}, err
	}
	loans, err := s.Loans(ctx, txs)
	if err != nil {
		return MemberDetail{}, err
	}
	unpaid := false
	fines, err := s.Fines(ctx, FineFilter{MemberID: &id, Paid: &unpaid})
	if err != nil {
		return MemberDetail{}, err
	}
	return MemberDetail{Member: m, Loans: loans, UnpaidFines: fines}, nil
}

// MemberLoans returns the member's open loans, most recent borrow first.
func (d *Database) MemberLoans(ctx context.Context, id uuid.UUID) ([]Loan, error) {
	s := d.session()
	if _, err := s.Member(ctx, id, false); err != nil {
		return nil, err
	}
	txs, err := s.Transactions(ctx, TransactionFilter{
		MemberID: &id,
		Statuses: openStatuses,
		Order:    OrderNewestBorrowFirst,
	})
	if err != nil {
		return nil, err
	}
	return s.Loans(ctx, txs)
}

// UpdateMember applies patch.
func (d *Database) UpdateMember(ctx context.Context, id uuid.UUID, patch MemberPatch) (Member, error) {
	if err := patch.validate(); err != nil {
		return Member{}, err
	}

	var m Member
	err := d.inTx(ctx, func(tx *Tx) error {
		var err error
		if m, err = tx.Member(ctx, id, true); err != nil {
			return err
		}
		if patch.Name != nil {
			m.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Email != nil {
			m.Email = strings.TrimSpace(*patch.Email)
		}
		if patch.Status != nil {
			m.Status = *patch.Status
		}
		m.UpdatedAt = d.now()

		_, err = tx.exec(ctx, d.dialect.Update(tableMembers).Prepared(true).Set(goqu.Record{
			"name":       m.Name,
			"email":      m.Email,
			"status":     string(m.Status),
			"updated_at": m.UpdatedAt,
		}).Where(goqu.C("id").Eq(id.String())))
		return err
	})
	if err != nil {
		return Member{}, err
	}
	return m, nil
}

// DeleteMember removes a member with no open loans, no unpaid fines, and no lending history.
func (d *Database) DeleteMember(ctx context.Context, id uuid.UUID) error {
	return d.inTx(ctx, func(tx *Tx) error {
		if _, err := tx.Member(ctx, id, true); err != nil {
			return err
		}
		open, err := tx.CountTransactions(ctx, id, openStatuses...)
		if err != nil {
			return err
		}
		if open > 0 {
			return newError(CodeMemberInUse, "cannot delete member with active transactions")
		}
		unpaid, err := tx.CountUnpaidFines(ctx, id)
		if err != nil {
			return err
		}
		if unpaid > 0 {
			return newError(CodeMemberInUse, "cannot delete member with unpaid fines")
		}
		history, err := tx.count(ctx, d.dialect.From(tableTransactions).Where(goqu.C("member_id").Eq(id.String())))
		if err != nil {
			return err
		}
		if history > 0 {
			return newError(CodeMemberInUse, "cannot delete member with transaction history")
		}
		_, err = tx.exec(ctx, d.dialect.Delete(tableMembers).Prepared(true).Where(goqu.C("id").Eq(id.String())))
		return err
	})
}
