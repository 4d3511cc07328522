package library

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMember(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	m, err := db.CreateMember(ctx, NewMember{Name: " Ada Lovelace ", Email: "ada@example.com", MembershipNumber: "LIB-001"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", m.Name)
	assert.Equal(t, MemberActive, m.Status)

	_, err = db.CreateMember(ctx, NewMember{Name: "Other", Email: "other@example.com", MembershipNumber: "LIB-001"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = db.CreateMember(ctx, NewMember{Name: "Bad", Email: "not-an-email", MembershipNumber: "LIB-002"})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "invalid email format")

	_, err = db.CreateMember(ctx, NewMember{})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "membership number is required")
}

func TestListMembersFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member(t, "Charlie")
	ada := f.member(t, "Ada")
	f.member(t, "Bea")
	suspended := MemberSuspended
	_, err := f.db.UpdateMember(ctx, ada.ID, MemberPatch{Status: &suspended})
	require.NoError(t, err)

	all, err := f.db.ListMembers(ctx, MemberFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Ada", "Bea", "Charlie"}, []string{all[0].Name, all[1].Name, all[2].Name})

	byStatus, err := f.db.ListMembers(ctx, MemberFilter{Status: MemberSuspended})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, ada.ID, byStatus[0].ID)

	byName, err := f.db.ListMembers(ctx, MemberFilter{Name: "CHAR"})
	require.NoError(t, err)
	assert.Len(t, byName, 1)

	byEmail, err := f.db.ListMembers(ctx, MemberFilter{Email: ada.Email})
	require.NoError(t, err)
	assert.Len(t, byEmail, 1)
}

func TestListMembersMatchesLiterallyIgnoringCase(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	for i, in := range []NewMember{
		{Name: "Élodie Durand", Email: "elodie_d@example.com"},
		{Name: "Eloise Dahl", Email: "eloisexd@example.com"},
		{Name: "Ruth 100%", Email: "ruth@example.com"},
	} {
		in.MembershipNumber = fmt.Sprintf("LIB-%03d", i)
		_, err := db.CreateMember(ctx, in)
		require.NoError(t, err)
	}

	byEmail, err := db.ListMembers(ctx, MemberFilter{Email: "_d@"})
	require.NoError(t, err)
	require.Len(t, byEmail, 1, "underscore must not match any character")
	assert.Equal(t, "Élodie Durand", byEmail[0].Name)

	byName, err := db.ListMembers(ctx, MemberFilter{Name: "éLODIE"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Élodie Durand", byName[0].Name)

	percent, err := db.ListMembers(ctx, MemberFilter{Name: "%"})
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, "Ruth 100%", percent[0].Name)
}

func TestGetMemberDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, "Ada")
	_, err := f.lender.Borrow(ctx, m.ID, f.book(t, "Kept", 1).ID)
	require.NoError(t, err)
	late, err := f.lender.Borrow(ctx, m.ID, f.book(t, "Late", 1).ID)
	require.NoError(t, err)
	f.clock.Advance(20 * day)
	_, err = f.lender.Return(ctx, late.ID)
	require.NoError(t, err)

	detail, err := f.db.GetMember(ctx, m.ID)

	require.NoError(t, err)
	require.Len(t, detail.Loans, 1)
	assert.Equal(t, "Kept", detail.Loans[0].Book.Title)
	require.Len(t, detail.UnpaidFines, 1)
	assert.Equal(t, late.ID, detail.UnpaidFines[0].TransactionID)
}

func TestMemberLoansNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, "Ada")
	older, err := f.lender.Borrow(ctx, m.ID, f.book(t, "Older", 1).ID)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	newer, err := f.lender.Borrow(ctx, m.ID, f.book(t, "Newer", 1).ID)
	require.NoError(t, err)

	loans, err := f.db.MemberLoans(ctx, m.ID)

	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, newer.ID, loans[0].ID)
	assert.Equal(t, older.ID, loans[1].ID)
	assert.Equal(t, "Newer", loans[0].Book.Title)
}

func TestUpdateMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, "Ada")

	email := "ada@analytical.engine"
	updated, err := f.db.UpdateMember(ctx, m.ID, MemberPatch{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)
	assert.Equal(t, "Ada", updated.Name)

	bad := "nope"
	_, err = f.db.UpdateMember(ctx, m.ID, MemberPatch{Email: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	banned := MemberStatus("BANNED")
	_, err = f.db.UpdateMember(ctx, m.ID, MemberPatch{Status: &banned})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	borrower := f.member(t, "Ada")
	idle := f.member(t, "Bea")
	tr, err := f.lender.Borrow(ctx, borrower.ID, f.book(t, "Lent", 1).ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.db.DeleteMember(ctx, borrower.ID), ErrMemberInUse)

	f.clock.Advance(20 * day)
	res, err := f.lender.Return(ctx, tr.ID)
	require.NoError(t, err)
	err = f.db.DeleteMember(ctx, borrower.ID)
	require.ErrorIs(t, err, ErrMemberInUse)
	assert.Contains(t, err.Error(), "unpaid fines")

	_, err = f.db.PayFine(ctx, res.Fine.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.db.DeleteMember(ctx, borrower.ID), ErrMemberInUse, "history still refers to the member")

	require.NoError(t, f.db.DeleteMember(ctx, idle.ID))
	_, err = f.db.GetMember(ctx, idle.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a@b.co"))
	assert.False(t, ValidEmail("a@b"))
	assert.False(t, ValidEmail("a b@c.de"))
	assert.False(t, ValidEmail("@c.de"))
}
