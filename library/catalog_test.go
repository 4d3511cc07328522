package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookValidation(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewBook
		msg  string
	}{
		{"missing fields", NewBook{}, "ISBN is required"},
		{"zero copies", NewBook{ISBN: "0-306-40615-2", Title: "T", Author: "A", Category: "C"}, "total copies must be a positive number"},
		{"bad isbn", NewBook{ISBN: "12345", Title: "T", Author: "A", Category: "C", TotalCopies: 1}, "invalid ISBN format"},
		{"letters in isbn", NewBook{ISBN: "978-0-30X-40615-7", Title: "T", Author: "A", Category: "C", TotalCopies: 1}, "invalid ISBN format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.CreateBook(ctx, tt.in)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCreateBookStartsFullyAvailable(t *testing.T) {
	db := tempDB(t)

	b, err := db.CreateBook(context.Background(), NewBook{
		ISBN: "978-0-06-051275-3", Title: "The Left Hand of Darkness", Author: "Le Guin", Category: "SF", TotalCopies: 4,
	})

	require.NoError(t, err)
	assert.Equal(t, 4, b.AvailableCopies)
	assert.Equal(t, BookAvailable, b.Status)

	_, err = db.CreateBook(context.Background(), NewBook{
		ISBN: "978-0-06-051275-3", Title: "Copy", Author: "Someone", Category: "SF", TotalCopies: 1,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestListBooksFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, in := range []NewBook{
		{ISBN: "9780000000101", Title: "Neuromancer", Author: "William Gibson", Category: "SF", TotalCopies: 1},
		{ISBN: "9780000000102", Title: "Count Zero", Author: "William Gibson", Category: "SF", TotalCopies: 1},
		{ISBN: "9780000000103", Title: "Middlemarch", Author: "George Eliot", Category: "Classic", TotalCopies: 2},
	} {
		_, err := f.db.CreateBook(ctx, in)
		require.NoError(t, err)
	}

	all, err := f.db.ListBooks(ctx, BookFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Count Zero", all[0].Title, "ordered by title")

	byAuthor, err := f.db.ListBooks(ctx, BookFilter{Author: "gibson"})
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	byTitle, err := f.db.ListBooks(ctx, BookFilter{Title: "MARCH"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Middlemarch", byTitle[0].Title)

	byCategory, err := f.db.ListBooks(ctx, BookFilter{Category: "Classic"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	_, err = f.lender.Borrow(ctx, f.member(t, "Ada").ID, all[0].ID)
	require.NoError(t, err)

	borrowed, err := f.db.ListBooks(ctx, BookFilter{Status: BookBorrowed})
	require.NoError(t, err)
	require.Len(t, borrowed, 1)
	assert.Equal(t, all[0].ID, borrowed[0].ID)

	available, err := f.db.ListAvailableBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 2)

	_, err = f.db.ListBooks(ctx, BookFilter{Status: "LOST"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListBooksMatchesLiterallyIgnoringCase(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	for _, in := range []NewBook{
		{ISBN: "9780000000201", Title: "The Dispossessed", Author: "Ursula K. Le Guin", Category: "SF", TotalCopies: 1},
		{ISBN: "9780000000202", Title: "100% Pure", Author: "Ana_Ortiz", Category: "Food", TotalCopies: 1},
		{ISBN: "9780000000203", Title: "Éclair Recipes", Author: "Zoë Brûlée", Category: "Food", TotalCopies: 1},
	} {
		_, err := db.CreateBook(ctx, in)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter BookFilter
		want   []string
	}{
		{"percent is literal", BookFilter{Title: "%"}, []string{"100% Pure"}},
		{"underscore is literal", BookFilter{Title: "_"}, nil},
		{"underscore in author", BookFilter{Author: "a_o"}, []string{"100% Pure"}},
		{"accented lower matches upper", BookFilter{Title: "éclair"}, []string{"Éclair Recipes"}},
		{"accented upper matches lower", BookFilter{Author: "BRÛLÉE"}, []string{"Éclair Recipes"}},
		{"ascii case", BookFilter{Title: "DISPOSSESSED"}, []string{"The Dispossessed"}},
		{"backslash is literal", BookFilter{Title: `\`}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books, err := db.ListBooks(ctx, tt.filter)
			require.NoError(t, err)

			var titles []string
			for _, b := range books {
				titles = append(titles, b.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestGetBookShowsOpenLoans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, "Shared", 3)
	m := f.member(t, "Ada")
	tr, err := f.lender.Borrow(ctx, m.ID, b.ID)
	require.NoError(t, err)
	_, err = f.lender.Borrow(ctx, f.member(t, "Bea").ID, b.ID)
	require.NoError(t, err)
	_, err = f.lender.Return(ctx, tr.ID)
	require.NoError(t, err)

	detail, err := f.db.GetBook(ctx, b.ID)

	require.NoError(t, err)
	require.Len(t, detail.Loans, 1)
	assert.Equal(t, "Bea", detail.Loans[0].Member.Name)
	assert.Equal(t, 2, detail.AvailableCopies)
}

func TestUpdateBookCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, "Popular", 3)
	for _, name := range []string{"Ada", "Bea"} {
		_, err := f.lender.Borrow(ctx, f.member(t, name).ID, b.ID)
		require.NoError(t, err)
	}

	one := 1
	_, err := f.db.UpdateBook(ctx, b.ID, BookPatch{TotalCopies: &one})
	assert.ErrorIs(t, err, ErrCopiesBelowBorrowed)

	two := 2
	updated, err := f.db.UpdateBook(ctx, b.ID, BookPatch{TotalCopies: &two})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.AvailableCopies)
	assert.Equal(t, BookBorrowed, updated.Status)

	five := 5
	title := "Very Popular"
	updated, err = f.db.UpdateBook(ctx, b.ID, BookPatch{TotalCopies: &five, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.AvailableCopies)
	assert.Equal(t, BookAvailable, updated.Status)
	assert.Equal(t, "Very Popular", f.reload(t, b).Title)
	f.assertInventory(t)
}

func TestUpdateBookRejectsBadPatch(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "Plain", 1)
	lost := BookStatus("LOST")

	_, err := f.db.UpdateBook(context.Background(), b.ID, BookPatch{Status: &lost})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lent := f.book(t, "Lent", 1)
	unused := f.book(t, "Unused", 1)
	tr, err := f.lender.Borrow(ctx, f.member(t, "Ada").ID, lent.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.db.DeleteBook(ctx, lent.ID), ErrBookInUse)

	_, err = f.lender.Return(ctx, tr.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.db.DeleteBook(ctx, lent.ID), ErrBookInUse, "history still refers to it")

	require.NoError(t, f.db.DeleteBook(ctx, unused.ID))
	_, err = f.db.GetBook(ctx, unused.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestValidISBN(t *testing.T) {
	assert.True(t, ValidISBN("0-306-40615-2"))
	assert.True(t, ValidISBN("978 0 306 40615 7"))
	assert.True(t, ValidISBN("9780306406157"))
	assert.False(t, ValidISBN("97803064061"))
	assert.False(t, ValidISBN("978-0-306-40615-X"))
	assert.False(t, ValidISBN(""))
}
