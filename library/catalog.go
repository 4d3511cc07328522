package library

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

// NewBook is the input for adding a title to the catalog.
type NewBook struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Category    string `json:"category"`
	TotalCopies int    `json:"total_copies"`
}

func (in NewBook) validate() error {
	var p problems
	p.require(!blank(in.ISBN), "ISBN is required")
	p.require(!blank(in.Title), "title is required")
	p.require(!blank(in.Author), "author is required")
	p.require(!blank(in.Category), "category is required")
	p.require(in.TotalCopies >= 1, "total copies must be a positive number")
	p.require(blank(in.ISBN) || ValidISBN(in.ISBN), "invalid ISBN format")
	return p.err()
}

// BookPatch changes the non-nil fields of a book.
type BookPatch struct {
	ISBN        *string     `json:"isbn,omitempty"`
	Title       *string     `json:"title,omitempty"`
	Author      *string     `json:"author,omitempty"`
	Category    *string     `json:"category,omitempty"`
	TotalCopies *int        `json:"total_copies,omitempty"`
	Status      *BookStatus `json:"status,omitempty"`
}

func (in BookPatch) validate() error {
	var p problems
	p.require(in.ISBN == nil || ValidISBN(*in.ISBN), "invalid ISBN format")
	p.require(in.Title == nil || !blank(*in.Title), "title must not be empty")
	p.require(in.Author == nil || !blank(*in.Author), "author must not be empty")
	p.require(in.Category == nil || !blank(*in.Category), "category must not be empty")
	p.require(in.TotalCopies == nil || *in.TotalCopies >= 1, "total copies must be a positive number")
	p.require(in.Status == nil || in.Status.Valid(), "invalid book status")
	return p.err()
}

// BookFilter narrows a catalog listing. Author and title match case-insensitive substrings.
type BookFilter struct {
	Status   BookStatus
	Category string
	Author   string
	Title    string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsFold matches rows where col contains value, ignoring case. LIKE wildcards in value are
// matched literally.
func (d *Database) containsFold(col, value string) goqu.Expression {
	pattern := "%" + likeEscaper.Replace(value) + "%"
	if d.driver != DriverSQLite {
		return goqu.L(`? ILIKE ? ESCAPE '\'`, goqu.C(col), pattern)
	}
	return goqu.L(`fold(?) LIKE ? ESCAPE '\'`, goqu.C(col), strings.ToLower(pattern))
}

// CreateBook adds a title with all of its copies on the shelf.
func (d *Database) CreateBook(ctx context.Context, in NewBook) (Book, error) {
	if err := in.validate(); err != nil {
		return Book{}, err
	}
	now := d.now()
	b := Book{
		ID:              uuid.New(),
		ISBN:            strings.TrimSpace(in.ISBN),
		Title:           strings.TrimSpace(in.Title),
		Author:          strings.TrimSpace(in.Author),
		Category:        strings.TrimSpace(in.Category),
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
		Status:          BookAvailable,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s := d.session()
	_, err := s.exec(ctx, d.dialect.Insert(tableBooks).Prepared(true).Rows(goqu.Record{
		"id":               b.ID.String(),
		"isbn":             b.ISBN,
		"title":            b.Title,
		"author":           b.Author,
		"category":         b.Category,
		"total_copies":     b.TotalCopies,
		"available_copies": b.AvailableCopies,
		"status":           string(b.Status),
		"created_at":       b.CreatedAt,
		"updated_at":       b.UpdatedAt,
	}))
	if err != nil {
		return Book{}, err
	}
	return b, nil
}

// ListBooks returns the catalog ordered by title.
func (d *Database) ListBooks(ctx context.Context, f BookFilter) ([]Book, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, newError(CodeInvalidInput, "invalid book status %q", f.Status)
	}
	ds := d.dialect.From(tableBooks).Select(bookColumns...)
	if f.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(f.Status)))
	}
	if f.Category != "" {
		ds = ds.Where(goqu.C("category").Eq(f.Category))
	}
	if f.Author != "" {
		ds = ds.Where(d.containsFold("author", f.Author))
	}
	if f.Title != "" {
		ds = ds.Where(d.containsFold("title", f.Title))
	}

	books := []Book{}
	if err := d.session().selectAll(ctx, &books, ds.Order(goqu.C("title").Asc(), goqu.C("id").Asc())); err != nil {
		return nil, err
	}
	return books, nil
}

// ListAvailableBooks returns the titles that can be borrowed right now.
func (d *Database) ListAvailableBooks(ctx context.Context) ([]Book, error) {
	ds := d.dialect.From(tableBooks).Select(bookColumns...).Where(
		goqu.C("status").Eq(string(BookAvailable)),
		goqu.C("available_copies").Gt(0),
	).Order(goqu.C("title").Asc(), goqu.C("id").Asc())

	books := []Book{}
	if err := d.session().selectAll(ctx, &books, ds); err != nil {
		return nil, err
	}
	return books, nil
}

// GetBook returns a book with the loans currently holding its copies.
func (d *Database) GetBook(ctx context.Context, id uuid.UUID) (BookDetail, error) {
	s := d.session()
	b, err := s.Book(ctx, id, false)
	if err != nil {
		return BookDetail{}, err
	}
	txs, err := s.Transactions(ctx, TransactionFilter{BookID: &id, Statuses: openStatuses})
	if err != nil {
		return BookDetail{}, err
	}
	loans, err := s.Loans(ctx, txs)
	if err != nil {
		return BookDetail{}, err
	}
	return BookDetail{Book: b, Loans: loans}, nil
}

// UpdateBook applies patch. Changing total copies keeps the number of lent copies fixed and
// fails with COPIES_BELOW_BORROWED when the new total cannot cover them.
func (d *Database) UpdateBook(ctx context.Context, id uuid.UUID, patch BookPatch) (Book, error) {
	if err := patch.validate(); err != nil {
		return Book{}, err
	}

	var b Book
	err := d.inTx(ctx, func(tx *Tx) error {
		var err error
		if b, err = tx.Book(ctx, id, true); err != nil {
			return err
		}
		if patch.ISBN != nil {
			b.ISBN = strings.TrimSpace(*patch.ISBN)
		}
		if patch.Title != nil {
			b.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Author != nil {
			b.Author = strings.TrimSpace(*patch.Author)
		}
		if patch.Category != nil {
			b.Category = strings.TrimSpace(*patch.Category)
		}
		if patch.TotalCopies != nil {
			borrowed := b.TotalCopies - b.AvailableCopies
			if *patch.TotalCopies < borrowed {
				return newError(CodeCopiesBelowBorrowed,
					"cannot reduce total copies below %d (currently borrowed)", borrowed)
			}
			b.TotalCopies = *patch.TotalCopies
			b.AvailableCopies = b.TotalCopies - borrowed
			switch {
			case b.AvailableCopies > 0:
				b.Status = BookAvailable
			case b.Status == BookAvailable:
				b.Status = BookBorrowed
			}
		}
		if patch.Status != nil {
			b.Status = *patch.Status
		}
		b.UpdatedAt = d.now()

		_, err = tx.exec(ctx, d.dialect.Update(tableBooks).Prepared(true).Set(goqu.Record{
			"isbn":             b.ISBN,
			"title":            b.Title,
			"author":           b.Author,
			"category":         b.Category,
			"total_copies":     b.TotalCopies,
			"available_copies": b.AvailableCopies,
			"status":           string(b.Status),
			"updated_at":       b.UpdatedAt,
		}).Where(goqu.C("id").Eq(id.String())))
		return err
	})
	if err != nil {
		return Book{}, err
	}
	return b, nil
}

// DeleteBook removes a book that no transaction refers to.
func (d *Database) DeleteBook(ctx context.Context, id uuid.UUID) error {
	return d.inTx(ctx, func(tx *Tx) error {
		if _, err := tx.Book(ctx, id, true); err != nil {
			return err
		}
		history := d.dialect.From(tableTransactions).Where(goqu.C("book_id").Eq(id.String()))
		open, err := tx.count(ctx, history.Where(goqu.C("status").In(statusStrings(openStatuses))))
		if err != nil {
			return err
		}
		if open > 0 {
			return ErrBookInUse
		}
		total, err := tx.count(ctx, history)
		if err != nil {
			return err
		}
		if total > 0 {
			return newError(CodeBookInUse, "cannot delete book with transaction history")
		}
		_, err = tx.exec(ctx, d.dialect.Delete(tableBooks).Prepared(true).Where(goqu.C("id").Eq(id.String())))
		return err
	})
}
