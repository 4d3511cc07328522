// Package server exposes the library over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"library-lending/library"
)

// Library is what the HTTP layer needs from the domain. *library.LibraryManager implements it.
type Library interface {
	Ping(ctx context.Context) error

	CreateBook(ctx context.Context, in library.NewBook) (library.Book, error)
	ListBooks(ctx context.Context, f library.BookFilter) ([]library.Book, error)
	ListAvailableBooks(ctx context.Context) ([]library.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (library.BookDetail, error)
	UpdateBook(ctx context.Context, id uuid.UUID, patch library.BookPatch) (library.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	CheckAvailability(ctx context.Context, id uuid.UUID) (library.Book, error)

	CreateMember(ctx context.Context, in library.NewMember) (library.Member, error)
	ListMembers(ctx context.Context, f library.MemberFilter) ([]library.Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (library.MemberDetail, error)
	MemberLoans(ctx context.Context, id uuid.UUID) ([]library.Loan, error)
	UpdateMember(ctx context.Context, id uuid.UUID, patch library.MemberPatch) (library.Member, error)
	DeleteMember(ctx context.Context, id uuid.UUID) error
	CheckBorrow(ctx context.Context, id uuid.UUID) (library.Standing, error)

	Borrow(ctx context.Context, memberID, bookID uuid.UUID) (library.Transaction, error)
	Return(ctx context.Context, transactionID uuid.UUID) (library.ReturnResult, error)
	Overdue(ctx context.Context) ([]library.Loan, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (library.Loan, error)
	ListTransactions(ctx context.Context, f library.TransactionFilter) ([]library.Loan, error)

	ListFines(ctx context.Context, f library.FineFilter) ([]library.FineDetail, error)
	GetFine(ctx context.Context, id uuid.UUID) (library.FineDetail, error)
	PayFine(ctx context.Context, id uuid.UUID) (library.Fine, error)
}

var _ Library = (*library.LibraryManager)(nil)

type handler struct {
	lib    Library
	logger library.Logger
}

// NewRouter builds the HTTP API. logger may be nil.
func NewRouter(lib Library, logger library.Logger) http.Handler {
	h := &handler{lib: lib, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if logger != nil {
		r.Use(middleware.RequestLogger(requestLogger{logger: logger}))
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Get("/db-health", h.dbHealth)

	r.Route("/books", func(r chi.Router) {
		r.Post("/", h.createBook)
		r.Get("/", h.listBooks)
		r.Get("/available", h.listAvailableBooks)
		r.Get("/{id}", h.getBook)
		r.Get("/{id}/availability", h.bookAvailability)
		r.Put("/{id}", h.updateBook)
		r.Delete("/{id}", h.deleteBook)
	})

	r.Route("/members", func(r chi.Router) {
		r.Post("/", h.createMember)
		r.Get("/", h.listMembers)
		r.Get("/{id}", h.getMember)
		r.Get("/{id}/borrowed", h.memberLoans)
		r.Get("/{id}/eligibility", h.memberEligibility)
		r.Put("/{id}", h.updateMember)
		r.Delete("/{id}", h.deleteMember)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.listTransactions)
		r.Post("/borrow", h.borrow)
		r.Get("/overdue", h.overdue)
		r.Get("/{id}", h.getTransaction)
		r.Post("/{id}/return", h.returnBook)
	})

	r.Route("/fines", func(r chi.Router) {
		r.Get("/", h.listFines)
		r.Get("/{id}", h.getFine)
		r.Post("/{id}/pay", h.payFine)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":  "route not found",
			"path":   r.URL.Path,
			"method": r.Method,
		})
	})

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "library lending API is running",
	})
}

func (h *handler) dbHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.lib.Ping(r.Context()); err != nil {
		h.logError(r, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "error",
			"error":  "database unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "connected"})
}
