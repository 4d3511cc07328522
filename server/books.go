package server

import (
	"net/http"

	"github.com/google/uuid"

	"library-lending/library"
)

func (h *handler) createBook(w http.ResponseWriter, r *http.Request) {
	var in library.NewBook
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	book, err := h.lib.CreateBook(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *handler) listBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	books, err := h.lib.ListBooks(r.Context(), library.BookFilter{
		Status:   library.BookStatus(q.Get("status")),
		Category: q.Get("category"),
		Author:   q.Get("author"),
		Title:    q.Get("title"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *handler) listAvailableBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.lib.ListAvailableBooks(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *handler) getBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	book, err := h.lib.GetBook(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

type availability struct {
	BookID          uuid.UUID          `json:"book_id"`
	Available       bool               `json:"available"`
	AvailableCopies int                `json:"available_copies"`
	Status          library.BookStatus `json:"status"`
	Reason          library.Code       `json:"reason,omitempty"`
}

func (h *handler) bookAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	book, err := h.lib.CheckAvailability(r.Context(), id)
	code, _ := library.CodeOf(err)
	if err != nil && code != library.CodeBookNotAvailable {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availability{
		BookID:          book.ID,
		Available:       err == nil,
		AvailableCopies: book.AvailableCopies,
		Status:          book.Status,
		Reason:          code,
	})
}

func (h *handler) updateBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var patch library.BookPatch
	if err := decode(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	book, err := h.lib.UpdateBook(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.lib.DeleteBook(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
