package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"library-lending/library"
)

type borrowRequest struct {
	MemberID string `json:"memberId"`
	BookID   string `json:"bookId"`
}

func (h *handler) borrow(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.MemberID == "" || req.BookID == "" {
		h.writeError(w, r, invalid("memberId and bookId are required"))
		return
	}
	memberID, err := uuid.Parse(req.MemberID)
	if err != nil {
		h.writeError(w, r, invalid("invalid memberId %q", req.MemberID))
		return
	}
	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		h.writeError(w, r, invalid("invalid bookId %q", req.BookID))
		return
	}

	tr, err := h.lib.Borrow(r.Context(), memberID, bookID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tr)
}

func (h *handler) returnBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.lib.Return(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) overdue(w http.ResponseWriter, r *http.Request) {
	loans, err := h.lib.Overdue(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	loan, err := h.lib.GetTransaction(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// listTransactions accepts memberId, bookId and a comma separated status list.
func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	var (
		f   library.TransactionFilter
		err error
	)
	if f.MemberID, err = queryID(r, "memberId"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if f.BookID, err = queryID(r, "bookId"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			f.Statuses = append(f.Statuses, library.TransactionStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}

	loans, err := h.lib.ListTransactions(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}
