package server

import (
	"net/http"
	"strconv"

	"library-lending/library"
)

func (h *handler) listFines(w http.ResponseWriter, r *http.Request) {
	var (
		f   library.FineFilter
		err error
	)
	if f.MemberID, err = queryID(r, "memberId"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if raw := r.URL.Query().Get("paid"); raw != "" {
		paid, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, invalid("invalid paid %q", raw))
			return
		}
		f.Paid = &paid
	}

	fines, err := h.lib.ListFines(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fines)
}

func (h *handler) getFine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	fine, err := h.lib.GetFine(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fine)
}

func (h *handler) payFine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	fine, err := h.lib.PayFine(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fine)
}
