package server

import (
	"net/http"

	"github.com/google/uuid"

	"library-lending/library"
)

func (h *handler) createMember(w http.ResponseWriter, r *http.Request) {
	var in library.NewMember
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	member, err := h.lib.CreateMember(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *handler) listMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	members, err := h.lib.ListMembers(r.Context(), library.MemberFilter{
		Status: library.MemberStatus(q.Get("status")),
		Name:   q.Get("name"),
		Email:  q.Get("email"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *handler) getMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	member, err := h.lib.GetMember(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *handler) memberLoans(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	loans, err := h.lib.MemberLoans(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

type eligibility struct {
	MemberID    uuid.UUID            `json:"member_id"`
	Eligible    bool                 `json:"eligible"`
	Status      library.MemberStatus `json:"status"`
	OpenLoans   int                  `json:"open_loans"`
	UnpaidFines int                  `json:"unpaid_fines"`
	Reason      library.Code         `json:"reason,omitempty"`
	Message     string               `json:"message,omitempty"`
}

func (h *handler) memberEligibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	standing, err := h.lib.CheckBorrow(r.Context(), id)
	if err != nil && standing.Member.ID == uuid.Nil {
		h.writeError(w, r, err)
		return
	}
	out := eligibility{
		MemberID:    standing.Member.ID,
		Eligible:    err == nil,
		Status:      standing.Member.Status,
		OpenLoans:   standing.OpenLoans,
		UnpaidFines: standing.UnpaidFines,
	}
	if err != nil {
		out.Reason, _ = library.CodeOf(err)
		out.Message = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) updateMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var patch library.MemberPatch
	if err := decode(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	member, err := h.lib.UpdateMember(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *handler) deleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.lib.DeleteMember(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
