package server

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-lending/library"
)

type api struct {
	handler http.Handler
	mgr     *library.LibraryManager
	logs    *strings.Builder
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db, err := library.NewDatabase(filepath.Join(t.TempDir(), "lib.db"))
	require.NoError(t, err)
	mgr, err := library.NewLibraryManager(db)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	logs := &strings.Builder{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	return &api{handler: NewRouter(mgr, logger), mgr: mgr, logs: logs}
}

func (a *api) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code library.Code) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, code, body.Code)
	assert.NotEmpty(t, body.Error)
}

func (a *api) seed(t *testing.T, copies int) (library.Member, library.Book) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/members", library.NewMember{
		Name: "Ada", Email: "ada@example.com", MembershipNumber: "M-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decodeBody[library.Member](t, rec)

	rec = a.do(t, http.MethodPost, "/books", library.NewBook{
		ISBN: "0-306-40615-2", Title: "Notes", Author: "Menabrea", Category: "Math", TotalCopies: copies,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decodeBody[library.Book](t, rec)
	return m, b
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rec)["status"])

	rec = a.do(t, http.MethodGet, "/db-health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBorrowAndReturn(t *testing.T) {
	a := newAPI(t)
	m, b := a.seed(t, 1)

	rec := a.do(t, http.MethodPost, "/transactions/borrow", map[string]string{
		"memberId": m.ID.String(), "bookId": b.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tr := decodeBody[library.Transaction](t, rec)
	assert.Equal(t, library.TransactionActive, tr.Status)
	assert.Equal(t, tr.BorrowedAt.AddDate(0, 0, library.LoanDays), tr.DueDate)

	rec = a.do(t, http.MethodGet, "/books/"+b.ID.String()+"/availability", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	av := decodeBody[availability](t, rec)
	assert.False(t, av.Available)
	assert.Equal(t, library.CodeBookNotAvailable, av.Reason)

	rec = a.do(t, http.MethodPost, "/transactions/borrow", map[string]string{
		"memberId": m.ID.String(), "bookId": b.ID.String(),
	})
	assertError(t, rec, http.StatusBadRequest, library.CodeBookNotAvailable)

	rec = a.do(t, http.MethodGet, "/members/"+m.ID.String()+"/borrowed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	loans := decodeBody[[]library.Loan](t, rec)
	require.Len(t, loans, 1)
	assert.Equal(t, "Notes", loans[0].Book.Title)

	rec = a.do(t, http.MethodPost, "/transactions/"+tr.ID.String()+"/return", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[library.ReturnResult](t, rec)
	assert.Equal(t, library.TransactionReturned, res.Transaction.Status)
	assert.Nil(t, res.Fine)
	assert.Equal(t, 1, res.Book.AvailableCopies)

	rec = a.do(t, http.MethodPost, "/transactions/"+tr.ID.String()+"/return", nil)
	assertError(t, rec, http.StatusBadRequest, library.CodeAlreadyReturned)

	rec = a.do(t, http.MethodGet, "/transactions?status=returned&memberId="+m.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodeBody[[]library.Loan](t, rec), 1)
}

func TestSuspendedMemberIsForbidden(t *testing.T) {
	a := newAPI(t)
	m, b := a.seed(t, 2)

	rec := a.do(t, http.MethodPut, "/members/"+m.ID.String(), map[string]string{"status": "SUSPENDED"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/members/"+m.ID.String()+"/eligibility", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	el := decodeBody[eligibility](t, rec)
	assert.False(t, el.Eligible)
	assert.Equal(t, library.CodeMemberSuspended, el.Reason)

	rec = a.do(t, http.MethodPost, "/transactions/borrow", map[string]string{
		"memberId": m.ID.String(), "bookId": b.ID.String(),
	})
	assertError(t, rec, http.StatusForbidden, library.CodeMemberSuspended)
}

func TestEligibleMember(t *testing.T) {
	a := newAPI(t)
	m, _ := a.seed(t, 1)

	rec := a.do(t, http.MethodGet, "/members/"+m.ID.String()+"/eligibility", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	el := decodeBody[eligibility](t, rec)
	assert.True(t, el.Eligible)
	assert.Empty(t, el.Reason)
	assert.Equal(t, library.MemberActive, el.Status)
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t)
	m, b := a.seed(t, 1)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   library.Code
	}{
		{"unknown book", http.MethodGet, "/books/" + uuid.NewString(), nil, http.StatusNotFound, library.CodeBookNotFound},
		{"unknown member", http.MethodGet, "/members/" + uuid.NewString() + "/eligibility", nil, http.StatusNotFound, library.CodeMemberNotFound},
		{"unknown transaction", http.MethodPost, "/transactions/" + uuid.NewString() + "/return", nil, http.StatusNotFound, library.CodeTransactionNotFound},
		{"unknown fine", http.MethodPost, "/fines/" + uuid.NewString() + "/pay", nil, http.StatusNotFound, library.CodeFineNotFound},
		{"bad id", http.MethodGet, "/books/not-a-uuid", nil, http.StatusBadRequest, library.CodeInvalidInput},
		{"malformed body", http.MethodPost, "/books", "{", http.StatusBadRequest, library.CodeInvalidInput},
		{"empty body", http.MethodPost, "/members", nil, http.StatusBadRequest, library.CodeInvalidInput},
		{"missing borrow ids", http.MethodPost, "/transactions/borrow", map[string]string{"memberId": m.ID.String()}, http.StatusBadRequest, library.CodeInvalidInput},
		{"bad status filter", http.MethodGet, "/transactions?status=LOST", nil, http.StatusBadRequest, library.CodeInvalidInput},
		{"bad paid filter", http.MethodGet, "/fines?paid=maybe", nil, http.StatusBadRequest, library.CodeInvalidInput},
		{"invalid book", http.MethodPost, "/books", library.NewBook{ISBN: "123", Title: "X", Author: "Y", Category: "Z", TotalCopies: 1}, http.StatusBadRequest, library.CodeInvalidInput},
		{"duplicate isbn", http.MethodPost, "/books", library.NewBook{ISBN: b.ISBN, Title: "X", Author: "Y", Category: "Z", TotalCopies: 1}, http.StatusConflict, library.CodeDuplicate},
		{"duplicate membership", http.MethodPost, "/members", library.NewMember{Name: "Bea", Email: "bea@example.com", MembershipNumber: m.MembershipNumber}, http.StatusConflict, library.CodeDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, tt.method, tt.path, tt.body)

			assertError(t, rec, tt.status, tt.code)
		})
	}
}

func TestDeleteBook(t *testing.T) {
	a := newAPI(t)
	_, b := a.seed(t, 1)

	rec := a.do(t, http.MethodDelete, "/books/"+b.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/books/"+b.ID.String(), nil)
	assertError(t, rec, http.StatusNotFound, library.CodeBookNotFound)
}

func TestUnknownRoute(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, http.MethodGet, "/reservations", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", decodeBody[map[string]string](t, rec)["error"])
}

func TestStoreFailureIsInternal(t *testing.T) {
	a := newAPI(t)
	require.NoError(t, a.mgr.Close())

	rec := a.do(t, http.MethodGet, "/books", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeBody[errorBody](t, rec).Error)
	assert.Contains(t, a.logs.String(), "request failed")

	rec = a.do(t, http.MethodGet, "/db-health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusForCoversEveryCode(t *testing.T) {
	forbidden := map[library.Code]bool{library.CodeMemberSuspended: true, library.CodeUnpaidFinesExist: true}
	for _, err := range []*library.Error{
		library.ErrMemberSuspended, library.ErrUnpaidFinesExist, library.ErrBorrowLimitExceeded,
		library.ErrBookNotAvailable, library.ErrAlreadyReturned, library.ErrFineAlreadyPaid,
		library.ErrBookInUse, library.ErrMemberInUse, library.ErrCopiesBelowBorrowed,
	} {
		want := http.StatusBadRequest
		if forbidden[err.Code] {
			want = http.StatusForbidden
		}
		assert.Equal(t, want, statusFor(err.Code), err.Code)
	}
}

func TestRequestsAreLoggedThroughLogger(t *testing.T) {
	a := newAPI(t)

	a.do(t, http.MethodGet, "/health", nil)
	a.do(t, http.MethodGet, "/books/"+uuid.NewString(), nil)

	logs := a.logs.String()
	assert.Contains(t, logs, `msg="request completed" method=GET path=/health`)
	assert.Contains(t, logs, "status=200")
	assert.Contains(t, logs, "level=WARN")
	assert.Contains(t, logs, "status=404")
	assert.Contains(t, logs, "request_id=")
}
