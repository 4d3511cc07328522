package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"library-lending/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string       `json:"error"`
	Code  library.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a domain code onto the HTTP status the API reports for it.
func statusFor(code library.Code) int {
	switch code {
	case library.CodeMemberNotFound, library.CodeBookNotFound,
		library.CodeTransactionNotFound, library.CodeFineNotFound:
		return http.StatusNotFound
	case library.CodeMemberSuspended, library.CodeUnpaidFinesExist:
		return http.StatusForbidden
	case library.CodeDuplicate:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *library.Error
	if errors.As(err, &e) {
		writeJSON(w, statusFor(e.Code), errorBody{Error: e.Message, Code: e.Code})
		return
	}
	h.logError(r, err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

func (h *handler) logError(r *http.Request, err error) {
	if h.logger == nil {
		return
	}
	h.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err)
}

func invalid(format string, args ...any) error {
	return &library.Error{Code: library.CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return invalid("read request body: %v", err)
	}
	if len(body) == 0 {
		return invalid("request body is required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return invalid("malformed JSON body")
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid("invalid id %q", raw)
	}
	return id, nil
}

func queryID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalid("invalid %s %q", key, raw)
	}
	return &id, nil
}
