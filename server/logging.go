package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"library-lending/library"
)

const (
	logMsgRequest = "request completed"
	logMsgPanic   = "request panicked"
)

// requestLogger is a chi log formatter that writes one structured entry per request.
type requestLogger struct {
	logger library.Logger
}

func (l requestLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestEntry{
		logger: l.logger,
		attrs: []any{
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		},
	}
}

type requestEntry struct {
	logger library.Logger
	attrs  []any
}

func (e *requestEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ any) {
	args := append(e.attrs, "status", status, "bytes", bytes, "duration", elapsed)
	switch {
	case status >= http.StatusInternalServerError:
		e.logger.Error(logMsgRequest, args...)
	case status >= http.StatusBadRequest:
		e.logger.Warn(logMsgRequest, args...)
	default:
		e.logger.Info(logMsgRequest, args...)
	}
}

func (e *requestEntry) Panic(v any, stack []byte) {
	e.logger.Error(logMsgPanic, append(e.attrs, "panic", v, "stack", string(stack))...)
}
