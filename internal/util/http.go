package util

import (
	"bufio"
	"net"
	"net/http"
)

// StatusWriter wraps http.ResponseWriter and records the status code and
// response size. Middleware that needs to inspect the outcome of a handler
// (access logging, metrics, circuit breaking) shares this wrapper.
type StatusWriter struct {
	http.ResponseWriter
	Status       int
	BytesWritten int64
	wroteHeader  bool
}

// NewStatusWriter wraps w with a default status of 200 OK.
func NewStatusWriter(w http.ResponseWriter) *StatusWriter {
	return &StatusWriter{ResponseWriter: w, Status: http.StatusOK}
}

// WriteHeader records the status code. Duplicate calls are ignored, matching
// net/http behavior.
func (w *StatusWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.Status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

// Write records the written size and implicitly marks the header as sent.
func (w *StatusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.BytesWritten += int64(n)
	return n, err
}

// WroteHeader reports whether a status line has been sent.
func (w *StatusWriter) WroteHeader() bool {
	return w.wroteHeader
}

// Flush implements http.Flusher for streaming responses.
func (w *StatusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker so WebSocket upgrades pass through wrapped
// writers.
func (w *StatusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

var (
	_ http.Flusher  = (*StatusWriter)(nil)
	_ http.Hijacker = (*StatusWriter)(nil)
)
