package middleware

import (
	"errors"
	"io"
	"net/http"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
)

// ErrBodyTooLarge is returned from request body reads once the configured
// limit is crossed. Requests that declare an oversized Content-Length up
// front are rejected with 413 before the handler runs; chunked bodies can
// only be caught mid-read.
var ErrBodyTooLarge = errors.New("request body too large")

// BodyLimit caps the request body at maxSize bytes. A maxSize of zero or
// less disables the limit.
func BodyLimit(maxSize int64, logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxSize <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxSize {
				logger.Warn("request body over limit",
					observability.String("path", r.URL.Path),
					observability.Int64("content_length", r.ContentLength),
					observability.Int64("max_body_size", maxSize),
				)

				w.Header().Set(HeaderContentType, ContentTypeJSON)
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = io.WriteString(w, ErrBodyEntityTooLarge)
				return
			}

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = &limitedReadCloser{rc: r.Body, remaining: maxSize}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimitFromConfig builds a BodyLimit middleware using the effective
// limit from cfg. A nil cfg falls back to the default limit.
func BodyLimitFromConfig(cfg *config.RequestLimitsConfig, logger observability.Logger) func(http.Handler) http.Handler {
	return BodyLimit(cfg.GetEffectiveMaxBodySize(), logger)
}

// limitedReadCloser counts down the allowed bytes and fails the read that
// crosses the limit. Catches chunked uploads with no Content-Length.
type limitedReadCloser struct {
	rc        io.ReadCloser
	remaining int64
}

func (l *limitedReadCloser) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrBodyTooLarge
	}

	n, err := l.rc.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrBodyTooLarge
	}
	return n, err
}

func (l *limitedReadCloser) Close() error {
	return l.rc.Close()
}
