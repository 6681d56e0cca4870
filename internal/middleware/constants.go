package middleware

// HTTP header names used across the middleware chain.
const (
	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"

	// HeaderRetryAfter is the Retry-After header name.
	HeaderRetryAfter = "Retry-After"

	// HeaderRequestID is the X-Request-ID header name.
	HeaderRequestID = "X-Request-ID"

	// HeaderXForwardedFor is the X-Forwarded-For header name.
	HeaderXForwardedFor = "X-Forwarded-For"

	// HeaderCacheStatus reports cache lookup results on responses.
	HeaderCacheStatus = "X-Cache"
)

// ContentTypeJSON is the content type for gateway-generated responses.
const ContentTypeJSON = "application/json"

// JSON bodies for responses generated inside the chain.
const (
	// ErrBodyRateLimited is returned when the rate limiter rejects a request.
	ErrBodyRateLimited = `{"error":"too many requests"}`

	// ErrBodyEntityTooLarge is returned when the request body exceeds the limit.
	ErrBodyEntityTooLarge = `{"error":"request entity too large"}`

	// ErrBodyInternal is returned after a recovered panic.
	ErrBodyInternal = `{"error":"internal server error"}`
)
