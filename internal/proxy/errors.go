package proxy

import (
	"io"
	"net/http"

	"github.com/zerospeak/stranglergw/internal/util"
)

// JSON bodies for gateway-generated error responses. Upstream responses are
// never rewritten; these cover only requests the gateway answers itself.
const (
	errBodyBadRequest         = `{"error":"bad request","message":"malformed request"}`
	errBodyNotFound           = `{"error":"not found","message":"no matching route"}`
	errBodyBadGateway         = `{"error":"bad gateway","message":"upstream unreachable"}`
	errBodyGatewayTimeout     = `{"error":"gateway timeout","message":"upstream timed out"}`
	errBodyServiceUnavailable = `{"error":"service unavailable","message":"circuit breaker open"}`
	errBodyInternal           = `{"error":"internal server error"}`
)

// errorBody returns the JSON body for a gateway-generated status code.
func errorBody(status int) string {
	switch status {
	case http.StatusBadRequest:
		return errBodyBadRequest
	case http.StatusNotFound:
		return errBodyNotFound
	case http.StatusBadGateway:
		return errBodyBadGateway
	case http.StatusGatewayTimeout:
		return errBodyGatewayTimeout
	case http.StatusServiceUnavailable:
		return errBodyServiceUnavailable
	default:
		return errBodyInternal
	}
}

// writeError writes the JSON error response for err, unless the response
// has already started.
func writeError(w http.ResponseWriter, err error) {
	if sw, ok := w.(*util.StatusWriter); ok && sw.WroteHeader() {
		return
	}

	status := util.HTTPStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, errorBody(status))
}
