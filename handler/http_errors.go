package handler

import "net/http"

// HTTPError represents an HTTP error with status code and a stable error key.
// The Key field is what API clients match on; the status code drives the
// response.
type HTTPError struct {
	Code int    // HTTP status code
	Key  string // Error key (e.g., "not_found", "unauthorized")
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Key
}

// 4xx Client Errors
var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized        = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrForbidden           = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound            = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrMethodNotAllowed    = HTTPError{Code: http.StatusMethodNotAllowed, Key: "method_not_allowed"}
	ErrRequestTimeout      = HTTPError{Code: http.StatusRequestTimeout, Key: "request_timeout"}
	ErrConflict            = HTTPError{Code: http.StatusConflict, Key: "conflict"}
	ErrGone                = HTTPError{Code: http.StatusGone, Key: "gone"}
	ErrUnprocessableEntity = HTTPError{Code: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
	ErrTooManyRequests     = HTTPError{Code: http.StatusTooManyRequests, Key: "too_many_requests"}
)

// 5xx Server Errors
var (
	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	ErrNotImplemented      = HTTPError{Code: http.StatusNotImplemented, Key: "not_implemented"}
	ErrBadGateway          = HTTPError{Code: http.StatusBadGateway, Key: "bad_gateway"}
	ErrServiceUnavailable  = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable"}
	ErrGatewayTimeout      = HTTPError{Code: http.StatusGatewayTimeout, Key: "gateway_timeout"}
)

// NewHTTPError creates a custom HTTP error with the given status code and key.
//
// Example:
//
//	err := handler.NewHTTPError(http.StatusForbidden, "insufficient_permissions")
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}
