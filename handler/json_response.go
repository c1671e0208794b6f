package handler

import (
	"encoding/json"
	"maps"
	"net/http"
)

// JSONResponse is the envelope every JSON endpoint renders: data on success,
// error on failure, optional meta alongside either.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail is the error half of the envelope. Code is a stable key for
// clients to match on; Details carries per-field validation messages.
type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	body   JSONResponse
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures a JSON response.
type JSONOption func(*jsonResponse)

// WithJSONStatus overrides the HTTP status code.
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

// WithJSONMeta attaches metadata to the envelope.
func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) {
		r.body.Meta = meta
	}
}

// JSON renders v inside the data envelope with status 200 unless overridden.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{
		status: http.StatusOK,
		body:   JSONResponse{Data: v},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError renders err inside the error envelope. The status code follows
// the error type: HTTPError carries its own code, ValidationError renders
// 422 with field details, anything else is a 500.
func JSONError(err error, opts ...JSONOption) Response {
	r := &jsonResponse{
		status: http.StatusInternalServerError,
	}
	r.body.Error = errorToDetail(err, &r.status)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func errorToDetail(err error, status *int) *ErrorDetail {
	if err == nil {
		return nil
	}

	if valErr, ok := err.(ValidationError); ok {
		*status = http.StatusUnprocessableEntity
		detail := &ErrorDetail{
			Code:    "validation_error",
			Message: valErr.Error(),
		}
		if len(valErr) > 0 {
			detail.Details = make(map[string][]string)
			maps.Copy(detail.Details, valErr)
		}
		return detail
	}

	if httpErr, ok := err.(HTTPError); ok {
		*status = httpErr.Code
		return &ErrorDetail{
			Code:    httpErr.Key,
			Message: http.StatusText(httpErr.Code),
		}
	}

	return &ErrorDetail{
		Code:    "internal_error",
		Message: err.Error(),
	}
}
