package binder

import "errors"

var (
	ErrMissingContentType   = errors.New("binder: missing content type")
	ErrUnsupportedMediaType = errors.New("binder: unsupported media type")
	ErrFailedToParseJSON    = errors.New("binder: failed to parse json body")
	ErrFailedToParseQuery   = errors.New("binder: failed to parse query parameters")
	ErrFailedToParsePath    = errors.New("binder: failed to parse path parameters")

	// ErrBinderNotApplicable signals a binder does not apply to the current
	// request, for example a body binder on a bodyless GET. Callers skip it
	// and try the next one.
	ErrBinderNotApplicable = errors.New("binder: not applicable to this request")
)
