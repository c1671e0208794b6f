package handler

import "errors"

// ErrNilResponse reports a handler that returned nil instead of a Response.
var ErrNilResponse = errors.New("handler returned nil response")
