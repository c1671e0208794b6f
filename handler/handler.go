package handler

import (
	"errors"
	"net/http"

	"github.com/campushub/notify/pkg/binder"
)

// HandlerFunc is a typed HTTP handler: it receives the bound request value
// and returns a Response to render. Binding and error handling are composed
// around it by Wrap.
type HandlerFunc[R any] func(ctx Context, req R) Response

// Response renders itself to an http.ResponseWriter. Implementations set
// headers, status code, and body.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind populates a request value from the incoming HTTP request.
type Bind func(r *http.Request, v any) error

// ErrorHandler renders binding and rendering failures.
type ErrorHandler func(ctx Context, err error)

// WrapOption configures Wrap.
type WrapOption[R any] func(*wrapConfig[R])

type wrapConfig[R any] struct {
	binders      []Bind
	errorHandler ErrorHandler
}

// WithBinder sets the request binder.
func WithBinder[R any](b Bind) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		if b != nil {
			c.binders = []Bind{b}
		}
	}
}

// WithBinders sets multiple binders applied in order. Each binder processes
// only its own struct tags, so one request type can combine path, query, and
// body fields.
func WithBinders[R any](binders ...Bind) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		c.binders = append(c.binders, binders...)
	}
}

// WithErrorHandler overrides the default error handler.
func WithErrorHandler[R any](h ErrorHandler) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// defaultErrorHandler writes a plain-text error. HTTPError keeps its status
// code; anything else is a 500.
func defaultErrorHandler(ctx Context, err error) {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		http.Error(ctx.ResponseWriter(), httpErr.Key, httpErr.Code)
		return
	}
	http.Error(ctx.ResponseWriter(), err.Error(), http.StatusInternalServerError)
}

// Wrap converts a typed HandlerFunc to http.HandlerFunc.
//
//	r.Post("/notifications", handler.Wrap(create,
//		handler.WithBinder[CreateRequest](binder.JSON()),
//		handler.WithErrorHandler[CreateRequest](errHandler),
//	))
func Wrap[R any](h HandlerFunc[R], opts ...WrapOption[R]) http.HandlerFunc {
	cfg := &wrapConfig[R]{
		errorHandler: defaultErrorHandler,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := NewContext(w, r)

		var req R
		for _, bind := range cfg.binders {
			if err := bind(r, &req); err != nil {
				// Binders that do not apply to this request are skipped.
				if errors.Is(err, binder.ErrBinderNotApplicable) {
					continue
				}
				cfg.errorHandler(ctx, err)
				return
			}
		}

		response := h(ctx, req)
		if response == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := response.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}
