package binder

import "net/http"

// Query creates a query string binder. Fields are matched by their `query`
// struct tag, falling back to the lowercased field name.
//
// Example:
//
//	type ListRequest struct {
//		Limit  int  `query:"limit"`
//		Unread bool `query:"unread"`
//	}
//
//	http.HandleFunc("/inbox", handler.Wrap(h,
//		handler.WithBinder[ListRequest](binder.Query()),
//	))
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", r.URL.Query(), ErrFailedToParseQuery)
	}
}
