// Package binder populates typed request structs from HTTP requests.
//
// Each binder covers one part of the request and is composed by the handler
// package, which applies them in order:
//
//	type listRequest struct {
//		Recipient string `path:"recipient"`
//		Limit     int    `query:"limit"`
//		Unread    bool   `query:"unread"`
//	}
//
//	r.Get("/inbox/{recipient}", handler.Wrap(list,
//		handler.WithBinders[listRequest](
//			binder.Path(pathParam),
//			binder.Query(),
//		),
//	))
//
// Path and query binding match fields by struct tag, falling back to the
// lowercased field name; `-` skips a field. Supported field types are
// strings, integers, unsigned integers, floats, booleans, pointers to any
// of those, and slices (repeated parameters or comma-separated values).
//
// JSON binding is strict: it requires an application/json content type and
// rejects unknown fields, trailing data, and oversized bodies.
package binder
