// Package handler provides a type-safe HTTP handler framework for JSON APIs.
// Handlers are plain functions from a typed request to a Response; binding,
// error handling, and rendering are composed around them.
//
// # Usage
//
//	type CreateRequest struct {
//		Title string `json:"title"`
//	}
//
//	create := func(ctx handler.Context, req CreateRequest) handler.Response {
//		item, err := svc.Create(ctx, req.Title)
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(item, handler.WithJSONStatus(http.StatusCreated))
//	}
//
//	r.Post("/items", handler.Wrap(create,
//		handler.WithBinder[CreateRequest](binder.JSON()),
//		handler.WithErrorHandler[CreateRequest](errHandler),
//	))
//
// # Responses
//
//	handler.JSON(data)                    // 200 with {"data": ...}
//	handler.JSONError(err)                // status derived from the error
//	handler.Empty()                       // 204 without a body
//	handler.EmptyWithStatus(http.StatusCreated)
//
// Errors are classified automatically: HTTPError carries its own status code
// and key, ValidationError renders field details with 422, anything else
// becomes a 500 with a generic message.
//
// # Binding
//
// Binders populate the typed request from different parts of the HTTP
// request and are applied in order:
//
//	handler.WithBinders[R](
//		binder.Path(pathExtractor), // path: tags
//		binder.Query(),             // query: tags
//		binder.JSON(),              // JSON body
//	)
package handler
