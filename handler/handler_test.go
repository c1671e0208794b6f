package handler_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/notify/handler"
	"github.com/campushub/notify/pkg/binder"
)

type echoRequest struct {
	Name string `json:"name"`
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("binds and renders", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(func(ctx handler.Context, req echoRequest) handler.Response {
			return handler.JSON(map[string]string{"hello": req.Name})
		}, handler.WithBinder[echoRequest](binder.JSON()))

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"alice"}`))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":{"hello":"alice"}}`, w.Body.String())
	})

	t.Run("bind failure goes to the error handler", func(t *testing.T) {
		t.Parallel()
		var seen error
		h := handler.Wrap(func(ctx handler.Context, req echoRequest) handler.Response {
			t.Fatal("handler must not run after a bind failure")
			return nil
		},
			handler.WithBinder[echoRequest](binder.JSON()),
			handler.WithErrorHandler[echoRequest](func(ctx handler.Context, err error) {
				seen = err
				ctx.ResponseWriter().WriteHeader(http.StatusBadRequest)
			}),
		)

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.ErrorIs(t, seen, binder.ErrFailedToParseJSON)
	})

	t.Run("binders apply in order", func(t *testing.T) {
		t.Parallel()
		type combined struct {
			ID    string `path:"id"`
			Limit int    `query:"limit"`
		}

		h := handler.Wrap(func(ctx handler.Context, req combined) handler.Response {
			return handler.JSON(req)
		}, handler.WithBinders[combined](
			binder.Path(func(r *http.Request, name string) string { return "n-7" }),
			binder.Query(),
		))

		r := httptest.NewRequest(http.MethodGet, "/?limit=3", nil)
		w := httptest.NewRecorder()
		h(w, r)

		assert.JSONEq(t, `{"data":{"ID":"n-7","Limit":3}}`, w.Body.String())
	})

	t.Run("nil response is an error", func(t *testing.T) {
		t.Parallel()
		var seen error
		h := handler.Wrap(func(ctx handler.Context, req echoRequest) handler.Response {
			return nil
		}, handler.WithErrorHandler[echoRequest](func(ctx handler.Context, err error) {
			seen = err
		}))

		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.ErrorIs(t, seen, handler.ErrNilResponse)
	})

	t.Run("default error handler uses the HTTP error status", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(func(ctx handler.Context, req echoRequest) handler.Response {
			return nil
		})

		// No JSON body at all: the JSON binder is absent, so the handler
		// runs, returns nil, and the default error handler answers.
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestContext(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	ctx := handler.NewContext(w, r)

	assert.Same(t, r, ctx.Request())
	assert.Equal(t, w, ctx.ResponseWriter())

	// context.Context is delegated to the request.
	select {
	case <-ctx.Done():
		t.Fatal("context should not be done")
	default:
	}
	assert.NoError(t, ctx.Err())
}

func TestDefaultErrorHandler_HTTPError(t *testing.T) {
	t.Parallel()

	h := handler.Wrap(func(ctx handler.Context, req echoRequest) handler.Response {
		return nil
	}, handler.WithBinder[echoRequest](func(r *http.Request, v any) error {
		return handler.ErrNotFound
	}))

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found\n", w.Body.String())
}

func TestDefaultErrorHandler_WrappedHTTPError(t *testing.T) {
	t.Parallel()

	wrapped := errors.Join(errors.New("lookup"), handler.ErrForbidden)
	h := handler.Wrap(func(ctx handler.Context, req echoRequest) handler.Response {
		return nil
	}, handler.WithBinder[echoRequest](func(r *http.Request, v any) error {
		return wrapped
	}))

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
