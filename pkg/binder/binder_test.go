package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/notify/pkg/binder"
)

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestJSON(t *testing.T) {
	t.Parallel()

	type createRequest struct {
		Title    string   `json:"title"`
		Channels []string `json:"channels"`
	}

	t.Run("decodes a valid body", func(t *testing.T) {
		t.Parallel()
		var req createRequest
		err := binder.JSON()(jsonRequest(`{"title":"Grades posted","channels":["email","sms"]}`), &req)
		require.NoError(t, err)
		assert.Equal(t, "Grades posted", req.Title)
		assert.Equal(t, []string{"email", "sms"}, req.Channels)
	})

	t.Run("accepts content type with charset", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}`))
		r.Header.Set("Content-Type", "application/json; charset=utf-8")

		var req createRequest
		require.NoError(t, binder.JSON()(r, &req))
		assert.Equal(t, "x", req.Title)
	})

	t.Run("requires a content type", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		var req createRequest
		require.ErrorIs(t, binder.JSON()(r, &req), binder.ErrMissingContentType)
	})

	t.Run("rejects non-json content type", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		r.Header.Set("Content-Type", "text/plain")
		var req createRequest
		require.ErrorIs(t, binder.JSON()(r, &req), binder.ErrUnsupportedMediaType)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		t.Parallel()
		var req createRequest
		err := binder.JSON()(jsonRequest(`{"title":"x","bogus":true}`), &req)
		require.ErrorIs(t, err, binder.ErrFailedToParseJSON)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		t.Parallel()
		var req createRequest
		require.ErrorIs(t, binder.JSON()(jsonRequest(`{broken`), &req), binder.ErrFailedToParseJSON)
	})

	t.Run("rejects empty body", func(t *testing.T) {
		t.Parallel()
		var req createRequest
		err := binder.JSON()(jsonRequest(""), &req)
		require.ErrorIs(t, err, binder.ErrFailedToParseJSON)
		assert.Contains(t, err.Error(), "empty body")
	})

	t.Run("rejects trailing data", func(t *testing.T) {
		t.Parallel()
		var req createRequest
		err := binder.JSON()(jsonRequest(`{"title":"x"} {"title":"y"}`), &req)
		require.ErrorIs(t, err, binder.ErrFailedToParseJSON)
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		t.Parallel()
		big := `{"title":"` + strings.Repeat("a", binder.DefaultMaxJSONSize) + `"}`
		var req createRequest
		err := binder.JSON()(jsonRequest(big), &req)
		require.ErrorIs(t, err, binder.ErrFailedToParseJSON)
	})
}

func TestPath(t *testing.T) {
	t.Parallel()

	type messageRequest struct {
		Recipient string `path:"recipient"`
		ID        string `path:"id"`
		Internal  string `path:"-"`
	}

	extractor := func(params map[string]string) binder.PathExtractor {
		return func(_ *http.Request, name string) string { return params[name] }
	}

	t.Run("binds tagged fields", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/inbox/alice/msg-1", nil)

		var req messageRequest
		err := binder.Path(extractor(map[string]string{"recipient": "alice", "id": "msg-1"}))(r, &req)
		require.NoError(t, err)
		assert.Equal(t, "alice", req.Recipient)
		assert.Equal(t, "msg-1", req.ID)
		assert.Empty(t, req.Internal)
	})

	t.Run("leaves absent parameters untouched", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/inbox/alice", nil)

		req := messageRequest{ID: "keep"}
		err := binder.Path(extractor(map[string]string{"recipient": "alice"}))(r, &req)
		require.NoError(t, err)
		assert.Equal(t, "keep", req.ID)
	})

	t.Run("nil extractor", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		var req messageRequest
		require.ErrorIs(t, binder.Path(nil)(r, &req), binder.ErrFailedToParsePath)
	})

	t.Run("non-struct target", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		var s string
		err := binder.Path(extractor(nil))(r, &s)
		require.ErrorIs(t, err, binder.ErrFailedToParsePath)
	})
}

func TestQuery(t *testing.T) {
	t.Parallel()

	type listRequest struct {
		Limit    int      `query:"limit"`
		Offset   int      `query:"offset"`
		Unread   bool     `query:"unread"`
		Category string   `query:"category"`
		Tags     []string `query:"tags"`
		Score    *float64 `query:"score"`
		Fallback string
	}

	t.Run("binds typed fields", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet,
			"/?limit=25&offset=50&unread=true&category=grades&tags=a,b&tags=c&score=0.5&fallback=x", nil)

		var req listRequest
		require.NoError(t, binder.Query()(r, &req))
		assert.Equal(t, 25, req.Limit)
		assert.Equal(t, 50, req.Offset)
		assert.True(t, req.Unread)
		assert.Equal(t, "grades", req.Category)
		assert.Equal(t, []string{"a", "b", "c"}, req.Tags)
		require.NotNil(t, req.Score)
		assert.InDelta(t, 0.5, *req.Score, 1e-9)
		assert.Equal(t, "x", req.Fallback)
	})

	t.Run("missing parameters keep zero values", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		var req listRequest
		require.NoError(t, binder.Query()(r, &req))
		assert.Zero(t, req.Limit)
		assert.Nil(t, req.Score)
	})

	t.Run("lenient booleans", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?unread=yes", nil)

		var req listRequest
		require.NoError(t, binder.Query()(r, &req))
		assert.True(t, req.Unread)
	})

	t.Run("invalid number", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?limit=lots", nil)

		var req listRequest
		err := binder.Query()(r, &req)
		require.ErrorIs(t, err, binder.ErrFailedToParseQuery)
		assert.Contains(t, err.Error(), "Limit")
	})
}
