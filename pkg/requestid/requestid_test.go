package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/notify/pkg/requestid"
)

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := requestid.WithContext(context.Background(), "req-42")
	assert.Equal(t, "req-42", requestid.FromContext(ctx))

	assert.Empty(t, requestid.FromContext(context.Background()))
	assert.Empty(t, requestid.FromContext(nil)) //nolint:staticcheck
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	serve := func(t *testing.T, header string) (*httptest.ResponseRecorder, string) {
		t.Helper()
		var inHandler string
		h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inHandler = requestid.FromContext(r.Context())
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set(requestid.Header, header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w, inHandler
	}

	t.Run("generates an id when absent", func(t *testing.T) {
		t.Parallel()
		w, seen := serve(t, "")
		require.NotEmpty(t, seen)
		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, w.Header().Get(requestid.Header))
	})

	t.Run("reuses a well formed client id", func(t *testing.T) {
		t.Parallel()
		w, seen := serve(t, "client-id_01")
		assert.Equal(t, "client-id_01", seen)
		assert.Equal(t, "client-id_01", w.Header().Get(requestid.Header))
	})

	t.Run("replaces a malformed client id", func(t *testing.T) {
		t.Parallel()
		_, seen := serve(t, "bad id\nwith newline")
		_, err := uuid.Parse(seen)
		require.NoError(t, err)
	})

	t.Run("replaces an oversized client id", func(t *testing.T) {
		t.Parallel()
		_, seen := serve(t, strings.Repeat("a", 200))
		_, err := uuid.Parse(seen)
		require.NoError(t, err)
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := requestid.LoggerExtractor()

	attr, ok := extract(requestid.WithContext(context.Background(), "req-7"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "req-7", attr.Value.String())

	_, ok = extract(context.Background())
	assert.False(t, ok)
}
