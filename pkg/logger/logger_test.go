package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/notify/pkg/logger"
)

type ctxKey struct{}

func TestNew_JSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithAttr(slog.String("service", "notify")),
	)

	log.Info("queue drained", slog.Int("processed", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "queue drained", rec["msg"])
	assert.Equal(t, "notify", rec["service"])
	assert.EqualValues(t, 3, rec["processed"])
}

func TestNew_ContextExtractors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
			if v, ok := ctx.Value(ctxKey{}).(string); ok {
				return slog.String("request_id", v), true
			}
			return slog.Attr{}, false
		}),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-42")
	log.InfoContext(ctx, "created")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-42", rec["request_id"])

	// A context without the value adds no attribute.
	buf.Reset()
	log.InfoContext(context.Background(), "created")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.NotContains(t, rec, "request_id")
}

func TestWithEnvironment(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithEnvironment("production", "notify"),
		logger.WithOutput(&buf),
	)

	log.Debug("invisible at info level")
	assert.Empty(t, buf.Bytes())

	log.Info("visible")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "notify", rec["service"])
	assert.Equal(t, "production", rec["env"])
}

func TestAttrHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))

	err := errors.New("provider 503")
	attr := logger.Error(err)
	assert.Equal(t, "error", attr.Key)

	assert.Equal(t, slog.Attr{}, logger.Errors(nil, nil))
	grouped := logger.Errors(err, nil, errors.New("timeout"))
	assert.Equal(t, "errors", grouped.Key)
	assert.Len(t, grouped.Value.Group(), 2)

	assert.Equal(t, slog.Attr{}, logger.RecipientID(""))
	assert.Equal(t, "recipient_id", logger.RecipientID("alice").Key)
}
