package notifications_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/notify/pkg/notification"
	"github.com/campushub/notify/pkg/notifier"
)

func TestDispatch_Create(t *testing.T) {
	t.Parallel()

	t.Run("creates and fans out", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		rec, env := api.do(t, http.MethodPost, "/notifications", createBody())
		require.Equal(t, http.StatusCreated, rec.Code)

		var res notifier.CreateResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, 2, res.Recipients)
		assert.Equal(t, 2, res.Tasks)
		assert.Equal(t, notification.StatusDispatching, res.Notification.Status)
	})

	t.Run("rejects missing title", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		body := createBody()
		body["title"] = ""
		rec, env := api.do(t, http.MethodPost, "/notifications", body)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Code, "title or template is required")
	})

	t.Run("rejects unknown channel", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		body := createBody()
		body["channels"] = []string{"carrier-pigeon"}
		rec, env := api.do(t, http.MethodPost, "/notifications", body)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.NotNil(t, env.Error)
	})

	t.Run("rejects empty channel list", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		body := createBody()
		delete(body, "channels")
		rec, _ := api.do(t, http.MethodPost, "/notifications", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestDispatch_Broadcast(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	body := createBody()
	delete(body, "audience")
	rec, env := api.do(t, http.MethodPost, "/notifications/broadcast", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var res notifier.CreateResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 3, res.Recipients)
	assert.Equal(t, 3, res.Tasks)
}

func TestDispatch_Schedule(t *testing.T) {
	t.Parallel()

	t.Run("requires a schedule", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		rec, env := api.do(t, http.MethodPost, "/notifications/scheduled", createBody())
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Details, "scheduled_for")
	})

	t.Run("accepts a future one-shot", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		body := createBody()
		body["scheduled_for"] = time.Now().Add(time.Hour).Format(time.RFC3339)
		rec, env := api.do(t, http.MethodPost, "/notifications/scheduled", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var res notifier.CreateResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, notification.StatusScheduled, res.Notification.Status)
	})
}

func TestDispatch_Status(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	_, env := api.do(t, http.MethodPost, "/notifications", createBody())
	var created notifier.CreateResult
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec, env := api.do(t, http.MethodGet, "/notifications/"+created.Notification.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report notifier.StatusReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, created.Notification.ID, report.Notification.ID)
	assert.Equal(t, 2, report.Counts.Pending)

	rec, env = api.do(t, http.MethodGet, "/notifications/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "bad_request", env.Error.Code)

	rec, env = api.do(t, http.MethodGet, "/notifications/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestDispatch_Cancel(t *testing.T) {
	t.Parallel()

	t.Run("cancels pending delivery", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		_, env := api.do(t, http.MethodPost, "/notifications", createBody())
		var created notifier.CreateResult
		require.NoError(t, json.Unmarshal(env.Data, &created))

		rec, _ := api.do(t, http.MethodDelete, "/notifications/"+created.Notification.ID.String(), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		stored, err := api.repo.GetNotification(context.Background(), created.Notification.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusCancelled, stored.Status)

		// Cancelling twice is a no-op.
		rec, _ = api.do(t, http.MethodDelete, "/notifications/"+created.Notification.ID.String(), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("rejects completed delivery", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		// An audience that resolves to nobody completes immediately.
		body := createBody()
		body["audience"] = map[string]any{"kind": "segment", "segment_id": "ghost-town"}
		_, env := api.do(t, http.MethodPost, "/notifications", body)
		var created notifier.CreateResult
		require.NoError(t, json.Unmarshal(env.Data, &created))
		require.Equal(t, notification.StatusCompleted, created.Notification.Status)

		rec, env := api.do(t, http.MethodDelete, "/notifications/"+created.Notification.ID.String(), nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		require.NotNil(t, env.Error)
	})

	t.Run("unknown notification", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		rec, _ := api.do(t, http.MethodDelete, "/notifications/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
