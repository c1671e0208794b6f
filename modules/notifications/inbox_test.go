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

	"github.com/campushub/notify/pkg/inbox"
)

func seedInbox(t *testing.T, api *testAPI, recipient string, msgs ...inbox.Message) []inbox.Message {
	t.Helper()
	ctx := context.Background()

	for i := range msgs {
		msgs[i].RecipientID = recipient
		if msgs[i].NotificationID == uuid.Nil {
			msgs[i].NotificationID = uuid.New()
		}
		require.NoError(t, api.box.Put(ctx, msgs[i]))
		// Distinct creation times keep the feed ordering observable.
		time.Sleep(time.Millisecond)
	}

	stored, err := api.box.List(ctx, recipient, inbox.ListOptions{})
	require.NoError(t, err)
	return stored
}

func TestInboxAPI_List(t *testing.T) {
	t.Parallel()

	t.Run("returns the feed newest first", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		seedInbox(t, api, "alice",
			inbox.Message{Title: "first", Category: "grades"},
			inbox.Message{Title: "second", Category: "events"},
		)

		rec, env := api.do(t, http.MethodGet, "/inbox/alice", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var msgs []inbox.Message
		require.NoError(t, json.Unmarshal(env.Data, &msgs))
		require.Len(t, msgs, 2)
		assert.Equal(t, "second", msgs[0].Title)
		assert.Equal(t, "first", msgs[1].Title)
		assert.EqualValues(t, 2, env.Meta["count"])
	})

	t.Run("filters by category and unread", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		stored := seedInbox(t, api, "alice",
			inbox.Message{Title: "grade", Category: "grades"},
			inbox.Message{Title: "party", Category: "events"},
		)
		require.NoError(t, api.box.MarkRead(context.Background(), "alice", stored[0].ID))

		rec, env := api.do(t, http.MethodGet, "/inbox/alice?category=grades", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var msgs []inbox.Message
		require.NoError(t, json.Unmarshal(env.Data, &msgs))
		require.Len(t, msgs, 1)
		assert.Equal(t, "grade", msgs[0].Title)

		rec, env = api.do(t, http.MethodGet, "/inbox/alice?unread=true", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		msgs = nil
		require.NoError(t, json.Unmarshal(env.Data, &msgs))
		require.Len(t, msgs, 1)
		assert.Equal(t, "grade", msgs[0].Title)
	})

	t.Run("paginates", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		seedInbox(t, api, "alice",
			inbox.Message{Title: "one"},
			inbox.Message{Title: "two"},
			inbox.Message{Title: "three"},
		)

		rec, env := api.do(t, http.MethodGet, "/inbox/alice?limit=1&offset=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var msgs []inbox.Message
		require.NoError(t, json.Unmarshal(env.Data, &msgs))
		require.Len(t, msgs, 1)
		assert.Equal(t, "two", msgs[0].Title)
	})

	t.Run("rejects a malformed since filter", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		rec, env := api.do(t, http.MethodGet, "/inbox/alice?since=yesterday", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Details, "since")
	})
}

func TestInboxAPI_UnreadCount(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	stored := seedInbox(t, api, "alice",
		inbox.Message{Title: "one"},
		inbox.Message{Title: "two"},
	)
	require.NoError(t, api.box.MarkRead(context.Background(), "alice", stored[0].ID))

	rec, env := api.do(t, http.MethodGet, "/inbox/alice/unread", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var counts map[string]int
	require.NoError(t, json.Unmarshal(env.Data, &counts))
	assert.Equal(t, 1, counts["unread"])
}

func TestInboxAPI_MarkRead(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	stored := seedInbox(t, api, "alice", inbox.Message{Title: "one"})

	rec, _ := api.do(t, http.MethodPost, "/inbox/alice/"+stored[0].ID.String()+"/read", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	msg, err := api.box.Get(context.Background(), "alice", stored[0].ID)
	require.NoError(t, err)
	assert.True(t, msg.Read)

	rec, _ = api.do(t, http.MethodPost, "/inbox/alice/"+uuid.NewString()+"/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env := api.do(t, http.MethodPost, "/inbox/alice/nope/read", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
}

func TestInboxAPI_MarkAllRead(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	seedInbox(t, api, "alice",
		inbox.Message{Title: "one"},
		inbox.Message{Title: "two"},
	)

	rec, _ := api.do(t, http.MethodPost, "/inbox/alice/read", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	count, err := api.box.CountUnread(context.Background(), "alice")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInboxAPI_Delete(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	stored := seedInbox(t, api, "alice", inbox.Message{Title: "one"})

	rec, _ := api.do(t, http.MethodDelete, "/inbox/alice/"+stored[0].ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := api.box.Get(context.Background(), "alice", stored[0].ID)
	require.ErrorIs(t, err, inbox.ErrMessageNotFound)

	rec, _ = api.do(t, http.MethodDelete, "/inbox/alice/"+stored[0].ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
