package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/notify/pkg/notification"
	"github.com/campushub/notify/pkg/queue"
	"github.com/campushub/notify/pkg/tracker"
)

type senderFunc func(ctx context.Context, task *notification.DeliveryTask) notification.Outcome

func (f senderFunc) Send(ctx context.Context, task *notification.DeliveryTask) notification.Outcome {
	return f(ctx, task)
}

type fakeLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
}

func (l *fakeLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return l.allowed, l.retryAfter, l.err
}

func liveStorage(t *testing.T) *queue.MemoryStorage {
	t.Helper()
	ms := queue.NewMemoryStorage(queue.WithBackoff(tracker.Backoff{Base: time.Hour, Cap: time.Hour}))
	t.Cleanup(func() { _ = ms.Close() })
	return ms
}

func seedTask(t *testing.T, ms *queue.MemoryStorage, channel notification.Channel) *notification.DeliveryTask {
	t.Helper()
	ctx := context.Background()
	n := &notification.Notification{
		ID:        uuid.New(),
		Creator:   "registrar",
		Title:     "Room change",
		Priority:  notification.PriorityDefault,
		Channels:  []notification.Channel{channel},
		Status:    notification.StatusDispatching,
		CreatedAt: time.Now(),
	}
	require.NoError(t, ms.CreateNotification(ctx, n))

	task := &notification.DeliveryTask{
		ID:             uuid.New(),
		NotificationID: n.ID,
		RecipientID:    "alice",
		Channel:        channel,
		Priority:       notification.PriorityDefault,
		Status:         notification.TaskStatusPending,
		MaxAttempts:    tracker.DefaultMaxAttempts,
		EligibleAt:     time.Now().Add(-time.Second),
		CreatedAt:      time.Now(),
	}
	_, err := ms.EnqueueTasks(ctx, []*notification.DeliveryTask{task})
	require.NoError(t, err)
	return task
}

func startWorker(t *testing.T, w *queue.Worker) {
	t.Helper()
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })
}

func taskStatus(t *testing.T, ms *queue.MemoryStorage, id uuid.UUID) notification.TaskStatus {
	t.Helper()
	task, err := ms.GetTask(context.Background(), id)
	require.NoError(t, err)
	return task.Status
}

func TestNewWorker(t *testing.T) {
	t.Parallel()

	t.Run("nil repository", func(t *testing.T) {
		t.Parallel()
		_, err := queue.NewWorker(nil)
		require.ErrorIs(t, err, queue.ErrRepositoryNil)
	})

	t.Run("start requires a sender", func(t *testing.T) {
		t.Parallel()
		w, err := queue.NewWorker(liveStorage(t))
		require.NoError(t, err)
		require.ErrorIs(t, w.Start(context.Background()), queue.ErrNoSenders)
	})

	t.Run("double start and stop lifecycle", func(t *testing.T) {
		t.Parallel()
		w, err := queue.NewWorker(liveStorage(t))
		require.NoError(t, err)
		w.RegisterSender(notification.ChannelEmail, senderFunc(func(context.Context, *notification.DeliveryTask) notification.Outcome {
			return notification.Success()
		}))

		require.ErrorIs(t, w.Stop(), queue.ErrNotStarted)
		require.NoError(t, w.Start(context.Background()))
		require.ErrorIs(t, w.Start(context.Background()), queue.ErrAlreadyStarted)
		require.NoError(t, w.Stop())
	})
}

func TestWorker_DeliversTask(t *testing.T) {
	t.Parallel()

	ms := liveStorage(t)
	task := seedTask(t, ms, notification.ChannelEmail)

	w, err := queue.NewWorker(ms, queue.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	w.RegisterSender(notification.ChannelEmail, senderFunc(func(context.Context, *notification.DeliveryTask) notification.Outcome {
		return notification.Success()
	}))
	startWorker(t, w)

	require.Eventually(t, func() bool {
		return taskStatus(t, ms, task.ID) == notification.TaskStatusSent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_TransientFailureArmsRetry(t *testing.T) {
	t.Parallel()

	ms := liveStorage(t)
	task := seedTask(t, ms, notification.ChannelEmail)

	w, err := queue.NewWorker(ms, queue.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	w.RegisterSender(notification.ChannelEmail, senderFunc(func(context.Context, *notification.DeliveryTask) notification.Outcome {
		return notification.Transient("provider 503")
	}))
	startWorker(t, w)

	require.Eventually(t, func() bool {
		return taskStatus(t, ms, task.ID) == notification.TaskStatusRetryWait
	}, 2*time.Second, 10*time.Millisecond)

	got, err := ms.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttemptCount)
	assert.Equal(t, "provider 503", *got.LastError)
}

func TestWorker_UnregisteredChannelFailsPermanently(t *testing.T) {
	t.Parallel()

	ms := liveStorage(t)
	task := seedTask(t, ms, notification.ChannelSMS)

	w, err := queue.NewWorker(ms, queue.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	w.RegisterSender(notification.ChannelEmail, senderFunc(func(context.Context, *notification.DeliveryTask) notification.Outcome {
		return notification.Success()
	}))
	startWorker(t, w)

	require.Eventually(t, func() bool {
		return taskStatus(t, ms, task.ID) == notification.TaskStatusFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_SenderPanicIsTransient(t *testing.T) {
	t.Parallel()

	ms := liveStorage(t)
	task := seedTask(t, ms, notification.ChannelEmail)

	w, err := queue.NewWorker(ms, queue.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	w.RegisterSender(notification.ChannelEmail, senderFunc(func(context.Context, *notification.DeliveryTask) notification.Outcome {
		panic("template exploded")
	}))
	startWorker(t, w)

	require.Eventually(t, func() bool {
		return taskStatus(t, ms, task.ID) == notification.TaskStatusRetryWait
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_SendTimeout(t *testing.T) {
	t.Parallel()

	ms := liveStorage(t)
	task := seedTask(t, ms, notification.ChannelEmail)

	w, err := queue.NewWorker(ms,
		queue.WithPollInterval(10*time.Millisecond),
		queue.WithSendTimeout(20*time.Millisecond),
	)
	require.NoError(t, err)
	w.RegisterSender(notification.ChannelEmail, senderFunc(func(ctx context.Context, _ *notification.DeliveryTask) notification.Outcome {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return notification.Success()
	}))
	startWorker(t, w)

	require.Eventually(t, func() bool {
		return taskStatus(t, ms, task.ID) == notification.TaskStatusRetryWait
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_PausedClaimsNothing(t *testing.T) {
	t.Parallel()

	ms := liveStorage(t)
	task := seedTask(t, ms, notification.ChannelEmail)

	control := queue.NewControl()
	control.Pause()

	w, err := queue.NewWorker(ms,
		queue.WithPollInterval(10*time.Millisecond),
		queue.WithControl(control),
	)
	require.NoError(t, err)
	w.RegisterSender(notification.ChannelEmail, senderFunc(func(context.Context, *notification.DeliveryTask) notification.Outcome {
		return notification.Success()
	}))
	startWorker(t, w)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, notification.TaskStatusPending, taskStatus(t, ms, task.ID))

	control.Resume()
	require.Eventually(t, func() bool {
		return taskStatus(t, ms, task.ID) == notification.TaskStatusSent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_RateLimitedTaskDeferred(t *testing.T) {
	t.Parallel()

	ms := liveStorage(t)
	task := seedTask(t, ms, notification.ChannelEmail)

	w, err := queue.NewWorker(ms,
		queue.WithPollInterval(10*time.Millisecond),
		queue.WithRateLimiter(&fakeLimiter{allowed: false, retryAfter: time.Hour}),
	)
	require.NoError(t, err)

	sent := make(chan struct{}, 1)
	w.RegisterSender(notification.ChannelEmail, senderFunc(func(context.Context, *notification.DeliveryTask) notification.Outcome {
		sent <- struct{}{}
		return notification.Success()
	}))
	startWorker(t, w)

	require.Eventually(t, func() bool {
		got, err := ms.GetTask(context.Background(), task.ID)
		require.NoError(t, err)
		return got.Status == notification.TaskStatusPending && got.EligibleAt.After(time.Now().Add(30*time.Minute))
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case <-sent:
		t.Fatal("rate-limited task must not reach the sender")
	default:
	}
}

func TestWorker_LimiterErrorFailsOpen(t *testing.T) {
	t.Parallel()

	ms := liveStorage(t)
	task := seedTask(t, ms, notification.ChannelEmail)

	w, err := queue.NewWorker(ms,
		queue.WithPollInterval(10*time.Millisecond),
		queue.WithRateLimiter(&fakeLimiter{err: context.DeadlineExceeded}),
	)
	require.NoError(t, err)
	w.RegisterSender(notification.ChannelEmail, senderFunc(func(context.Context, *notification.DeliveryTask) notification.Outcome {
		return notification.Success()
	}))
	startWorker(t, w)

	require.Eventually(t, func() bool {
		return taskStatus(t, ms, task.ID) == notification.TaskStatusSent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestControl(t *testing.T) {
	t.Parallel()

	c := queue.NewControl()
	assert.False(t, c.Paused())
	assert.False(t, c.Draining())

	c.Pause()
	assert.True(t, c.Paused())
	c.Resume()
	assert.False(t, c.Paused())

	c.DrainNow()
	assert.True(t, c.Draining())
}
