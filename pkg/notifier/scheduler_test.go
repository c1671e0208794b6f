package notifier_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/notify/pkg/audience"
	"github.com/campushub/notify/pkg/notification"
	"github.com/campushub/notify/pkg/notifier"
	"github.com/campushub/notify/pkg/preference"
	"github.com/campushub/notify/pkg/queue"
	"github.com/campushub/notify/pkg/schedule"
	"github.com/campushub/notify/pkg/template"
)

type schedulerFixture struct {
	repo  *queue.MemoryStorage
	svc   *notifier.Service
	sched *notifier.Scheduler
	now   time.Time
}

func (f *schedulerFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	f := &schedulerFixture{now: time.Date(2026, 5, 11, 12, 0, 0, 0, time.UTC)}
	clockFn := func() time.Time { return f.now }

	f.repo = queue.NewMemoryStorage(queue.WithClock(clockFn))
	t.Cleanup(func() { _ = f.repo.Close() })

	users := &audience.StaticUserStore{
		Users: []audience.StaticUser{
			{ID: "alice", Role: notification.RoleStudent},
			{ID: "bob", Role: notification.RoleStudent},
		},
	}
	resolver, err := audience.NewResolver(users)
	require.NoError(t, err)

	f.svc, err = notifier.NewService(f.repo, resolver, preference.StaticStore{},
		template.NewResolver(nil), queue.NewControl(),
		notifier.WithServiceClock(clockFn),
	)
	require.NoError(t, err)

	f.sched, err = notifier.NewScheduler(f.repo, f.svc, notifier.WithSchedulerClock(clockFn))
	require.NoError(t, err)

	return f
}

func TestNewScheduler(t *testing.T) {
	t.Parallel()
	_, err := notifier.NewScheduler(nil, nil)
	require.ErrorIs(t, err, queue.ErrRepositoryNil)
}

func TestScheduler_Tick_FiresRecurrence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newSchedulerFixture(t)

	in := baseInput()
	rule := schedule.EveryInterval(time.Hour)
	in.Recurrence = &rule
	res, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	require.Equal(t, notification.StatusScheduled, res.Notification.Status)
	require.Zero(t, res.Tasks)

	// Not due yet: the first occurrence is one interval after creation.
	f.sched.Tick(ctx)
	counts, err := f.repo.StatusCounts(ctx, res.Notification.ID)
	require.NoError(t, err)
	require.Zero(t, counts.Total())

	f.advance(61 * time.Minute)
	f.sched.Tick(ctx)

	counts, err = f.repo.StatusCounts(ctx, res.Notification.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Pending)

	stored, err := f.repo.GetNotification(ctx, res.Notification.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusDispatching, stored.Status)
	assert.Equal(t, 1, stored.Generation)
	require.NotNil(t, stored.LastFiredAt)

	// The same window does not fire twice.
	f.sched.Tick(ctx)
	counts, err = f.repo.StatusCounts(ctx, res.Notification.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Pending)
}

func TestScheduler_Tick_SuccessiveGenerations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newSchedulerFixture(t)

	in := baseInput()
	in.Audience = notification.AudienceSpec{Kind: notification.AudienceIDs, IDs: []string{"alice"}}
	rule := schedule.EveryInterval(time.Hour)
	in.Recurrence = &rule
	res, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	f.advance(61 * time.Minute)
	f.sched.Tick(ctx)
	f.advance(time.Hour)
	f.sched.Tick(ctx)

	counts, err := f.repo.StatusCounts(ctx, res.Notification.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Total())

	stored, err := f.repo.GetNotification(ctx, res.Notification.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Generation)
}

func TestScheduler_Tick_StalledCatchUpFiresOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newSchedulerFixture(t)

	in := baseInput()
	in.Audience = notification.AudienceSpec{Kind: notification.AudienceIDs, IDs: []string{"alice"}}
	rule := schedule.EveryInterval(time.Hour)
	in.Recurrence = &rule
	res, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	// Several occurrences pass with no tick; a single tick fires one
	// generation for the whole missed window.
	f.advance(5 * time.Hour)
	f.sched.Tick(ctx)

	counts, err := f.repo.StatusCounts(ctx, res.Notification.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Total())

	stored, err := f.repo.GetNotification(ctx, res.Notification.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Generation)
}

func TestScheduler_Tick_CancelledRecurrenceStops(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newSchedulerFixture(t)

	in := baseInput()
	rule := schedule.EveryInterval(time.Hour)
	in.Recurrence = &rule
	res, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, res.Notification.ID))

	f.advance(2 * time.Hour)
	f.sched.Tick(ctx)

	counts, err := f.repo.StatusCounts(ctx, res.Notification.ID)
	require.NoError(t, err)
	assert.Zero(t, counts.Total())
}

func TestScheduler_Tick_PromotesElapsedRetries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newSchedulerFixture(t)

	res, err := f.svc.Create(ctx, baseInput())
	require.NoError(t, err)
	require.Equal(t, 2, res.Tasks)

	claimed, err := f.repo.ClaimBatch(ctx, uuid.New(), 1, time.Minute, false)
	require.NoError(t, err)
	require.NoError(t, f.repo.Resolve(ctx, claimed[0].ID, notification.Transient("provider 503")))

	task, err := f.repo.GetTask(ctx, claimed[0].ID)
	require.NoError(t, err)
	require.Equal(t, notification.TaskStatusRetryWait, task.Status)

	f.advance(2 * time.Hour)
	f.sched.Tick(ctx)

	task, err = f.repo.GetTask(ctx, claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, notification.TaskStatusPending, task.Status)
}

func TestScheduler_Tick_ReleasesExpiredLocks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newSchedulerFixture(t)

	_, err := f.svc.Create(ctx, baseInput())
	require.NoError(t, err)

	claimed, err := f.repo.ClaimBatch(ctx, uuid.New(), 2, time.Minute, false)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	f.advance(5 * time.Minute)
	f.sched.Tick(ctx)

	for _, c := range claimed {
		task, err := f.repo.GetTask(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.TaskStatusPending, task.Status)
	}
}
