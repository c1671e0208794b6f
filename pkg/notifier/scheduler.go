package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/campushub/notify/pkg/notification"
	"github.com/campushub/notify/pkg/queue"
	"github.com/campushub/notify/pkg/schedule"
)

const defaultTickInterval = 15 * time.Second

// Scheduler drives the periodic maintenance tick: recovering expired worker
// locks, promoting tasks whose retry backoff elapsed, and firing recurring
// notifications.
type Scheduler struct {
	repo queue.Repository
	svc  *Service
	log  *slog.Logger

	interval time.Duration
	now      func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval overrides how often the maintenance tick runs.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSchedulerLogger sets the structured logger.
func WithSchedulerLogger(log *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSchedulerClock injects a time source for tests.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler creates a scheduler bound to the orchestrator it fans
// recurrence firings through.
func NewScheduler(repo queue.Repository, svc *Service, opts ...SchedulerOption) (*Scheduler, error) {
	if repo == nil {
		return nil, queue.ErrRepositoryNil
	}
	s := &Scheduler{
		repo:     repo,
		svc:      svc,
		log:      slog.Default(),
		interval: defaultTickInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run ticks until the context is cancelled. Always returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.InfoContext(ctx, "scheduler started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.InfoContext(ctx, "scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one maintenance pass. Exported so tests and administrative
// endpoints can force a pass without waiting for the ticker.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()

	if released, err := s.repo.ReleaseExpired(ctx, now); err != nil {
		s.log.ErrorContext(ctx, "releasing expired locks failed", slog.Any("error", err))
	} else if released > 0 {
		s.log.InfoContext(ctx, "expired locks released", slog.Int("tasks", released))
	}

	if promoted, err := s.repo.PromoteDue(ctx, now); err != nil {
		s.log.ErrorContext(ctx, "promoting retry tasks failed", slog.Any("error", err))
	} else if promoted > 0 {
		s.log.InfoContext(ctx, "retry tasks promoted", slog.Int("tasks", promoted))
	}

	s.fireRecurring(ctx, now)
}

// fireRecurring opens a new task generation for every recurring notification
// whose next occurrence has arrived. Each firing is independent: one failure
// is logged and does not block the others.
func (s *Scheduler) fireRecurring(ctx context.Context, now time.Time) {
	recurring, err := s.repo.ListRecurring(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "listing recurring notifications failed", slog.Any("error", err))
		return
	}

	for _, n := range recurring {
		// A recurrence that has never fired anchors its first occurrence on
		// the creation time; afterwards each firing anchors the next.
		anchor := n.LastFiredAt
		if anchor == nil {
			anchor = &n.CreatedAt
		}
		next, ok := schedule.NextFireTime(*n.Recurrence, anchor, now)
		if !ok || next.After(now) {
			continue
		}
		if err := s.fire(ctx, n, next); err != nil {
			s.log.ErrorContext(ctx, "recurrence firing failed",
				slog.Any("notification_id", n.ID),
				slog.Any("error", err),
			)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, n *notification.Notification, at time.Time) error {
	tasks, recipients, err := s.svc.fanOut(ctx, n, at, n.Generation)
	if err != nil {
		return err
	}

	created := 0
	if len(tasks) > 0 {
		if created, err = s.repo.EnqueueTasks(ctx, tasks); err != nil {
			return err
		}
	}
	// MarkFired advances the generation; a crash between enqueue and here
	// re-fires the same generation, which the idempotency key absorbs.
	if err := s.repo.MarkFired(ctx, n.ID, at); err != nil {
		return err
	}
	if n.Status == notification.StatusScheduled && created > 0 {
		if err := s.repo.SetNotificationStatus(ctx, n.ID, notification.StatusDispatching); err != nil {
			return err
		}
	}

	s.log.InfoContext(ctx, "recurrence fired",
		slog.Any("notification_id", n.ID),
		slog.Int("generation", n.Generation),
		slog.Time("occurrence", at),
		slog.Int("recipients", recipients),
		slog.Int("tasks", created),
	)
	return nil
}
