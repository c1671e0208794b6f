package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/notify/pkg/audience"
	"github.com/campushub/notify/pkg/audit"
	"github.com/campushub/notify/pkg/notification"
	"github.com/campushub/notify/pkg/preference"
	"github.com/campushub/notify/pkg/queue"
	"github.com/campushub/notify/pkg/schedule"
	"github.com/campushub/notify/pkg/template"
	"github.com/campushub/notify/pkg/tracker"
)

// Service is the orchestrator: it turns send requests into persisted
// notifications with a fanned-out task set, and exposes lifecycle and queue
// control operations.
type Service struct {
	repo      queue.Repository
	resolver  *audience.Resolver
	prefs     preference.Store
	templates *template.Resolver
	control   *queue.Control
	trail     *audit.Logger
	log       *slog.Logger

	maxAttempts int
	now         func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAudit attaches an audit trail; without it lifecycle actions are not
// audited.
func WithAudit(trail *audit.Logger) ServiceOption {
	return func(s *Service) { s.trail = trail }
}

// WithServiceLogger sets the structured logger.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMaxAttempts overrides the per-task delivery attempt budget.
func WithMaxAttempts(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithServiceClock injects a time source for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the orchestrator.
func NewService(
	repo queue.Repository,
	resolver *audience.Resolver,
	prefs preference.Store,
	templates *template.Resolver,
	control *queue.Control,
	opts ...ServiceOption,
) (*Service, error) {
	if repo == nil {
		return nil, queue.ErrRepositoryNil
	}
	if control == nil {
		control = queue.NewControl()
	}
	s := &Service{
		repo:        repo,
		resolver:    resolver,
		prefs:       prefs,
		templates:   templates,
		control:     control,
		log:         slog.Default(),
		maxAttempts: tracker.DefaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Control returns the queue control shared with the worker pool.
func (s *Service) Control() *queue.Control {
	return s.control
}

// CreateInput is a send request before validation.
type CreateInput struct {
	Creator      string                    `json:"creator"`
	Title        string                    `json:"title"`
	Body         string                    `json:"body"`
	TemplateID   string                    `json:"template_id"`
	Variables    map[string]string         `json:"variables"`
	Category     string                    `json:"category"`
	Priority     notification.Priority     `json:"priority"`
	Channels     []notification.Channel    `json:"channels"`
	Audience     notification.AudienceSpec `json:"audience"`
	ScheduledFor *time.Time                `json:"scheduled_for,omitempty"`
	Recurrence   *schedule.Rule            `json:"recurrence,omitempty"`
}

func (in CreateInput) validate() error {
	if in.Title == "" && in.TemplateID == "" {
		return fmt.Errorf("%w: title or template is required", notification.ErrValidation)
	}
	if len(in.Channels) == 0 {
		return notification.ErrNoChannels
	}
	for _, ch := range in.Channels {
		if !ch.Valid() {
			return fmt.Errorf("%w: %q", notification.ErrUnknownChannel, ch)
		}
	}
	if !in.Audience.Valid() {
		return fmt.Errorf("%w: malformed audience", notification.ErrValidation)
	}
	if in.Recurrence != nil {
		if err := in.Recurrence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CreateResult reports what a send request produced.
type CreateResult struct {
	Notification *notification.Notification `json:"notification"`
	Recipients   int                        `json:"recipients"`
	Tasks        int                        `json:"tasks"`
}

// Create validates a send request, fans it out, and enqueues the delivery
// tasks. The task batch is stored atomically; a failure leaves no partial
// fan-out behind.
//
// Per-recipient channel filtering applies recipient preferences; a recipient
// with every channel filtered is skipped entirely. A channel whose content
// fails to render is dropped for all recipients, never failing the whole
// request unless no channel remains.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	n := &notification.Notification{
		ID:           uuid.New(),
		Creator:      in.Creator,
		Title:        in.Title,
		Body:         in.Body,
		TemplateID:   in.TemplateID,
		Variables:    in.Variables,
		Category:     in.Category,
		Priority:     in.Priority,
		Channels:     in.Channels,
		Audience:     in.Audience,
		ScheduledFor: in.ScheduledFor,
		Recurrence:   in.Recurrence,
		CreatedAt:    now,
	}

	// A recurrence without an explicit first firing waits for the scheduler.
	deferToScheduler := n.Recurring() && in.ScheduledFor == nil

	var tasks []*notification.DeliveryTask
	recipients := 0
	if !deferToScheduler {
		base := now
		if in.ScheduledFor != nil {
			base = *in.ScheduledFor
		}

		var err error
		tasks, recipients, err = s.fanOut(ctx, n, base, 0)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case deferToScheduler:
		n.Status = notification.StatusScheduled
	case in.ScheduledFor != nil && in.ScheduledFor.After(now):
		n.Status = notification.StatusScheduled
	case len(tasks) == 0 && !n.Recurring():
		// Nobody to reach: the notification completes immediately.
		n.Status = notification.StatusCompleted
	default:
		n.Status = notification.StatusDispatching
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	created := 0
	if len(tasks) > 0 {
		var err error
		created, err = s.repo.EnqueueTasks(ctx, tasks)
		if err != nil {
			return nil, err
		}
	}
	if !deferToScheduler && n.Recurring() {
		// Anchor the recurrence on the first firing.
		firedAt := now
		if in.ScheduledFor != nil {
			firedAt = *in.ScheduledFor
		}
		if err := s.repo.MarkFired(ctx, n.ID, firedAt); err != nil {
			return nil, err
		}
	}

	s.log.InfoContext(ctx, "notification created",
		slog.Any("notification_id", n.ID),
		slog.String("status", string(n.Status)),
		slog.Int("recipients", recipients),
		slog.Int("tasks", created),
	)
	if s.trail != nil {
		s.trail.Log(ctx, "notification.created",
			audit.WithNotification(n.ID.String()),
			audit.WithMetadata(map[string]any{
				"recipients": recipients,
				"tasks":      created,
				"status":     string(n.Status),
			}),
		)
	}

	return &CreateResult{Notification: n, Recipients: recipients, Tasks: created}, nil
}

// Broadcast sends to every known user, regardless of the audience supplied.
func (s *Service) Broadcast(ctx context.Context, in CreateInput) (*CreateResult, error) {
	in.Audience = notification.AudienceSpec{Kind: notification.AudienceAll}
	return s.Create(ctx, in)
}

// fanOut renders content per channel and produces the task set for one
// generation of the notification.
func (s *Service) fanOut(ctx context.Context, n *notification.Notification, base time.Time, generation int) ([]*notification.DeliveryTask, int, error) {
	ids, err := s.resolver.Resolve(ctx, n.Audience)
	if err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return nil, 0, nil
	}

	prefs, err := s.prefs.Get(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	src := template.Source{
		TemplateID: n.TemplateID,
		Title:      n.Title,
		Body:       n.Body,
		Variables:  n.Variables,
	}
	rendered := make(map[notification.Channel][]byte, len(n.Channels))
	for _, ch := range n.Channels {
		content, err := s.templates.Render(ctx, src, ch)
		if err != nil {
			// A render failure silences one channel, not the send.
			s.log.WarnContext(ctx, "channel dropped: content render failed",
				slog.Any("notification_id", n.ID),
				slog.String("channel", string(ch)),
				slog.Any("error", err),
			)
			continue
		}
		raw, err := content.Encode()
		if err != nil {
			return nil, 0, err
		}
		rendered[ch] = raw
	}
	if len(rendered) == 0 {
		return nil, 0, fmt.Errorf("%w: no channel content could be rendered", notification.ErrValidation)
	}

	var tasks []*notification.DeliveryTask
	recipients := 0
	for _, id := range ids {
		pref := prefs[id]

		reached := false
		for _, ch := range n.Channels {
			raw, ok := rendered[ch]
			if !ok {
				continue
			}
			if !pref.Allows(ch, n.Category) {
				continue
			}

			tasks = append(tasks, &notification.DeliveryTask{
				ID:              uuid.New(),
				NotificationID:  n.ID,
				RecipientID:     id,
				Channel:         ch,
				Priority:        n.Priority,
				Status:          notification.TaskStatusPending,
				Generation:      generation,
				MaxAttempts:     s.maxAttempts,
				EligibleAt:      pref.DeferUntil(base, n.Priority),
				RenderedContent: raw,
				CreatedAt:       s.now(),
			})
			reached = true
		}
		if reached {
			recipients++
		}
	}
	return tasks, recipients, nil
}

// Cancel stops a notification. Pending and waiting tasks flip to cancelled;
// in-flight sends have their outcome discarded on resolve. Already-delivered
// messages are not retracted. Idempotent.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.CancelNotification(ctx, id); err != nil {
		if s.trail != nil && !errors.Is(err, notification.ErrNotFound) {
			s.trail.LogError(ctx, "notification.cancelled", err, audit.WithNotification(id.String()))
		}
		return err
	}

	s.log.InfoContext(ctx, "notification cancelled", slog.Any("notification_id", id))
	if s.trail != nil {
		s.trail.Log(ctx, "notification.cancelled", audit.WithNotification(id.String()))
	}
	return nil
}

// StatusReport combines a notification with its task state aggregation.
type StatusReport struct {
	Notification *notification.Notification `json:"notification"`
	Counts       notification.StatusCounts  `json:"counts"`
}

// Status returns the notification and a per-state task count.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (*StatusReport, error) {
	n, err := s.repo.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.StatusCounts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusReport{Notification: n, Counts: counts}, nil
}

// RetryTask is the manual override for a permanently failed task: it resets
// the attempt budget and requeues the task immediately.
func (s *Service) RetryTask(ctx context.Context, taskID uuid.UUID) error {
	if err := s.repo.ResetTask(ctx, taskID); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "task reset for retry", slog.Any("task_id", taskID))
	if s.trail != nil {
		s.trail.Log(ctx, "task.retried", audit.WithTask(taskID.String()))
	}
	return nil
}

// Pause stops workers from claiming new tasks. In-flight sends finish.
func (s *Service) Pause(ctx context.Context) {
	s.control.Pause()
	s.log.InfoContext(ctx, "queue paused")
	if s.trail != nil {
		s.trail.Log(ctx, "queue.paused")
	}
}

// Resume lifts a pause.
func (s *Service) Resume(ctx context.Context) {
	s.control.Resume()
	s.log.InfoContext(ctx, "queue resumed")
	if s.trail != nil {
		s.trail.Log(ctx, "queue.resumed")
	}
}

// DrainNow makes future-scheduled pending tasks immediately claimable until
// the backlog empties. Retry backoff still applies.
func (s *Service) DrainNow(ctx context.Context) {
	s.control.DrainNow()
	s.log.InfoContext(ctx, "queue drain requested")
	if s.trail != nil {
		s.trail.Log(ctx, "queue.drained")
	}
}
