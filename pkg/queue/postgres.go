package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campushub/notify/pkg/notification"
	"github.com/campushub/notify/pkg/pg"
	"github.com/campushub/notify/pkg/tracker"
)

// PostgresStorage implements all queue repository interfaces on PostgreSQL.
// Claims rely on FOR UPDATE SKIP LOCKED so multiple worker processes can
// share one queue without double deliveries.
type PostgresStorage struct {
	pool    *pgxpool.Pool
	backoff tracker.Backoff
	now     func() time.Time
}

// PostgresOption configures PostgresStorage.
type PostgresOption func(*PostgresStorage)

// WithPostgresBackoff overrides the retry policy applied on transient failures.
func WithPostgresBackoff(b tracker.Backoff) PostgresOption {
	return func(ps *PostgresStorage) { ps.backoff = b }
}

// WithPostgresClock injects a time source for tests.
func WithPostgresClock(now func() time.Time) PostgresOption {
	return func(ps *PostgresStorage) {
		if now != nil {
			ps.now = now
		}
	}
}

// NewPostgresStorage creates a queue storage over the given connection pool.
// The schema must already be migrated (see MigrationsFS).
func NewPostgresStorage(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrRepositoryNil
	}
	ps := &PostgresStorage{
		pool:    pool,
		backoff: tracker.DefaultBackoff(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps, nil
}

const notificationColumns = `id, creator, title, body, template_id, variables, category, priority,
	channels, audience, scheduled_for, recurrence, last_fired_at, generation, status, created_at`

const taskColumns = `id, notification_id, recipient_id, channel, priority, status, generation,
	attempt_count, max_attempts, last_error, eligible_at, next_attempt_at, rendered_content,
	locked_by, locked_until, created_at, completed_at`

// CreateNotification implements EnqueuerRepository.
func (ps *PostgresStorage) CreateNotification(ctx context.Context, n *notification.Notification) error {
	channels := make([]string, len(n.Channels))
	for i, ch := range n.Channels {
		channels[i] = string(ch)
	}

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		n.ID, n.Creator, n.Title, n.Body, n.TemplateID, n.Variables, n.Category, int16(n.Priority),
		channels, n.Audience, n.ScheduledFor, n.Recurrence, n.LastFiredAt, n.Generation, string(n.Status), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// EnqueueTasks implements EnqueuerRepository. The batch runs in one
// transaction; rows colliding on the idempotency key are skipped.
func (ps *PostgresStorage) EnqueueTasks(ctx context.Context, tasks []*notification.DeliveryTask) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}

	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("enqueue tasks: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created := 0
	for _, t := range tasks {
		tag, err := tx.Exec(ctx, `
			INSERT INTO delivery_tasks (`+taskColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT ON CONSTRAINT delivery_tasks_idempotency_key DO NOTHING`,
			t.ID, t.NotificationID, t.RecipientID, string(t.Channel), int16(t.Priority), string(t.Status),
			t.Generation, t.AttemptCount, t.MaxAttempts, t.LastError, t.EligibleAt, t.NextAttemptAt,
			t.RenderedContent, t.LockedBy, t.LockedUntil, t.CreatedAt, t.CompletedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("enqueue task %s: %w", t.Key(), err)
		}
		created += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("enqueue tasks: %w", err)
	}
	return created, nil
}

// SetNotificationStatus implements EnqueuerRepository.
func (ps *PostgresStorage) SetNotificationStatus(ctx context.Context, id uuid.UUID, status notification.Status) error {
	tag, err := ps.pool.Exec(ctx,
		`UPDATE notifications SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("set notification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}

// ClaimBatch implements WorkerRepository. Candidate rows are locked with
// SKIP LOCKED so concurrent workers never contend on the same tasks.
func (ps *PostgresStorage) ClaimBatch(ctx context.Context, workerID uuid.UUID, limit int, lockFor time.Duration, drain bool) ([]*notification.DeliveryTask, error) {
	if limit <= 0 {
		limit = 1
	}
	now := ps.now()

	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT `+taskColumns+`
		FROM delivery_tasks
		WHERE status = 'pending'
		  AND ($1 OR eligible_at <= $2)
		  AND (locked_until IS NULL OR locked_until <= $2)
		ORDER BY priority DESC, eligible_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED`,
		drain, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	candidates, err := scanTasks(rows)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoTaskToClaim
	}

	until := now.Add(lockFor)
	claimed := make([]*notification.DeliveryTask, 0, len(candidates))
	for _, t := range candidates {
		if err := tracker.Claim(t, workerID, until); err != nil {
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE delivery_tasks
			SET status = $2, locked_by = $3, locked_until = $4
			WHERE id = $1`,
			t.ID, string(t.Status), t.LockedBy, t.LockedUntil,
		); err != nil {
			return nil, fmt.Errorf("claim task %s: %w", t.ID, err)
		}
		claimed = append(claimed, t)
	}
	if len(claimed) == 0 {
		return nil, ErrNoTaskToClaim
	}

	// First claim moves a scheduled notification into dispatching.
	parents := make(map[uuid.UUID]struct{}, len(claimed))
	for _, t := range claimed {
		parents[t.NotificationID] = struct{}{}
	}
	for id := range parents {
		if _, err := tx.Exec(ctx, `
			UPDATE notifications SET status = 'dispatching'
			WHERE id = $1 AND status = 'scheduled'`,
			id,
		); err != nil {
			return nil, fmt.Errorf("promote notification %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	return claimed, nil
}

// Resolve implements WorkerRepository.
func (ps *PostgresStorage) Resolve(ctx context.Context, taskID uuid.UUID, outcome notification.Outcome) error {
	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("resolve task: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := ps.getTaskForUpdate(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if t.Status != notification.TaskStatusInFlight {
		return fmt.Errorf("%w: %s", ErrTaskNotInFlight, t.Status)
	}

	var parentStatus string
	if err := tx.QueryRow(ctx,
		`SELECT status FROM notifications WHERE id = $1 FOR UPDATE`,
		t.NotificationID,
	).Scan(&parentStatus); err != nil {
		return fmt.Errorf("resolve task: load parent: %w", err)
	}

	now := ps.now()
	if notification.Status(parentStatus) == notification.StatusCancelled {
		// The parent was cancelled while the send was in flight: discard
		// the outcome and force the task to cancelled.
		tracker.Cancel(t, now)
	} else if err := tracker.Apply(t, outcome, now, ps.backoff); err != nil {
		return err
	}

	if err := ps.updateTaskState(ctx, tx, t); err != nil {
		return err
	}
	if err := ps.completeIfDone(ctx, tx, t.NotificationID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("resolve task: %w", err)
	}
	return nil
}

// Defer implements WorkerRepository: the task returns to pending with a new
// eligibility time and no attempt charged.
func (ps *PostgresStorage) Defer(ctx context.Context, taskID uuid.UUID, until time.Time) error {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE delivery_tasks
		SET status = 'pending', eligible_at = $2, locked_by = NULL, locked_until = NULL
		WHERE id = $1 AND status = 'in_flight'`,
		taskID, until,
	)
	if err != nil {
		return fmt.Errorf("defer task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if exists, err := ps.taskExists(ctx, taskID); err != nil {
			return err
		} else if !exists {
			return notification.ErrTaskNotFound
		}
		return fmt.Errorf("%w: defer", ErrTaskNotInFlight)
	}
	return nil
}

// ReleaseExpired implements WorkerRepository.
func (ps *PostgresStorage) ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE delivery_tasks
		SET status = 'pending', locked_by = NULL, locked_until = NULL
		WHERE status = 'in_flight' AND locked_until < $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("release expired locks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// PromoteDue implements SchedulerRepository.
func (ps *PostgresStorage) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE delivery_tasks
		SET status = 'pending', eligible_at = next_attempt_at, next_attempt_at = NULL
		WHERE status = 'retry_wait' AND next_attempt_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("promote due retries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListRecurring implements SchedulerRepository.
func (ps *PostgresStorage) ListRecurring(ctx context.Context) ([]*notification.Notification, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recurrence IS NOT NULL AND status NOT IN ('completed', 'cancelled')`)
	if err != nil {
		return nil, fmt.Errorf("list recurring: %w", err)
	}
	return scanNotifications(rows)
}

// MarkFired implements SchedulerRepository.
func (ps *PostgresStorage) MarkFired(ctx context.Context, id uuid.UUID, firedAt time.Time) error {
	tag, err := ps.pool.Exec(ctx,
		`UPDATE notifications SET last_fired_at = $2, generation = generation + 1 WHERE id = $1`, id, firedAt)
	if err != nil {
		return fmt.Errorf("mark fired: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}

// GetNotification implements QueryRepository.
func (ps *PostgresStorage) GetNotification(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	rows, err := ps.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	ns, err := scanNotifications(rows)
	if err != nil {
		return nil, err
	}
	if len(ns) == 0 {
		return nil, notification.ErrNotFound
	}
	return ns[0], nil
}

// GetTask implements QueryRepository.
func (ps *PostgresStorage) GetTask(ctx context.Context, id uuid.UUID) (*notification.DeliveryTask, error) {
	rows, err := ps.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM delivery_tasks WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	ts, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, notification.ErrTaskNotFound
	}
	return ts[0], nil
}

// StatusCounts implements QueryRepository.
func (ps *PostgresStorage) StatusCounts(ctx context.Context, id uuid.UUID) (notification.StatusCounts, error) {
	var counts notification.StatusCounts

	if _, err := ps.GetNotification(ctx, id); err != nil {
		return counts, err
	}

	rows, err := ps.pool.Query(ctx, `
		SELECT status, count(*) FROM delivery_tasks WHERE notification_id = $1 GROUP BY status`, id)
	if err != nil {
		return counts, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, fmt.Errorf("status counts: %w", err)
		}
		for i := 0; i < n; i++ {
			counts.Add(notification.TaskStatus(status))
		}
	}
	return counts, rows.Err()
}

// CancelNotification implements QueryRepository. Idempotent: cancelling an
// already-cancelled notification is a no-op.
func (ps *PostgresStorage) CancelNotification(ctx context.Context, id uuid.UUID) error {
	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cancel notification: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM notifications WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return notification.ErrNotFound
		}
		return fmt.Errorf("cancel notification: %w", err)
	}

	current := notification.Status(status)
	if current == notification.StatusCancelled {
		return nil
	}
	if !current.Cancellable() {
		return notification.ErrNotCancellable
	}

	now := ps.now()
	if _, err := tx.Exec(ctx,
		`UPDATE notifications SET status = 'cancelled' WHERE id = $1`, id); err != nil {
		return fmt.Errorf("cancel notification: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE delivery_tasks
		SET status = 'cancelled', completed_at = $2, locked_by = NULL, locked_until = NULL
		WHERE notification_id = $1 AND status IN ('pending', 'in_flight', 'retry_wait')`,
		id, now,
	); err != nil {
		return fmt.Errorf("cancel notification tasks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("cancel notification: %w", err)
	}
	return nil
}

// ResetTask implements QueryRepository.
func (ps *PostgresStorage) ResetTask(ctx context.Context, taskID uuid.UUID) error {
	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("reset task: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := ps.getTaskForUpdate(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if err := tracker.ResetForRetry(t, ps.now()); err != nil {
		return err
	}
	if err := ps.updateTaskState(ctx, tx, t); err != nil {
		return err
	}

	// Reopen the parent so the status query reflects the renewed work.
	if _, err := tx.Exec(ctx, `
		UPDATE notifications SET status = 'dispatching'
		WHERE id = $1 AND status = 'completed'`,
		t.NotificationID,
	); err != nil {
		return fmt.Errorf("reset task: reopen parent: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("reset task: %w", err)
	}
	return nil
}

func (ps *PostgresStorage) getTaskForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*notification.DeliveryTask, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+taskColumns+` FROM delivery_tasks WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	ts, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, notification.ErrTaskNotFound
	}
	return ts[0], nil
}

// updateTaskState writes back the mutable columns after a tracker transition.
func (ps *PostgresStorage) updateTaskState(ctx context.Context, tx pgx.Tx, t *notification.DeliveryTask) error {
	_, err := tx.Exec(ctx, `
		UPDATE delivery_tasks
		SET status = $2, attempt_count = $3, last_error = $4, eligible_at = $5,
		    next_attempt_at = $6, locked_by = $7, locked_until = $8, completed_at = $9
		WHERE id = $1`,
		t.ID, string(t.Status), t.AttemptCount, t.LastError, t.EligibleAt,
		t.NextAttemptAt, t.LockedBy, t.LockedUntil, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	return nil
}

// completeIfDone flips the notification to completed once every task has
// reached a terminal state. Recurring notifications stay active between
// generations.
func (ps *PostgresStorage) completeIfDone(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE notifications n SET status = 'completed'
		WHERE n.id = $1
		  AND n.status NOT IN ('completed', 'cancelled')
		  AND n.recurrence IS NULL
		  AND EXISTS (SELECT 1 FROM delivery_tasks t WHERE t.notification_id = n.id)
		  AND NOT EXISTS (
			SELECT 1 FROM delivery_tasks t
			WHERE t.notification_id = n.id
			  AND t.status IN ('pending', 'in_flight', 'retry_wait')
		  )`,
		id,
	)
	if err != nil {
		return fmt.Errorf("complete notification: %w", err)
	}
	return nil
}

func (ps *PostgresStorage) taskExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := ps.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM delivery_tasks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("task exists: %w", err)
	}
	return exists, nil
}

func scanNotifications(rows pgx.Rows) ([]*notification.Notification, error) {
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		var (
			n        notification.Notification
			priority int16
			channels []string
			status   string
		)
		if err := rows.Scan(
			&n.ID, &n.Creator, &n.Title, &n.Body, &n.TemplateID, &n.Variables, &n.Category, &priority,
			&channels, &n.Audience, &n.ScheduledFor, &n.Recurrence, &n.LastFiredAt, &n.Generation, &status, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Priority = notification.Priority(priority)
		n.Status = notification.Status(status)
		n.Channels = make([]notification.Channel, len(channels))
		for i, ch := range channels {
			n.Channels[i] = notification.Channel(ch)
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func scanTasks(rows pgx.Rows) ([]*notification.DeliveryTask, error) {
	defer rows.Close()

	var out []*notification.DeliveryTask
	for rows.Next() {
		var (
			t        notification.DeliveryTask
			priority int16
			channel  string
			status   string
		)
		if err := rows.Scan(
			&t.ID, &t.NotificationID, &t.RecipientID, &channel, &priority, &status, &t.Generation,
			&t.AttemptCount, &t.MaxAttempts, &t.LastError, &t.EligibleAt, &t.NextAttemptAt, &t.RenderedContent,
			&t.LockedBy, &t.LockedUntil, &t.CreatedAt, &t.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Channel = notification.Channel(channel)
		t.Priority = notification.Priority(priority)
		t.Status = notification.TaskStatus(status)
		out = append(out, &t)
	}
	return out, rows.Err()
}
