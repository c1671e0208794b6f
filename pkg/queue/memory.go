package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/notify/pkg/notification"
	"github.com/campushub/notify/pkg/tracker"
)

// MemoryStorage implements all queue repository interfaces in memory, for
// tests and local development. All operations are guarded by a single mutex;
// every transition is a constant-time single-task mutation, so no lock is
// ever held across a send.
type MemoryStorage struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*notification.Notification
	tasks         map[uuid.UUID]*notification.DeliveryTask

	// Indexes for claim scans and idempotent enqueue.
	byKey    map[notification.TaskKey]uuid.UUID
	byStatus map[notification.TaskStatus]map[uuid.UUID]struct{}
	byNotif  map[uuid.UUID][]uuid.UUID

	backoff tracker.Backoff
	now     func() time.Time

	lockTicker *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// MemoryOption configures MemoryStorage.
type MemoryOption func(*MemoryStorage)

// WithBackoff overrides the retry policy applied on transient failures.
func WithBackoff(b tracker.Backoff) MemoryOption {
	return func(ms *MemoryStorage) { ms.backoff = b }
}

// WithClock injects a time source, used by tests to control visibility.
func WithClock(now func() time.Time) MemoryOption {
	return func(ms *MemoryStorage) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStorage creates an in-memory queue storage and starts its lock
// expiration manager.
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	ms := &MemoryStorage{
		notifications: make(map[uuid.UUID]*notification.Notification),
		tasks:         make(map[uuid.UUID]*notification.DeliveryTask),
		byKey:         make(map[notification.TaskKey]uuid.UUID),
		byStatus:      make(map[notification.TaskStatus]map[uuid.UUID]struct{}),
		byNotif:       make(map[uuid.UUID][]uuid.UUID),
		backoff:       tracker.DefaultBackoff(),
		now:           time.Now,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}

	ms.lockTicker = time.NewTicker(time.Second)
	go ms.lockExpirationManager()

	return ms
}

// Close stops the background lock manager.
func (ms *MemoryStorage) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.done)
		ms.lockTicker.Stop()
	})
	return nil
}

// CreateNotification implements EnqueuerRepository.
func (ms *MemoryStorage) CreateNotification(_ context.Context, n *notification.Notification) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.notifications[n.ID]; exists {
		return fmt.Errorf("notification %s already exists", n.ID)
	}
	cp := *n
	ms.notifications[n.ID] = &cp
	return nil
}

// EnqueueTasks implements EnqueuerRepository. The whole batch is applied
// under one lock, so the all-or-nothing guarantee holds trivially; tasks
// whose idempotency key already exists are skipped.
func (ms *MemoryStorage) EnqueueTasks(_ context.Context, tasks []*notification.DeliveryTask) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	created := 0
	for _, t := range tasks {
		if t == nil {
			return 0, errors.New("task cannot be nil")
		}
		if _, exists := ms.byKey[t.Key()]; exists {
			continue
		}
		cp := *t
		ms.tasks[t.ID] = &cp
		ms.byKey[t.Key()] = t.ID
		ms.indexStatus(t.ID, t.Status)
		ms.byNotif[t.NotificationID] = append(ms.byNotif[t.NotificationID], t.ID)
		created++
	}
	return created, nil
}

// SetNotificationStatus implements EnqueuerRepository.
func (ms *MemoryStorage) SetNotificationStatus(_ context.Context, id uuid.UUID, status notification.Status) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, exists := ms.notifications[id]
	if !exists {
		return notification.ErrNotFound
	}
	n.Status = status
	return nil
}

// ClaimBatch implements WorkerRepository. Selection is priority-first,
// eligibility-second: the urgent tier strictly preempts lower tiers, and
// within a tier earlier visibility wins.
func (ms *MemoryStorage) ClaimBatch(_ context.Context, workerID uuid.UUID, limit int, lockFor time.Duration, drain bool) ([]*notification.DeliveryTask, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()

	var candidates []*notification.DeliveryTask
	for id := range ms.byStatus[notification.TaskStatusPending] {
		t := ms.tasks[id]
		if t.EligibleAt.After(now) && !drain {
			continue
		}
		if t.LockedUntil != nil && t.LockedUntil.After(now) {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return nil, ErrNoTaskToClaim
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].VisibleAt().Before(candidates[j].VisibleAt())
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	until := now.Add(lockFor)
	claimed := make([]*notification.DeliveryTask, 0, len(candidates))
	for _, t := range candidates {
		ms.unindexStatus(t.ID, t.Status)
		if err := tracker.Claim(t, workerID, until); err != nil {
			ms.indexStatus(t.ID, t.Status)
			continue
		}
		ms.indexStatus(t.ID, t.Status)
		if n := ms.notifications[t.NotificationID]; n != nil && n.Status == notification.StatusScheduled {
			// First claim moves a scheduled notification into dispatching.
			n.Status = notification.StatusDispatching
		}
		cp := *t
		claimed = append(claimed, &cp)
	}
	if len(claimed) == 0 {
		return nil, ErrNoTaskToClaim
	}
	return claimed, nil
}

// Resolve implements WorkerRepository.
func (ms *MemoryStorage) Resolve(_ context.Context, taskID uuid.UUID, outcome notification.Outcome) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, exists := ms.tasks[taskID]
	if !exists {
		return notification.ErrTaskNotFound
	}
	if t.Status != notification.TaskStatusInFlight {
		return fmt.Errorf("%w: %s", ErrTaskNotInFlight, t.Status)
	}

	now := ms.now()
	n := ms.notifications[t.NotificationID]

	prev := t.Status
	if n != nil && n.Status == notification.StatusCancelled {
		// The parent was cancelled while the send was in flight: discard
		// the outcome and force the task to cancelled.
		tracker.Cancel(t, now)
	} else if err := tracker.Apply(t, outcome, now, ms.backoff); err != nil {
		return err
	}
	ms.unindexStatus(taskID, prev)
	ms.indexStatus(taskID, t.Status)

	ms.completeIfDone(t.NotificationID)
	return nil
}

// Defer implements WorkerRepository: the task returns to pending with a new
// eligibility time and no attempt charged.
func (ms *MemoryStorage) Defer(_ context.Context, taskID uuid.UUID, until time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, exists := ms.tasks[taskID]
	if !exists {
		return notification.ErrTaskNotFound
	}
	if t.Status != notification.TaskStatusInFlight {
		return fmt.Errorf("%w: %s", ErrTaskNotInFlight, t.Status)
	}

	ms.unindexStatus(taskID, t.Status)
	t.Status = notification.TaskStatusPending
	t.EligibleAt = until
	t.LockedBy = nil
	t.LockedUntil = nil
	ms.indexStatus(taskID, t.Status)
	return nil
}

// ReleaseExpired implements WorkerRepository: tasks locked by a dead worker
// become claimable again once their lock passes.
func (ms *MemoryStorage) ReleaseExpired(_ context.Context, now time.Time) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.releaseExpiredLocked(now), nil
}

func (ms *MemoryStorage) releaseExpiredLocked(now time.Time) int {
	released := 0
	for id := range ms.byStatus[notification.TaskStatusInFlight] {
		t := ms.tasks[id]
		if t.LockedUntil != nil && t.LockedUntil.Before(now) {
			ms.unindexStatus(id, t.Status)
			t.Status = notification.TaskStatusPending
			t.LockedBy = nil
			t.LockedUntil = nil
			ms.indexStatus(id, t.Status)
			released++
		}
	}
	return released
}

// PromoteDue implements SchedulerRepository.
func (ms *MemoryStorage) PromoteDue(_ context.Context, now time.Time) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	promoted := 0
	for id := range ms.byStatus[notification.TaskStatusRetryWait] {
		t := ms.tasks[id]
		if tracker.Promote(t, now) {
			ms.unindexStatus(id, notification.TaskStatusRetryWait)
			ms.indexStatus(id, t.Status)
			promoted++
		}
	}
	return promoted, nil
}

// ListRecurring implements SchedulerRepository.
func (ms *MemoryStorage) ListRecurring(_ context.Context) ([]*notification.Notification, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var out []*notification.Notification
	for _, n := range ms.notifications {
		if n.Recurring() && !n.Status.Terminal() {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MarkFired implements SchedulerRepository.
func (ms *MemoryStorage) MarkFired(_ context.Context, id uuid.UUID, firedAt time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, exists := ms.notifications[id]
	if !exists {
		return notification.ErrNotFound
	}
	fired := firedAt
	n.LastFiredAt = &fired
	n.Generation++
	return nil
}

// GetNotification implements QueryRepository.
func (ms *MemoryStorage) GetNotification(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, exists := ms.notifications[id]
	if !exists {
		return nil, notification.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

// GetTask implements QueryRepository.
func (ms *MemoryStorage) GetTask(_ context.Context, id uuid.UUID) (*notification.DeliveryTask, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, exists := ms.tasks[id]
	if !exists {
		return nil, notification.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

// StatusCounts implements QueryRepository.
func (ms *MemoryStorage) StatusCounts(_ context.Context, id uuid.UUID) (notification.StatusCounts, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.notifications[id]; !exists {
		return notification.StatusCounts{}, notification.ErrNotFound
	}
	var counts notification.StatusCounts
	for _, taskID := range ms.byNotif[id] {
		counts.Add(ms.tasks[taskID].Status)
	}
	return counts, nil
}

// CancelNotification implements QueryRepository.
func (ms *MemoryStorage) CancelNotification(_ context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, exists := ms.notifications[id]
	if !exists {
		return notification.ErrNotFound
	}
	if n.Status == notification.StatusCancelled {
		return nil
	}
	if !n.Status.Cancellable() {
		return notification.ErrNotCancellable
	}

	n.Status = notification.StatusCancelled
	now := ms.now()
	for _, taskID := range ms.byNotif[id] {
		t := ms.tasks[taskID]
		prev := t.Status
		if tracker.Cancel(t, now) {
			ms.unindexStatus(taskID, prev)
			ms.indexStatus(taskID, t.Status)
		}
	}
	return nil
}

// ResetTask implements QueryRepository.
func (ms *MemoryStorage) ResetTask(_ context.Context, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, exists := ms.tasks[taskID]
	if !exists {
		return notification.ErrTaskNotFound
	}
	prev := t.Status
	if err := tracker.ResetForRetry(t, ms.now()); err != nil {
		return err
	}
	ms.unindexStatus(taskID, prev)
	ms.indexStatus(taskID, t.Status)

	// Reopen the parent so the status query reflects the renewed work.
	if n, ok := ms.notifications[t.NotificationID]; ok && n.Status == notification.StatusCompleted {
		n.Status = notification.StatusDispatching
	}
	return nil
}

// completeIfDone flips the notification to completed once every task has
// reached a terminal state. Must be called with the mutex held.
func (ms *MemoryStorage) completeIfDone(id uuid.UUID) {
	n, exists := ms.notifications[id]
	if !exists || n.Status.Terminal() || n.Recurring() {
		return
	}
	var counts notification.StatusCounts
	for _, taskID := range ms.byNotif[id] {
		counts.Add(ms.tasks[taskID].Status)
	}
	if counts.AllTerminal() {
		n.Status = notification.StatusCompleted
	}
}

func (ms *MemoryStorage) indexStatus(id uuid.UUID, status notification.TaskStatus) {
	set, ok := ms.byStatus[status]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		ms.byStatus[status] = set
	}
	set[id] = struct{}{}
}

func (ms *MemoryStorage) unindexStatus(id uuid.UUID, status notification.TaskStatus) {
	delete(ms.byStatus[status], id)
}

// lockExpirationManager recovers tasks claimed by crashed workers. Without
// it, a task locked by a dead worker would be stuck in flight forever.
func (ms *MemoryStorage) lockExpirationManager() {
	for {
		select {
		case <-ms.lockTicker.C:
			ms.mu.Lock()
			ms.releaseExpiredLocked(ms.now())
			ms.mu.Unlock()
		case <-ms.done:
			return
		}
	}
}
