package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/notify/pkg/notification"
)

// Sender is the capability the worker pool drives: one send attempt for one
// delivery task, reported as a three-way outcome. Implementations live in
// the sender package; the worker never inspects channel payloads.
type Sender interface {
	Send(ctx context.Context, task *notification.DeliveryTask) notification.Outcome
}

// RateLimiter gates sends per channel. Allow reports whether the send may
// proceed now and, if not, how long to defer.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Worker is the pool that drains the dispatch queue: it claims batches of
// visible tasks, drives the channel senders with a bounded timeout, and
// records outcomes through the repository.
type Worker struct {
	repo     WorkerRepository
	senders  map[notification.Channel]Sender
	control  *Control
	limiter  RateLimiter
	workerID uuid.UUID

	sem    chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	stopMu sync.Mutex // serializes Stop against the run loop's WaitGroup adds

	pollInterval time.Duration
	lockTimeout  time.Duration
	sendTimeout  time.Duration
	logger       *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// WorkerOption configures a Worker.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	control       *Control
	limiter       RateLimiter
	pollInterval  time.Duration
	lockTimeout   time.Duration
	sendTimeout   time.Duration
	maxConcurrent int
	logger        *slog.Logger
}

// WithControl shares queue control state (pause/drain) with the worker.
func WithControl(c *Control) WorkerOption {
	return func(o *workerOptions) {
		if c != nil {
			o.control = c
		}
	}
}

// WithRateLimiter gates sends through a per-channel rate limiter.
func WithRateLimiter(l RateLimiter) WorkerOption {
	return func(o *workerOptions) { o.limiter = l }
}

// WithPollInterval sets how often the worker checks for claimable tasks.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithLockTimeout sets the claim lock duration.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithSendTimeout bounds each channel send; a sender that does not respond
// in time is treated as a transient failure.
func WithSendTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

// WithMaxConcurrentSends sets the number of sends in flight at once.
func WithMaxConcurrentSends(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithWorkerLogger sets the worker's logger.
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewWorker creates a worker pool over the given repository.
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &workerOptions{
		control:       NewControl(),
		pollInterval:  time.Second,
		lockTimeout:   5 * time.Minute,
		sendTimeout:   15 * time.Second,
		maxConcurrent: 10,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		repo:         repo,
		senders:      make(map[notification.Channel]Sender),
		control:      options.control,
		limiter:      options.limiter,
		workerID:     uuid.New(),
		sem:          make(chan struct{}, options.maxConcurrent),
		pollInterval: options.pollInterval,
		lockTimeout:  options.lockTimeout,
		sendTimeout:  options.sendTimeout,
		logger:       options.logger,
	}, nil
}

// RegisterSender wires a channel sender. Tasks for channels without a
// registered sender fail permanently.
func (w *Worker) RegisterSender(ch notification.Channel, s Sender) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.senders[ch] = s
}

// Control returns the shared queue control state.
func (w *Worker) Control() *Control {
	return w.control
}

// Start begins claiming and processing tasks in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(w.senders) == 0 {
		w.mu.Unlock()
		return ErrNoSenders
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)
	go w.run()

	w.logger.Info("dispatch worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Int("max_concurrent", cap(w.sem)),
		slog.Duration("poll_interval", w.pollInterval))
	return nil
}

// Stop shuts the worker down, letting in-flight sends complete.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrNotStarted
	}
	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()

	w.logger.Info("dispatch worker stopped", slog.String("worker_id", w.workerID.String()))
	return nil
}

// Run starts the worker and returns a function suitable for errgroup use.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return w.Stop()
	}
}

func (w *Worker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll claims as many tasks as there are free slots and dispatches them.
func (w *Worker) poll() {
	if w.control.Paused() {
		return
	}
	free := cap(w.sem) - len(w.sem)
	if free == 0 {
		return
	}

	drain := w.control.Draining()
	tasks, err := w.repo.ClaimBatch(w.ctx, w.workerID, free, w.lockTimeout, drain)
	if err != nil {
		if errors.Is(err, ErrNoTaskToClaim) {
			if drain {
				w.control.drainSettled()
			}
			return
		}
		w.logger.Error("failed to claim tasks",
			slog.String("worker_id", w.workerID.String()),
			slog.Any("error", err))
		return
	}

	for _, task := range tasks {
		select {
		case w.sem <- struct{}{}:
		case <-w.ctx.Done():
			return
		}

		w.stopMu.Lock()
		if w.stopping.Load() {
			w.stopMu.Unlock()
			<-w.sem
			return
		}
		w.wg.Add(1)
		w.stopMu.Unlock()

		go func(t *notification.DeliveryTask) {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.process(t)
		}(task)
	}
}

// process drives one send attempt end to end.
func (w *Worker) process(task *notification.DeliveryTask) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("sender panicked",
				slog.String("task_id", task.ID.String()),
				slog.String("channel", task.Channel.String()),
				slog.Any("panic", r))
			w.resolve(task, notification.Transient(fmt.Sprintf("sender panic: %v", r)))
		}
	}()

	w.mu.Lock()
	sender, ok := w.senders[task.Channel]
	w.mu.Unlock()
	if !ok {
		w.resolve(task, notification.Permanent("no sender registered for channel "+task.Channel.String()))
		return
	}

	if w.limiter != nil {
		allowed, retryAfter, err := w.limiter.Allow(w.ctx, "channel:"+task.Channel.String())
		if err != nil {
			// Fail open: a broken limiter must not stall deliveries.
			w.logger.Warn("rate limiter unavailable, proceeding",
				slog.String("channel", task.Channel.String()),
				slog.Any("error", err))
		} else if !allowed {
			if retryAfter <= 0 {
				retryAfter = time.Second
			}
			if err := w.repo.Defer(context.Background(), task.ID, time.Now().Add(retryAfter)); err != nil {
				w.logger.Error("failed to defer rate-limited task",
					slog.String("task_id", task.ID.String()),
					slog.Any("error", err))
			}
			return
		}
	}

	start := time.Now()
	outcome := w.send(sender, task)
	w.logger.Debug("send attempt finished",
		slog.String("task_id", task.ID.String()),
		slog.String("channel", task.Channel.String()),
		slog.String("outcome", string(outcome.Code)),
		slog.Duration("duration", time.Since(start)))

	w.resolve(task, outcome)
}

// send enforces the bounded send timeout even against senders that ignore
// context cancellation.
func (w *Worker) send(sender Sender, task *notification.DeliveryTask) notification.Outcome {
	// Detached from the worker lifecycle so graceful shutdown lets the
	// attempt finish.
	ctx, cancel := context.WithTimeout(context.Background(), w.sendTimeout)
	defer cancel()

	done := make(chan notification.Outcome, 1)
	go func() {
		done <- sender.Send(ctx, task)
	}()

	select {
	case outcome := <-done:
		return outcome
	case <-ctx.Done():
		return notification.Transient("send timed out after " + w.sendTimeout.String())
	}
}

func (w *Worker) resolve(task *notification.DeliveryTask, outcome notification.Outcome) {
	err := w.repo.Resolve(context.Background(), task.ID, outcome)
	if err == nil {
		return
	}
	if errors.Is(err, ErrTaskNotInFlight) {
		// The task was cancelled out from under us; the outcome is
		// deliberately discarded.
		w.logger.Debug("outcome discarded for cancelled task",
			slog.String("task_id", task.ID.String()))
		return
	}
	w.logger.Error("failed to record send outcome",
		slog.String("task_id", task.ID.String()),
		slog.String("outcome", string(outcome.Code)),
		slog.Any("error", err))
}
