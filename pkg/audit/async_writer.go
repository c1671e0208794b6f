package audit

import (
	"context"
	"sync"
	"time"
)

// AsyncOptions configures batching and buffering of audit writes.
type AsyncOptions struct {
	BufferSize     int           // Max events queued in memory before falling back to sync writes
	BatchSize      int           // Target events per batch
	BatchTimeout   time.Duration // Max time a partial batch waits before flushing
	StorageTimeout time.Duration // Per-batch storage timeout
}

// batchWriter provides bulk storage for audit events. Implementations should
// optimize for batch inserts.
type batchWriter interface {
	StoreBatch(ctx context.Context, events []Event) error
}

// AsyncWriter batches events on a background goroutine before handing them to
// the underlying batch writer. Store never blocks longer than the caller's
// context allows.
type AsyncWriter struct {
	batchWriter batchWriter
	eventChan   chan Event
	done        chan struct{}
	wg          sync.WaitGroup
	options     AsyncOptions
}

// NewAsyncWriter creates an async writer. The returned close function flushes
// remaining events and must be called during shutdown.
func NewAsyncWriter(bw batchWriter, opts AsyncOptions) (*AsyncWriter, func(context.Context) error) {
	if bw == nil {
		panic("audit: batch writer cannot be nil")
	}

	if opts.BufferSize == 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout == 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.StorageTimeout == 0 {
		opts.StorageTimeout = 5 * time.Second
	}

	aw := &AsyncWriter{
		batchWriter: bw,
		eventChan:   make(chan Event, opts.BufferSize),
		done:        make(chan struct{}),
		options:     opts,
	}

	aw.wg.Add(1)
	go aw.worker()

	return aw, aw.Close
}

// Store queues an event for batched storage. When the buffer is full the
// event is written synchronously so no audit record is lost under load.
func (aw *AsyncWriter) Store(ctx context.Context, event Event) error {
	select {
	case <-aw.done:
		return ErrStorageNotAvailable
	default:
	}

	select {
	case aw.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return aw.batchWriter.StoreBatch(ctx, []Event{event})
	}
}

func (aw *AsyncWriter) worker() {
	defer aw.wg.Done()

	batch := make([]Event, 0, aw.options.BatchSize)
	timer := time.NewTicker(aw.options.BatchTimeout)
	defer timer.Stop()

	// Storage runs on a detached context so caller timeouts cannot
	// cascade into dropped batches.
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), aw.options.StorageTimeout)
		_ = aw.batchWriter.StoreBatch(ctx, batch)
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case event := <-aw.eventChan:
			batch = append(batch, event)
			if len(batch) >= aw.options.BatchSize {
				flush()
			}

		case <-timer.C:
			flush()

		case <-aw.done:
			// Drain remaining events before exiting
			for {
				select {
				case event := <-aw.eventChan:
					batch = append(batch, event)
					if len(batch) >= aw.options.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close shuts down the writer, flushing queued events. The context bounds how
// long shutdown may take.
func (aw *AsyncWriter) Close(ctx context.Context) error {
	close(aw.done)

	finished := make(chan struct{})
	go func() {
		aw.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
