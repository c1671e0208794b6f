// Package audit records a best-effort trail of notification lifecycle
// actions: creation, scheduling, cancellation, task resolution, and queue
// control changes.
//
// The Logger never returns errors to callers. A failed audit write is logged
// and dropped rather than blocking or failing the delivery path it observes.
//
// # Usage
//
//	store := audit.NewMemoryStore()
//	writer, closeAudit := audit.NewAsyncWriter(store, audit.AsyncOptions{})
//	defer closeAudit(context.Background())
//
//	trail := audit.NewLogger(writer)
//	trail.Log(ctx, "notification.created",
//		audit.WithNotification(n.ID.String()),
//		audit.WithMetadata(map[string]any{"recipients": count}),
//	)
//
// AsyncWriter batches writes on a background goroutine; when its buffer is
// full it degrades to synchronous writes instead of dropping events.
package audit
