package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which services to mount in the notifications
// module. Each service is optional and will only be mounted if provided.
type RouterOptions struct {
	// Dispatch covers notification creation and lifecycle.
	Dispatch Mountable

	// Queue covers queue control and delivery task administration.
	Queue Mountable

	// Inbox covers the per-recipient in-app message feed.
	Inbox Mountable
}

// Router creates the notifications module router with configurable services.
//
// Example:
//
//	dispatchSvc := notifications.NewDispatchService(svc, errHandler)
//	queueSvc := notifications.NewQueueService(svc, sched, errHandler)
//
//	r := chi.NewRouter()
//	r.Mount("/v1", notifications.Router(notifications.RouterOptions{
//	    Dispatch: dispatchSvc,
//	    Queue:    queueSvc,
//	}))
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	if opts.Dispatch != nil {
		r.Mount("/notifications", opts.Dispatch.Handle())
	}
	if opts.Queue != nil {
		r.Mount("/queue", opts.Queue.Handle())
	}
	if opts.Inbox != nil {
		r.Mount("/inbox", opts.Inbox.Handle())
	}

	return r
}
