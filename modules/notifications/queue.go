package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campushub/notify/handler"
	"github.com/campushub/notify/pkg/binder"
	"github.com/campushub/notify/pkg/notifier"
)

// QueueService exposes queue control and delivery task administration.
type QueueService struct {
	svc          *notifier.Service
	sched        *notifier.Scheduler
	errorHandler handler.ErrorHandler
}

func NewQueueService(svc *notifier.Service, sched *notifier.Scheduler, errorHandler handler.ErrorHandler) *QueueService {
	return &QueueService{
		svc:          svc,
		sched:        sched,
		errorHandler: errorHandler,
	}
}

func (s *QueueService) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/pause", handler.Wrap(s.pause,
		handler.WithErrorHandler[struct{}](s.errorHandler),
	))
	r.Post("/resume", handler.Wrap(s.resume,
		handler.WithErrorHandler[struct{}](s.errorHandler),
	))
	r.Post("/process", handler.Wrap(s.process,
		handler.WithErrorHandler[struct{}](s.errorHandler),
	))

	r.Post("/delivery/{id}/retry", handler.Wrap(s.retry,
		handler.WithBinder[taskRequest](binder.Path(pathParam)),
		handler.WithErrorHandler[taskRequest](s.errorHandler),
	))

	return r
}

func (s *QueueService) pause(ctx handler.Context, _ struct{}) handler.Response {
	s.svc.Pause(ctx)
	return handler.EmptyWithStatus(http.StatusAccepted)
}

func (s *QueueService) resume(ctx handler.Context, _ struct{}) handler.Response {
	s.svc.Resume(ctx)
	return handler.EmptyWithStatus(http.StatusAccepted)
}

// process forces an immediate maintenance pass and drains the backlog
// without waiting for the scheduler tick.
func (s *QueueService) process(ctx handler.Context, _ struct{}) handler.Response {
	if s.sched != nil {
		s.sched.Tick(ctx)
	}
	s.svc.DrainNow(ctx)
	return handler.EmptyWithStatus(http.StatusAccepted)
}

// taskRequest identifies one delivery task by path.
type taskRequest struct {
	ID string `path:"id"`
}

func (s *QueueService) retry(ctx handler.Context, req taskRequest) handler.Response {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return handler.JSONError(handler.ErrBadRequest)
	}
	if err := s.svc.RetryTask(ctx, id); err != nil {
		return handler.JSONError(asHTTPError(err))
	}
	return handler.EmptyWithStatus(http.StatusAccepted)
}
