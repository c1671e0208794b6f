package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campushub/notify/handler"
	"github.com/campushub/notify/pkg/binder"
	"github.com/campushub/notify/pkg/notifier"
)

// pathParam adapts chi URL parameters to the path binder.
func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// DispatchService exposes notification creation and lifecycle over HTTP.
type DispatchService struct {
	svc          *notifier.Service
	errorHandler handler.ErrorHandler
}

func NewDispatchService(svc *notifier.Service, errorHandler handler.ErrorHandler) *DispatchService {
	return &DispatchService{
		svc:          svc,
		errorHandler: errorHandler,
	}
}

func (s *DispatchService) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/", handler.Wrap(s.create,
		handler.WithBinder[notifier.CreateInput](binder.JSON()),
		handler.WithErrorHandler[notifier.CreateInput](s.errorHandler),
	))

	r.Post("/broadcast", handler.Wrap(s.broadcast,
		handler.WithBinder[notifier.CreateInput](binder.JSON()),
		handler.WithErrorHandler[notifier.CreateInput](s.errorHandler),
	))

	r.Post("/scheduled", handler.Wrap(s.schedule,
		handler.WithBinder[notifier.CreateInput](binder.JSON()),
		handler.WithErrorHandler[notifier.CreateInput](s.errorHandler),
	))

	r.Get("/{id}", handler.Wrap(s.status,
		handler.WithBinder[notificationRequest](binder.Path(pathParam)),
		handler.WithErrorHandler[notificationRequest](s.errorHandler),
	))

	r.Delete("/{id}", handler.Wrap(s.cancel,
		handler.WithBinder[notificationRequest](binder.Path(pathParam)),
		handler.WithErrorHandler[notificationRequest](s.errorHandler),
	))

	// Scheduled notifications are cancelled through the same lifecycle rules.
	r.Delete("/scheduled/{id}", handler.Wrap(s.cancel,
		handler.WithBinder[notificationRequest](binder.Path(pathParam)),
		handler.WithErrorHandler[notificationRequest](s.errorHandler),
	))

	return r
}

func (s *DispatchService) create(ctx handler.Context, req notifier.CreateInput) handler.Response {
	res, err := s.svc.Create(ctx, req)
	if err != nil {
		return handler.JSONError(asHTTPError(err))
	}
	return handler.JSON(res, handler.WithJSONStatus(http.StatusCreated))
}

func (s *DispatchService) broadcast(ctx handler.Context, req notifier.CreateInput) handler.Response {
	res, err := s.svc.Broadcast(ctx, req)
	if err != nil {
		return handler.JSONError(asHTTPError(err))
	}
	return handler.JSON(res, handler.WithJSONStatus(http.StatusCreated))
}

// schedule is create with a required schedule: either a future one-shot time
// or a recurrence rule.
func (s *DispatchService) schedule(ctx handler.Context, req notifier.CreateInput) handler.Response {
	if req.ScheduledFor == nil && req.Recurrence == nil {
		verr := handler.NewValidationError()
		verr.Add("scheduled_for", "either scheduled_for or recurrence is required")
		return handler.JSONError(verr)
	}
	res, err := s.svc.Create(ctx, req)
	if err != nil {
		return handler.JSONError(asHTTPError(err))
	}
	return handler.JSON(res, handler.WithJSONStatus(http.StatusCreated))
}

// notificationRequest identifies one notification by path.
type notificationRequest struct {
	ID string `path:"id"`
}

func (s *DispatchService) status(ctx handler.Context, req notificationRequest) handler.Response {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return handler.JSONError(handler.ErrBadRequest)
	}
	report, err := s.svc.Status(ctx, id)
	if err != nil {
		return handler.JSONError(asHTTPError(err))
	}
	return handler.JSON(report)
}

func (s *DispatchService) cancel(ctx handler.Context, req notificationRequest) handler.Response {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return handler.JSONError(handler.ErrBadRequest)
	}
	if err := s.svc.Cancel(ctx, id); err != nil {
		return handler.JSONError(asHTTPError(err))
	}
	return handler.Empty()
}
