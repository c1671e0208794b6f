package notifications

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campushub/notify/handler"
	"github.com/campushub/notify/pkg/binder"
	"github.com/campushub/notify/pkg/inbox"
)

// InboxService exposes the per-recipient in-app message feed.
type InboxService struct {
	box          *inbox.Inbox
	errorHandler handler.ErrorHandler
}

func NewInboxService(box *inbox.Inbox, errorHandler handler.ErrorHandler) *InboxService {
	return &InboxService{
		box:          box,
		errorHandler: errorHandler,
	}
}

func (s *InboxService) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/{recipient}", handler.Wrap(s.list,
		handler.WithBinders[listMessagesRequest](
			binder.Path(pathParam),
			binder.Query(),
		),
		handler.WithErrorHandler[listMessagesRequest](s.errorHandler),
	))

	r.Get("/{recipient}/unread", handler.Wrap(s.unreadCount,
		handler.WithBinder[recipientRequest](binder.Path(pathParam)),
		handler.WithErrorHandler[recipientRequest](s.errorHandler),
	))

	r.Post("/{recipient}/read", handler.Wrap(s.markAllRead,
		handler.WithBinder[recipientRequest](binder.Path(pathParam)),
		handler.WithErrorHandler[recipientRequest](s.errorHandler),
	))

	r.Post("/{recipient}/{id}/read", handler.Wrap(s.markRead,
		handler.WithBinder[messageRequest](binder.Path(pathParam)),
		handler.WithErrorHandler[messageRequest](s.errorHandler),
	))

	r.Delete("/{recipient}/{id}", handler.Wrap(s.delete,
		handler.WithBinder[messageRequest](binder.Path(pathParam)),
		handler.WithErrorHandler[messageRequest](s.errorHandler),
	))

	return r
}

// listMessagesRequest paginates and filters one recipient's feed.
type listMessagesRequest struct {
	Recipient string `path:"recipient"`
	Limit     int    `query:"limit"`
	Offset    int    `query:"offset"`
	Unread    bool   `query:"unread"`
	Category  string `query:"category"`
	Since     string `query:"since"`
}

func (s *InboxService) list(ctx handler.Context, req listMessagesRequest) handler.Response {
	opts := inbox.ListOptions{
		Limit:      req.Limit,
		Offset:     req.Offset,
		OnlyUnread: req.Unread,
		Category:   req.Category,
	}
	if req.Since != "" {
		since, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			verr := handler.NewValidationError()
			verr.Add("since", "must be an RFC 3339 timestamp")
			return handler.JSONError(verr)
		}
		opts.Since = &since
	}

	msgs, err := s.box.List(ctx, req.Recipient, opts)
	if err != nil {
		return handler.JSONError(err)
	}
	return handler.JSON(msgs, handler.WithJSONMeta(map[string]any{
		"count": len(msgs),
	}))
}

// recipientRequest identifies one recipient's feed.
type recipientRequest struct {
	Recipient string `path:"recipient"`
}

func (s *InboxService) unreadCount(ctx handler.Context, req recipientRequest) handler.Response {
	count, err := s.box.CountUnread(ctx, req.Recipient)
	if err != nil {
		return handler.JSONError(err)
	}
	return handler.JSON(map[string]int{"unread": count})
}

func (s *InboxService) markAllRead(ctx handler.Context, req recipientRequest) handler.Response {
	if err := s.box.MarkAllRead(ctx, req.Recipient); err != nil {
		return handler.JSONError(err)
	}
	return handler.Empty()
}

// messageRequest identifies one message in a recipient's feed.
type messageRequest struct {
	Recipient string `path:"recipient"`
	ID        string `path:"id"`
}

func (s *InboxService) markRead(ctx handler.Context, req messageRequest) handler.Response {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return handler.JSONError(handler.ErrBadRequest)
	}
	if err := s.box.MarkRead(ctx, req.Recipient, id); err != nil {
		if errors.Is(err, inbox.ErrMessageNotFound) {
			return handler.JSONError(handler.ErrNotFound)
		}
		return handler.JSONError(err)
	}
	return handler.Empty()
}

func (s *InboxService) delete(ctx handler.Context, req messageRequest) handler.Response {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return handler.JSONError(handler.ErrBadRequest)
	}
	if err := s.box.Delete(ctx, req.Recipient, id); err != nil {
		if errors.Is(err, inbox.ErrMessageNotFound) {
			return handler.JSONError(handler.ErrNotFound)
		}
		return handler.JSONError(err)
	}
	return handler.Empty()
}
