// Package notifications is the HTTP surface of the delivery engine. It
// mounts three services under one router: Dispatch for notification creation
// and lifecycle, Queue for queue control and task administration, and Inbox
// for the per-recipient in-app feed.
//
// # Endpoints
//
//	POST   /notifications                  create and dispatch immediately
//	POST   /notifications/broadcast        send to every known user
//	POST   /notifications/scheduled        schedule a one-shot or recurring send
//	GET    /notifications/{id}             notification with task state counts
//	DELETE /notifications/{id}             cancel
//	DELETE /notifications/scheduled/{id}   cancel a scheduled send
//
//	POST   /queue/pause                    stop claiming new tasks
//	POST   /queue/resume                   resume claiming
//	POST   /queue/process                  force a maintenance pass and drain
//	POST   /queue/delivery/{id}/retry      reset a permanently failed task
//
//	GET    /inbox/{recipient}              list messages (limit, offset, unread, category, since)
//	GET    /inbox/{recipient}/unread       unread count
//	POST   /inbox/{recipient}/read         mark all read
//	POST   /inbox/{recipient}/{id}/read    mark one read
//	DELETE /inbox/{recipient}/{id}         delete a message
package notifications
