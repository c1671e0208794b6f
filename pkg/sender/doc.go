// Package sender adapts external delivery channels to the queue's Sender
// interface: email, SMS, push, webhook, and the in-app inbox.
//
// Each sender decodes the rendered content stored on a delivery task, looks
// up the recipient's contact details in a Directory, performs one send
// attempt, and reports a three-way outcome. Transient outcomes (network
// errors, provider 5xx) are retried by the queue with backoff; permanent
// outcomes (no contact on file, malformed content, provider rejection) are
// not.
//
// # Wiring
//
//	dir := sender.NewStaticDirectory(map[string]sender.Contact{
//		"user-1": {Email: "student@campus.edu"},
//	})
//
//	worker.RegisterSender(notification.ChannelEmail, sender.NewEmail(mailer, dir))
//	worker.RegisterSender(notification.ChannelInApp, sender.NewInApp(box, dir))
//
// Gateways for SMS and push are interfaces so deployments can plug in their
// provider of choice; Dev implementations log instead of sending.
package sender
