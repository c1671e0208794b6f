// Package webhook delivers signed JSON payloads to HTTP endpoints.
//
// Each Deliver call is a single attempt: the delivery queue owns retry
// scheduling, so errors are classified instead of retried here. A failed
// delivery wraps ErrPermanentFailure when the endpoint rejected the request
// in a way that will not change (most 4xx codes), or ErrTemporaryFailure for
// network errors, timeouts, and 5xx responses.
//
// # Basic Usage
//
//	client := webhook.NewClient()
//
//	err := client.Deliver(ctx, endpointURL, payload,
//		webhook.WithSignature(secret),
//		webhook.WithTimeout(10*time.Second),
//	)
//	if webhook.IsPermanent(err) {
//		// drop the task, do not retry
//	}
//
// # Signatures
//
// Payloads are signed with HMAC-SHA256 over "timestamp.payload" and the
// signature travels in X-Notify-Signature / X-Notify-Timestamp / X-Notify-ID
// headers. Receivers verify with VerifySignature, which uses constant-time
// comparison and an optional maximum signature age.
//
// # Circuit Breaking
//
// An optional per-endpoint CircuitBreaker fails deliveries fast with
// ErrCircuitOpen while an endpoint is consistently failing, then probes it
// again after a recovery timeout.
package webhook
