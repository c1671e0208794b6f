package webhook

import (
	"net/http"
	"time"
)

type deliverOptions struct {
	timeout        time.Duration
	headers        map[string]string
	signSecret     string
	httpClient     *http.Client
	circuitBreaker *CircuitBreaker
}

func defaultDeliverOptions() *deliverOptions {
	return &deliverOptions{
		timeout: 10 * time.Second,
	}
}

// DeliverOption configures a single delivery attempt.
type DeliverOption func(*deliverOptions)

// WithTimeout sets the per-request timeout. The parent context deadline
// still applies if it is shorter.
func WithTimeout(timeout time.Duration) DeliverOption {
	return func(o *deliverOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHeaders adds custom HTTP headers to the request.
func WithHeaders(headers map[string]string) DeliverOption {
	return func(o *deliverOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithSignature signs the payload with HMAC-SHA256 using the given secret
// and attaches the signature headers to the request.
func WithSignature(secret string) DeliverOption {
	return func(o *deliverOptions) {
		o.signSecret = secret
	}
}

// WithHTTPClient overrides the HTTP client for this delivery. Useful for
// tests and custom transports.
func WithHTTPClient(client *http.Client) DeliverOption {
	return func(o *deliverOptions) {
		o.httpClient = client
	}
}

// WithCircuitBreaker guards the delivery with the given circuit breaker.
// Delivery fails fast with ErrCircuitOpen while the circuit is open.
func WithCircuitBreaker(cb *CircuitBreaker) DeliverOption {
	return func(o *deliverOptions) {
		o.circuitBreaker = cb
	}
}
