package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client delivers webhook payloads over HTTP POST. Each call is a single
// attempt; callers that want retries schedule them externally based on the
// error classification (ErrPermanentFailure vs ErrTemporaryFailure).
// Zero value is not usable; use NewClient to create instances.
type Client struct {
	// client is reused across requests for connection pooling
	client *http.Client
}

// NewClient creates a webhook client with a pooled HTTP transport.
func NewClient() *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second, // Overridden per-request by WithTimeout
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// NewClientWithHTTPClient creates a webhook client with a custom HTTP client.
func NewClientWithHTTPClient(client *http.Client) *Client {
	if client == nil {
		return NewClient()
	}
	return &Client{client: client}
}

// Deliver POSTs the JSON payload to the given URL. The payload must already
// be marshaled; the caller owns the envelope shape. The returned error wraps
// ErrPermanentFailure for 4xx responses that will not resolve with retries,
// ErrTemporaryFailure for network errors and 5xx responses, and ErrTimeout
// when the request deadline expired.
func (c *Client) Deliver(ctx context.Context, webhookURL string, payload []byte, opts ...DeliverOption) error {
	if err := validateInputs(webhookURL, payload); err != nil {
		return err
	}

	options := defaultDeliverOptions()
	for _, opt := range opts {
		opt(options)
	}

	client := c.client
	if options.httpClient != nil {
		client = options.httpClient
	}

	if options.circuitBreaker != nil && !options.circuitBreaker.Allow() {
		return ErrCircuitOpen
	}

	err := c.attempt(ctx, client, webhookURL, payload, options)

	if options.circuitBreaker != nil {
		if err == nil {
			options.circuitBreaker.RecordSuccess()
		} else {
			options.circuitBreaker.RecordFailure()
		}
	}

	return err
}

func validateInputs(webhookURL string, payload []byte) error {
	if webhookURL == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	// Restrict to HTTP/HTTPS to prevent SSRF through other schemes
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}

	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}

	if len(payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}

	return nil
}

func (c *Client) attempt(ctx context.Context, client *http.Client, webhookURL string, payload []byte, options *deliverOptions) error {
	reqCtx, cancel := context.WithTimeout(ctx, options.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", ErrDeliveryFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "campushub-notify/1.0")

	for k, v := range options.headers {
		req.Header.Set(k, v)
	}

	if options.signSecret != "" {
		sigHeaders, err := SignPayload(options.signSecret, payload)
		if err != nil {
			return fmt.Errorf("failed to sign payload: %w", err)
		}
		for k, v := range sigHeaders.Headers() {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrTemporaryFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read a bounded slice of the body for error context
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024*64))

	errMsg := fmt.Sprintf("endpoint returned status %d", resp.StatusCode)
	if len(body) > 0 {
		bodyStr := strings.ReplaceAll(string(body), "\n", " ")
		if len(bodyStr) > 200 {
			bodyStr = bodyStr[:200] + "..."
		}
		errMsg += ": " + bodyStr
	}

	if isPermanentStatus(resp.StatusCode) {
		return fmt.Errorf("%w: %s", ErrPermanentFailure, errMsg)
	}
	return fmt.Errorf("%w: %s", ErrTemporaryFailure, errMsg)
}

// isPermanentStatus reports whether an HTTP status should not be retried.
// Most 4xx codes indicate client-side issues that won't resolve on retry,
// except the handful that represent rate limiting or timing.
func isPermanentStatus(statusCode int) bool {
	if statusCode >= 400 && statusCode < 500 {
		switch statusCode {
		case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
			return false
		default:
			return true
		}
	}
	return false
}
