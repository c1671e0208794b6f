package binder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// DefaultMaxJSONSize caps JSON request bodies at 1 MB.
const DefaultMaxJSONSize = 1 << 20

// JSON creates a binder that decodes the request body as JSON into the
// target struct. Decoding is strict: unknown fields, trailing data, and
// bodies over DefaultMaxJSONSize are rejected.
func JSON() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return fmt.Errorf("%w: expected application/json", ErrMissingContentType)
		}
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: got %s, expected application/json", ErrUnsupportedMediaType, contentType)
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, DefaultMaxJSONSize+1))
		if err != nil {
			return fmt.Errorf("%w: reading request body: %v", ErrFailedToParseJSON, err)
		}
		if len(body) > DefaultMaxJSONSize {
			return fmt.Errorf("%w: request body exceeds %d bytes", ErrFailedToParseJSON, DefaultMaxJSONSize)
		}

		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: empty body", ErrFailedToParseJSON)
			}
			return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
		}
		if dec.More() {
			return fmt.Errorf("%w: unexpected data after JSON value", ErrFailedToParseJSON)
		}
		return nil
	}
}
