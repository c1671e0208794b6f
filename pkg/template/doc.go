// Package template renders notification content per delivery channel, either
// from a stored template id plus variables or from raw title/body text.
//
// Each channel has a fixed content shape: email carries subject, HTML, and a
// plain-text alternative; push carries title, body, and a data payload; SMS
// is plain text hard-capped at the channel limit; webhook is a JSON payload;
// in-app carries title and message. The shapes are modeled as a tagged
// variant (Content) so downstream code never duck-types payloads.
//
// Rendering one channel is independent of the others: a missing required
// variable fails only that channel's render with ErrMissingVariable, and the
// remaining channels proceed.
package template
