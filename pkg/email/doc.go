// Package email provides a provider-agnostic interface for sending
// transactional email, with a Postmark implementation for production and a
// file-based DevSender for local development.
//
// The delivery engine's email channel sender wraps EmailSender; swapping
// providers never touches engine code. All implementations validate
// parameters before sending and report failures through sentinel errors.
package email
