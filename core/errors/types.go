// ABOUTME: Custom error types for the digest pipeline
// ABOUTME: Distinguishes fatal, transient, and short-circuit conditions per stage

package errors

import (
	"errors"
	"fmt"
)

// ErrNoNewContent signals that every feed item is already in the ledger.
// It is a normal short-circuit, not a failure; the pipeline logs a no-op
// run and never contacts the campaign API.
var ErrNoNewContent = errors.New("no new content")

// FeedUnreachableError represents a network or transport failure while
// fetching the feed. No items are returned alongside it.
type FeedUnreachableError struct {
	URL   string
	Cause error
}

// Error implements the error interface
func (e *FeedUnreachableError) Error() string {
	return fmt.Sprintf("feed unreachable: %s: %v", e.URL, e.Cause)
}

// Unwrap exposes the underlying transport error
func (e *FeedUnreachableError) Unwrap() error { return e.Cause }

// FeedParseError represents a payload that is not a recognizable feed.
// Malformed individual entries are skipped, not surfaced as this error.
type FeedParseError struct {
	URL   string
	Cause error
}

// Error implements the error interface
func (e *FeedParseError) Error() string {
	return fmt.Sprintf("feed parse failed: %s: %v", e.URL, e.Cause)
}

// Unwrap exposes the underlying parser error
func (e *FeedParseError) Unwrap() error { return e.Cause }

// StoreUnavailableError represents a ledger read/write failure. It is
// fatal for the run: no digest is composed without an authoritative view
// of what has already been sent.
type StoreUnavailableError struct {
	Op    string
	Cause error
}

// Error implements the error interface
func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("link store unavailable during %s: %v", e.Op, e.Cause)
}

// Unwrap exposes the underlying storage error
func (e *StoreUnavailableError) Unwrap() error { return e.Cause }

// TemplateRenderError represents a missing template or a render that
// produced invalid output. Fatal: no partial digest reaches delivery.
type TemplateRenderError struct {
	Template string
	Cause    error
}

// Error implements the error interface
func (e *TemplateRenderError) Error() string {
	return fmt.Sprintf("template render failed: %s: %v", e.Template, e.Cause)
}

// Unwrap exposes the underlying render error
func (e *TemplateRenderError) Unwrap() error { return e.Cause }

// AuthenticationError represents a credential rejection by the campaign
// API. Never retried.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("campaign API authentication failed: %d - %s", e.StatusCode, e.Message)
}

// ValidationError represents a request the campaign API rejected as
// malformed. Carries the rejecting field when the API reports one.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("campaign request rejected: %s", e.Message)
	}
	return fmt.Sprintf("campaign request rejected on field '%s': %s", e.Field, e.Message)
}

// TransientAPIError represents a retryable remote failure that exhausted
// the retry budget: timeouts, 5xx responses, connection resets.
type TransientAPIError struct {
	StatusCode int
	Attempts   int
	Message    string
}

// Error implements the error interface
func (e *TransientAPIError) Error() string {
	return fmt.Sprintf("campaign API unavailable after %d attempts: %d - %s", e.Attempts, e.StatusCode, e.Message)
}

// IsFeedUnreachable checks if an error is a FeedUnreachableError
func IsFeedUnreachable(err error) bool {
	var target *FeedUnreachableError
	return errors.As(err, &target)
}

// IsFeedParse checks if an error is a FeedParseError
func IsFeedParse(err error) bool {
	var target *FeedParseError
	return errors.As(err, &target)
}

// IsStoreUnavailable checks if an error is a StoreUnavailableError
func IsStoreUnavailable(err error) bool {
	var target *StoreUnavailableError
	return errors.As(err, &target)
}

// IsTemplateRender checks if an error is a TemplateRenderError
func IsTemplateRender(err error) bool {
	var target *TemplateRenderError
	return errors.As(err, &target)
}

// IsAuthentication checks if an error is an AuthenticationError
func IsAuthentication(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsTransientAPI checks if an error is a TransientAPIError
func IsTransientAPI(err error) bool {
	var target *TransientAPIError
	return errors.As(err, &target)
}

// IsNoNewContent checks if an error is the no-new-content short-circuit
func IsNoNewContent(err error) bool {
	return errors.Is(err, ErrNoNewContent)
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
