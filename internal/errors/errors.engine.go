// FilePath: internal/errors/errors.engine.go
package errors

import (
	stderrors "errors"
)

// Engine failure taxonomy. Callers wrap these with fmt.Errorf("...: %w", ...)
// and classify with Is.
var (
	// ErrParse marks a telemetry fragment that could not be interpreted
	ErrParse = stderrors.New("parse failure")
	// ErrTimeout marks a browsing operation that exceeded its bound
	ErrTimeout = stderrors.New("operation timed out")
	// ErrSession marks a disconnected or unusable browsing session
	ErrSession = stderrors.New("browsing session failure")
	// ErrProtocol marks a DevTools protocol error on an otherwise live session
	ErrProtocol = stderrors.New("browsing protocol error")
	// ErrRateLimited marks an upstream 429 answer
	ErrRateLimited = stderrors.New("rate limited")
	// ErrTransient marks a network failure that is retried or cached as negative
	ErrTransient = stderrors.New("transient network failure")
)

// New mirrors the standard library so callers importing this package
// do not need a second errors import.
func New(text string) error {
	return stderrors.New(text)
}

// Is mirrors errors.Is
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As mirrors errors.As
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join mirrors errors.Join
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsBrowsingFailure reports whether err counts toward the consecutive
// timeout counter of the scrape driver.
func IsBrowsingFailure(err error) bool {
	return Is(err, ErrTimeout) || Is(err, ErrProtocol) || Is(err, ErrSession)
}
