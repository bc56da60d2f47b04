/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry

import "errors"

// transientError marks an error as transient. See Transient.
type transientError struct {
	err error
}

// Error implements the error interface.
func (e *transientError) Error() string {
	return e.err.Error()
}

// Unwrap supports errors.Is/errors.As inspection of the cause.
func (e *transientError) Unwrap() error {
	return e.err
}

// Transient tags err as transient, making it retryable by policies that use IsTransient as the predicate.
// The tag must be set by the layer that produced the error and knows whether the failure may heal on its own
// (timeouts, connection resets, 5xx-like conditions, etc). Returns nil if err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is (or wraps) an error tagged with Transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
