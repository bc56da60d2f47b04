/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"errors"
	"fmt"
)

// ExhaustedError is returned when the whole attempt budget was consumed and every attempt failed.
// It wraps the error of the last attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed, last error: %v", e.Attempts, e.Err)
}

// Unwrap supports errors.Is/errors.As inspection of the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhaustedError reports whether err is (or wraps) an *ExhaustedError.
func IsExhaustedError(err error) bool {
	var exhaustedErr *ExhaustedError
	return errors.As(err, &exhaustedErr)
}
