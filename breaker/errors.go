/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package breaker

import (
	"errors"
	"fmt"
)

// OpenError is returned by BeforeCall when the breaker rejects a call.
// It's a fail-fast error: no network call was attempted, the dependency is likely down.
type OpenError struct {
	Dependency string
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker for dependency %q is open", e.Dependency)
}

// IsOpenError reports whether err is (or wraps) an *OpenError.
func IsOpenError(err error) bool {
	var openErr *OpenError
	return errors.As(err, &openErr)
}
