/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry_test

import (
	"context"
	"fmt"

	"github.com/acronis/go-resilience/breaker"
	"github.com/acronis/go-resilience/retry"
)

func Example() {
	breakers := breaker.NewRegistry(breaker.NewDefaultConfig())
	executor := retry.NewExecutor(breakers)

	err := executor.Do(context.Background(), "billing", retry.DefaultPolicy(), func(ctx context.Context) error {
		// Call the billing service here. Return errors wrapped with retry.Transient
		// (or matched by the policy's IsRetryable predicate) to allow another attempt.
		return nil
	})
	fmt.Println(err)
	// Output: <nil>
}
