/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package breaker provides per-dependency circuit breakers with a shared registry.
//
// A breaker prevents the service from hammering a downstream dependency that is
// already failing and detects its recovery automatically. Calls are guarded with
// three operations: BeforeCall (admission), OnSuccess and OnFailure (outcome
// reporting). When a breaker is open, BeforeCall fails fast with *OpenError
// without attempting any network call.
//
// State transitions are emitted as structured log entries, Prometheus metrics
// and an optional callback for consumption by an external observability pipeline.
package breaker
