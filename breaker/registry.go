/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package breaker

import (
	"sync"

	"github.com/acronis/go-appkit/log"
)

// Registry holds one circuit breaker per logical dependency name.
// Breakers are created lazily on the first reference and persist for the process lifetime.
// The set of dependency names is expected to be small and fixed, so entries are never evicted.
type Registry struct {
	cfg           *Config
	logger        log.FieldLogger
	metrics       MetricsCollector
	onStateChange StateChangeHandler

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// Opts represents options for the Registry.
type Opts struct {
	// Logger is used for logging breaker state transitions.
	Logger log.FieldLogger

	// MetricsCollector is a collector of the breaker metrics. May be nil.
	MetricsCollector MetricsCollector

	// OnStateChange is called on every state transition of any breaker in the registry.
	OnStateChange StateChangeHandler
}

// NewRegistry creates a new Registry with the given configuration.
func NewRegistry(cfg *Config) *Registry {
	return NewRegistryWithOpts(cfg, Opts{})
}

// NewRegistryWithOpts is a more configurable version of NewRegistry.
func NewRegistryWithOpts(cfg *Config, opts Opts) *Registry {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	return &Registry{
		cfg:           cfg,
		logger:        opts.Logger,
		metrics:       opts.MetricsCollector,
		onStateChange: opts.OnStateChange,
		breakers:      make(map[string]*Breaker),
	}
}

// Get returns the breaker for the given dependency name, creating it if needed.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.breakers[name]; ok {
		return b
	}
	b = newBreaker(name, r.cfg, r.logger, r.metrics, r.onStateChange)
	r.breakers[name] = b
	return b
}

// BeforeCall reports whether a call to the named dependency may proceed.
// See Breaker.BeforeCall.
func (r *Registry) BeforeCall(name string) error {
	return r.Get(name).BeforeCall()
}

// OnSuccess reports a successful call to the named dependency.
func (r *Registry) OnSuccess(name string) {
	r.Get(name).OnSuccess()
}

// OnFailure reports a failed call to the named dependency.
func (r *Registry) OnFailure(name string) {
	r.Get(name).OnFailure()
}

// Reset administratively resets the breaker for the given dependency name.
// It returns false if no breaker has been created for the name yet.
func (r *Registry) Reset(name string) bool {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	b.Reset()
	return true
}

// Snapshot returns statuses of all breakers in the registry keyed by dependency name.
// It's the payload for an external health/status endpoint.
func (r *Registry) Snapshot() map[string]Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make(map[string]Status, len(r.breakers))
	for name, b := range r.breakers {
		snapshot[name] = b.Status()
	}
	return snapshot
}
