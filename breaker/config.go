/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package breaker

import (
	"fmt"
	"time"

	"github.com/acronis/go-appkit/config"
)

const cfgDefaultKeyPrefix = "circuitBreaker"

const (
	cfgKeyFailureThreshold = "failureThreshold"
	cfgKeySuccessThreshold = "successThreshold"
	cfgKeyRecoveryTimeout  = "recoveryTimeout"
)

// Default values of the breaker configuration parameters.
const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
	DefaultRecoveryTimeout  = time.Second * 30
)

// Config represents a set of configuration parameters for circuit breakers.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// FailureThreshold is the number of consecutive failures in the Closed state
	// after which the breaker opens.
	FailureThreshold int `mapstructure:"failureThreshold" yaml:"failureThreshold" json:"failureThreshold"`

	// SuccessThreshold is the number of consecutive trial successes in the HalfOpen state
	// after which the breaker closes.
	SuccessThreshold int `mapstructure:"successThreshold" yaml:"successThreshold" json:"successThreshold"`

	// RecoveryTimeout is how long the breaker stays Open before a trial call is allowed.
	RecoveryTimeout config.TimeDuration `mapstructure:"recoveryTimeout" yaml:"recoveryTimeout" json:"recoveryTimeout"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{
		keyPrefix:        opts.keyPrefix,
		FailureThreshold: DefaultFailureThreshold,
		SuccessThreshold: DefaultSuccessThreshold,
		RecoveryTimeout:  config.TimeDuration(DefaultRecoveryTimeout),
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the breaker in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyFailureThreshold, DefaultFailureThreshold)
	dp.SetDefault(cfgKeySuccessThreshold, DefaultSuccessThreshold)
	dp.SetDefault(cfgKeyRecoveryTimeout, DefaultRecoveryTimeout)
}

// Set sets breaker configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	var failureThreshold int
	if failureThreshold, err = dp.GetInt(cfgKeyFailureThreshold); err != nil {
		return err
	}
	if failureThreshold <= 0 {
		return dp.WrapKeyErr(cfgKeyFailureThreshold, fmt.Errorf("failureThreshold must be positive"))
	}
	c.FailureThreshold = failureThreshold

	var successThreshold int
	if successThreshold, err = dp.GetInt(cfgKeySuccessThreshold); err != nil {
		return err
	}
	if successThreshold <= 0 {
		return dp.WrapKeyErr(cfgKeySuccessThreshold, fmt.Errorf("successThreshold must be positive"))
	}
	c.SuccessThreshold = successThreshold

	var recoveryTimeout time.Duration
	if recoveryTimeout, err = dp.GetDuration(cfgKeyRecoveryTimeout); err != nil {
		return err
	}
	if recoveryTimeout <= 0 {
		return dp.WrapKeyErr(cfgKeyRecoveryTimeout, fmt.Errorf("recoveryTimeout must be positive"))
	}
	c.RecoveryTimeout = config.TimeDuration(recoveryTimeout)

	return nil
}
