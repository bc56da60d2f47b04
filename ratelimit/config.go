/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"fmt"
	"time"

	"github.com/acronis/go-appkit/config"
)

const cfgDefaultKeyPrefix = "rateLimit"

const (
	cfgKeyMaxRequests = "maxRequests"
	cfgKeyWindow      = "window"
	cfgKeyAlg         = "alg"
	cfgKeyMaxBurst    = "maxBurst"
	cfgKeyMaxKeys     = "maxKeys"
)

// Rate limiting algorithm names as they appear in the configuration.
const (
	cfgAlgSlidingWindow = "sliding_window"
	cfgAlgLeakyBucket   = "leaky_bucket"
)

// Config represents a set of configuration parameters for rate limiting.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// MaxRequests is the maximum number of requests admitted from a single client key within the window.
	MaxRequests int `mapstructure:"maxRequests" yaml:"maxRequests" json:"maxRequests"`

	// Window is the duration of the trailing window.
	Window config.TimeDuration `mapstructure:"window" yaml:"window" json:"window"`

	// Alg is the rate limiting algorithm: "sliding_window" or "leaky_bucket".
	Alg string `mapstructure:"alg" yaml:"alg" json:"alg"`

	// MaxBurst is the additional burst capacity for the leaky bucket algorithm.
	MaxBurst int `mapstructure:"maxBurst" yaml:"maxBurst" json:"maxBurst"`

	// MaxKeys is the capacity of the per-key state store.
	MaxKeys int `mapstructure:"maxKeys" yaml:"maxKeys" json:"maxKeys"`

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
		keyPrefix:   opts.keyPrefix,
		MaxRequests: DefaultMaxRequests,
		Window:      config.TimeDuration(DefaultWindow),
		Alg:         cfgAlgSlidingWindow,
		MaxKeys:     DefaultMaxKeys,
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

// MaxRate returns the configured rate limit as a Rate.
func (c *Config) MaxRate() Rate {
	return Rate{Count: c.MaxRequests, Duration: time.Duration(c.Window)}
}

// AlgValue returns the configured algorithm as an Alg value.
func (c *Config) AlgValue() Alg {
	if c.Alg == cfgAlgLeakyBucket {
		return AlgLeakyBucket
	}
	return AlgSlidingWindow
}

// SetProviderDefaults sets default configuration values for the rate limiting in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxRequests, DefaultMaxRequests)
	dp.SetDefault(cfgKeyWindow, DefaultWindow)
	dp.SetDefault(cfgKeyAlg, cfgAlgSlidingWindow)
	dp.SetDefault(cfgKeyMaxKeys, DefaultMaxKeys)
}

// Set sets rate limiting configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	var maxRequests int
	if maxRequests, err = dp.GetInt(cfgKeyMaxRequests); err != nil {
		return err
	}
	if maxRequests <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxRequests, fmt.Errorf("maxRequests must be positive"))
	}
	c.MaxRequests = maxRequests

	var window time.Duration
	if window, err = dp.GetDuration(cfgKeyWindow); err != nil {
		return err
	}
	if window <= 0 {
		return dp.WrapKeyErr(cfgKeyWindow, fmt.Errorf("window must be positive"))
	}
	c.Window = config.TimeDuration(window)

	var alg string
	if alg, err = dp.GetStringFromSet(cfgKeyAlg, []string{cfgAlgSlidingWindow, cfgAlgLeakyBucket}, false); err != nil {
		return err
	}
	c.Alg = alg

	var maxBurst int
	if maxBurst, err = dp.GetInt(cfgKeyMaxBurst); err != nil {
		return err
	}
	if maxBurst < 0 {
		return dp.WrapKeyErr(cfgKeyMaxBurst, fmt.Errorf("maxBurst should not be negative"))
	}
	c.MaxBurst = maxBurst

	var maxKeys int
	if maxKeys, err = dp.GetInt(cfgKeyMaxKeys); err != nil {
		return err
	}
	if maxKeys < 0 {
		return dp.WrapKeyErr(cfgKeyMaxKeys, fmt.Errorf("maxKeys should not be negative"))
	}
	c.MaxKeys = maxKeys

	return nil
}
