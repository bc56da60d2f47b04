/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package breaker

import (
	"bytes"
	"testing"
	"time"

	"github.com/acronis/go-appkit/config"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer(nil), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultFailureThreshold, cfg.FailureThreshold)
	require.Equal(t, DefaultSuccessThreshold, cfg.SuccessThreshold)
	require.Equal(t, DefaultRecoveryTimeout, time.Duration(cfg.RecoveryTimeout))
}

func TestConfigLoadFromYAML(t *testing.T) {
	cfgData := `
circuitBreaker:
  failureThreshold: 3
  successThreshold: 1
  recoveryTimeout: 15s
`
	cfg := NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.FailureThreshold)
	require.Equal(t, 1, cfg.SuccessThreshold)
	require.Equal(t, time.Second*15, time.Duration(cfg.RecoveryTimeout))
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfgData string
	}{
		{
			name: "non-positive failure threshold",
			cfgData: `
circuitBreaker:
  failureThreshold: 0
`,
		},
		{
			name: "non-positive success threshold",
			cfgData: `
circuitBreaker:
  successThreshold: -1
`,
		},
		{
			name: "non-positive recovery timeout",
			cfgData: `
circuitBreaker:
  recoveryTimeout: 0s
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			require.Error(t, err)
		})
	}
}
