/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientKeyFromRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4321"
	key, bypass, err := ClientKeyFromRemoteAddr(req)
	require.NoError(t, err)
	require.False(t, bypass)
	require.Equal(t, "192.0.2.1", key)

	req.RemoteAddr = "[2001:db8::1]:4321"
	key, _, err = ClientKeyFromRemoteAddr(req)
	require.NoError(t, err)
	require.Equal(t, "2001:db8::1", key)

	// RemoteAddr without a port is used as is.
	req.RemoteAddr = "192.0.2.1"
	key, _, err = ClientKeyFromRemoteAddr(req)
	require.NoError(t, err)
	require.Equal(t, "192.0.2.1", key)
}

func TestPathSkipper(t *testing.T) {
	ps := newPathSkipper(DefaultExemptPaths())
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		require.True(t, ps.Skip(req), path)
	}
	for _, path := range []string{"/", "/api/v1/things", "/healthz/sub"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		require.False(t, ps.Skip(req), path)
	}
}
