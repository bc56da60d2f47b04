/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net"
	"net/http"
	"sort"
)

const userAgentLogFieldKey = "user_agent"

// GetKeyFunc is a function that is called for getting the client key for rate limiting.
// If bypass is true, the request is served without consuming the client's budget.
type GetKeyFunc func(r *http.Request) (key string, bypass bool, err error)

// ClientKeyFromRemoteAddr returns the client IP address from the request's RemoteAddr as a rate limiting key.
// The port part is stripped, so all connections from one host share a budget.
func ClientKeyFromRemoteAddr(r *http.Request) (key string, bypass bool, err error) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr, false, nil
	}
	return host, false, nil
}

// ClientKeyFromHeader returns a function that extracts the client key from the passed HTTP header.
// Requests without the header fall back to the remote address.
func ClientKeyFromHeader(headerName string) GetKeyFunc {
	return func(r *http.Request) (key string, bypass bool, err error) {
		if v := r.Header.Get(headerName); v != "" {
			return v, false, nil
		}
		return ClientKeyFromRemoteAddr(r)
	}
}

// pathSkipper reports whether a request path is exempt from a middleware.
// Matching is by exact path, lookup is O(log n).
type pathSkipper struct {
	paths []string
}

func newPathSkipper(paths []string) *pathSkipper {
	ps := &pathSkipper{paths: append([]string(nil), paths...)}
	sort.Strings(ps.paths)
	return ps
}

func (ps *pathSkipper) Skip(r *http.Request) bool {
	i := sort.SearchStrings(ps.paths, r.URL.Path)
	return i < len(ps.paths) && ps.paths[i] == r.URL.Path
}

// DefaultExemptPaths are operational endpoints that are never rate limited or rejected during drain.
func DefaultExemptPaths() []string {
	return []string{"/healthz", "/readyz", "/metrics"}
}
