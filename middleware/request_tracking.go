/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	appkitmw "github.com/acronis/go-appkit/httpserver/middleware"
	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/restapi"

	"github.com/acronis/go-resilience/tracker"
)

// ServiceShuttingDownErrCode is an error code that is used in a response body
// if the request is rejected because the service is draining.
const ServiceShuttingDownErrCode = "serviceShuttingDown"

// RequestTrackingOnRejectFunc is a function that is called for rejecting an HTTP request
// when the service is draining.
type RequestTrackingOnRejectFunc func(
	rw http.ResponseWriter, r *http.Request, errDomain string, next http.Handler, logger log.FieldLogger)

// RequestTrackingOpts represents options for the RequestTracking middleware.
type RequestTrackingOpts struct {
	// ExemptPaths are request paths that are served even while draining. DefaultExemptPaths by default.
	ExemptPaths []string

	// OnReject is called instead of the default 503 response when the service is draining.
	OnReject RequestTrackingOnRejectFunc
}

type requestTrackingHandler struct {
	next      http.Handler
	tracker   *tracker.Tracker
	skipper   *pathSkipper
	errDomain string
	onReject  RequestTrackingOnRejectFunc
}

// RequestTracking is a middleware that registers every admitted request in the passed Tracker
// and releases it when the handler returns. While the tracker is draining, new requests
// are rejected with 503 so the load balancer takes the instance out of rotation.
func RequestTracking(t *tracker.Tracker, errDomain string) func(next http.Handler) http.Handler {
	return RequestTrackingWithOpts(t, errDomain, RequestTrackingOpts{})
}

// RequestTrackingWithOpts is a configurable version of a middleware to track in-flight HTTP requests.
func RequestTrackingWithOpts(
	t *tracker.Tracker, errDomain string, opts RequestTrackingOpts,
) func(next http.Handler) http.Handler {
	exemptPaths := opts.ExemptPaths
	if exemptPaths == nil {
		exemptPaths = DefaultExemptPaths()
	}
	onReject := opts.OnReject
	if onReject == nil {
		onReject = DefaultRequestTrackingOnReject
	}
	return func(next http.Handler) http.Handler {
		return &requestTrackingHandler{
			next:      next,
			tracker:   t,
			skipper:   newPathSkipper(exemptPaths),
			errDomain: errDomain,
			onReject:  onReject,
		}
	}
}

func (h *requestTrackingHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if h.skipper.Skip(r) {
		h.next.ServeHTTP(rw, r)
		return
	}

	handle, err := h.tracker.TryRegister()
	if err != nil {
		h.onReject(rw, r, h.errDomain, h.next, appkitmw.GetLoggerFromContext(r.Context()))
		return
	}
	defer handle.Release()

	h.next.ServeHTTP(rw, r)
}

// DefaultRequestTrackingOnReject sends a 503 response telling the client the service is shutting down.
func DefaultRequestTrackingOnReject(
	rw http.ResponseWriter, r *http.Request, errDomain string, next http.Handler, logger log.FieldLogger,
) {
	if logger != nil {
		logger = logger.With(log.String(userAgentLogFieldKey, r.UserAgent()))
	}
	apiErr := restapi.NewError(errDomain, ServiceShuttingDownErrCode, "Service is shutting down.")
	restapi.RespondError(rw, http.StatusServiceUnavailable, apiErr, logger)
}
