/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	appkitmw "github.com/acronis/go-appkit/httpserver/middleware"
	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/restapi"

	"github.com/acronis/go-resilience/ratelimit"
)

// RateLimitErrCode is an error code that is used in a response body
// if the request is rejected by the middleware that limits the rate of HTTP requests.
const RateLimitErrCode = "tooManyRequests"

// RateLimitLogFieldKey is the name of the logged field that contains the client key of a denied request.
const RateLimitLogFieldKey = "rate_limit_key"

// RateLimitParams contains data that relates to the rate limiting procedure
// and could be used for rejecting or handling an occurred error.
type RateLimitParams struct {
	ErrDomain          string
	ResponseStatusCode int
	MaxRate            ratelimit.Rate
	Key                string
	RetryAfter         time.Duration
}

// RateLimitOnRejectFunc is a function that is called for rejecting an HTTP request when the rate limit is exceeded.
type RateLimitOnRejectFunc func(
	rw http.ResponseWriter, r *http.Request, params RateLimitParams, next http.Handler, logger log.FieldLogger)

// RateLimitOnErrorFunc is a function that is called when an error occurs during rate limiting.
type RateLimitOnErrorFunc func(
	rw http.ResponseWriter, r *http.Request, params RateLimitParams, err error, next http.Handler, logger log.FieldLogger)

// RateLimitOpts represents options for the RateLimit middleware.
type RateLimitOpts struct {
	// Alg is the rate limiting algorithm. Sliding window by default.
	Alg ratelimit.Alg

	// MaxBurst is the additional burst capacity for the leaky bucket algorithm.
	MaxBurst int

	// GetKey extracts the client key from the request. ClientKeyFromRemoteAddr by default.
	GetKey GetKeyFunc

	// MaxKeys is the capacity of the per-key state store.
	MaxKeys int

	// ExemptPaths are request paths that bypass rate limiting. DefaultExemptPaths by default.
	ExemptPaths []string

	// ResponseStatusCode is the status code of the deny response. 429 by default.
	ResponseStatusCode int

	// DryRun makes the middleware log and count denials without actually rejecting requests.
	DryRun bool

	// MetricsCollector is a collector of the middleware metrics. May be nil.
	MetricsCollector MetricsCollector

	OnReject         RateLimitOnRejectFunc
	OnRejectInDryRun RateLimitOnRejectFunc
	OnError          RateLimitOnErrorFunc
}

type rateLimitHandler struct {
	next           http.Handler
	limiter        ratelimit.Limiter
	maxRate        ratelimit.Rate
	getKey         GetKeyFunc
	skipper        *pathSkipper
	errDomain      string
	respStatusCode int
	metrics        MetricsCollector

	onReject RateLimitOnRejectFunc
	onError  RateLimitOnErrorFunc
}

// RateLimit is a middleware that limits the rate of HTTP requests per client key.
func RateLimit(maxRate ratelimit.Rate, errDomain string) (func(next http.Handler) http.Handler, error) {
	return RateLimitWithOpts(maxRate, errDomain, RateLimitOpts{})
}

// MustRateLimit is a version of RateLimit that panics if an error occurs.
func MustRateLimit(maxRate ratelimit.Rate, errDomain string) func(next http.Handler) http.Handler {
	mw, err := RateLimit(maxRate, errDomain)
	if err != nil {
		panic(err)
	}
	return mw
}

// RateLimitWithOpts is a configurable version of a middleware to limit the rate of HTTP requests.
func RateLimitWithOpts(
	maxRate ratelimit.Rate, errDomain string, opts RateLimitOpts,
) (func(next http.Handler) http.Handler, error) {
	limiter, err := ratelimit.NewLimiter(opts.Alg, maxRate, ratelimit.Opts{MaxKeys: opts.MaxKeys, MaxBurst: opts.MaxBurst})
	if err != nil {
		return nil, fmt.Errorf("new rate limiter: %w", err)
	}

	getKey := opts.GetKey
	if getKey == nil {
		getKey = ClientKeyFromRemoteAddr
	}

	exemptPaths := opts.ExemptPaths
	if exemptPaths == nil {
		exemptPaths = DefaultExemptPaths()
	}

	respStatusCode := opts.ResponseStatusCode
	if respStatusCode == 0 {
		respStatusCode = http.StatusTooManyRequests
	}

	return func(next http.Handler) http.Handler {
		return &rateLimitHandler{
			next:           next,
			limiter:        limiter,
			maxRate:        maxRate,
			getKey:         getKey,
			skipper:        newPathSkipper(exemptPaths),
			errDomain:      errDomain,
			respStatusCode: respStatusCode,
			metrics:        opts.MetricsCollector,
			onReject:       makeRateLimitOnRejectFunc(opts),
			onError:        makeRateLimitOnErrorFunc(opts),
		}
	}, nil
}

// MustRateLimitWithOpts is a version of RateLimitWithOpts that panics if an error occurs.
func MustRateLimitWithOpts(
	maxRate ratelimit.Rate, errDomain string, opts RateLimitOpts,
) func(next http.Handler) http.Handler {
	mw, err := RateLimitWithOpts(maxRate, errDomain, opts)
	if err != nil {
		panic(err)
	}
	return mw
}

func (h *rateLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if h.skipper.Skip(r) {
		h.next.ServeHTTP(rw, r)
		return
	}

	logger := appkitmw.GetLoggerFromContext(r.Context())

	key, bypass, err := h.getKey(r)
	if err != nil {
		h.onError(rw, r, h.makeParams(key, 0), fmt.Errorf("get key for rate limit: %w", err), h.next, logger)
		return
	}
	if bypass {
		h.next.ServeHTTP(rw, r)
		return
	}

	allow, retryAfter, err := h.limiter.Allow(r.Context(), key)
	if err != nil {
		h.onError(rw, r, h.makeParams(key, 0), fmt.Errorf("rate limit: %w", err), h.next, logger)
		return
	}
	if !allow {
		if h.metrics != nil {
			h.metrics.RateLimitRejected()
		}
		h.onReject(rw, r, h.makeParams(key, retryAfter), h.next, logger)
		return
	}

	h.next.ServeHTTP(rw, r)
}

func (h *rateLimitHandler) makeParams(key string, retryAfter time.Duration) RateLimitParams {
	return RateLimitParams{
		ErrDomain:          h.errDomain,
		ResponseStatusCode: h.respStatusCode,
		MaxRate:            h.maxRate,
		Key:                key,
		RetryAfter:         retryAfter,
	}
}

// DefaultRateLimitOnReject sends an error response when the rate limit is exceeded.
// The response carries Retry-After along with the limit and window so the client can pace itself.
func DefaultRateLimitOnReject(
	rw http.ResponseWriter, r *http.Request, params RateLimitParams, next http.Handler, logger log.FieldLogger,
) {
	if logger != nil {
		logger = logger.With(
			log.String(RateLimitLogFieldKey, params.Key),
			log.String(userAgentLogFieldKey, r.UserAgent()),
		)
	}
	rw.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(params.RetryAfter.Seconds()))))
	rw.Header().Set("X-RateLimit-Limit", strconv.Itoa(params.MaxRate.Count))
	rw.Header().Set("X-RateLimit-Window", strconv.Itoa(int(params.MaxRate.Duration.Seconds())))
	apiErr := restapi.NewError(params.ErrDomain, RateLimitErrCode, "Too many requests.")
	restapi.RespondError(rw, params.ResponseStatusCode, apiErr, logger)
}

// DefaultRateLimitOnError sends an error response when an error occurs during rate limiting.
func DefaultRateLimitOnError(
	rw http.ResponseWriter, r *http.Request, params RateLimitParams, err error, next http.Handler, logger log.FieldLogger,
) {
	if logger != nil {
		logger.Error(err.Error(), log.String(RateLimitLogFieldKey, params.Key))
	}
	restapi.RespondInternalError(rw, params.ErrDomain, logger)
}

// DefaultRateLimitOnRejectInDryRun logs the denial and serves the request anyway.
func DefaultRateLimitOnRejectInDryRun(
	rw http.ResponseWriter, r *http.Request, params RateLimitParams, next http.Handler, logger log.FieldLogger,
) {
	if logger != nil {
		logger.Warn("too many requests, serving will be continued because of dry run mode",
			log.String(RateLimitLogFieldKey, params.Key),
			log.String(userAgentLogFieldKey, r.UserAgent()),
		)
	}
	next.ServeHTTP(rw, r)
}

func makeRateLimitOnRejectFunc(opts RateLimitOpts) RateLimitOnRejectFunc {
	if opts.DryRun {
		if opts.OnRejectInDryRun != nil {
			return opts.OnRejectInDryRun
		}
		return DefaultRateLimitOnRejectInDryRun
	}
	if opts.OnReject != nil {
		return opts.OnReject
	}
	return DefaultRateLimitOnReject
}

func makeRateLimitOnErrorFunc(opts RateLimitOpts) RateLimitOnErrorFunc {
	if opts.OnError != nil {
		return opts.OnError
	}
	return DefaultRateLimitOnError
}
