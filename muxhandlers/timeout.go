package muxhandlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/vitalvas/arbor/mux"
)

// ErrInvalidTimeout is returned when TimeoutConfig.Duration is not
// greater than zero.
var ErrInvalidTimeout = errors.New("timeout: duration must be greater than zero")

// TimeoutConfig configures the Timeout middleware behaviour.
type TimeoutConfig struct {
	// Duration is the maximum time allowed for the wrapped handler to
	// complete. Must be greater than zero.
	Duration time.Duration

	// Message is the response body returned on timeout. When empty,
	// the standard library default is used.
	Message string
}

// TimeoutMiddleware returns a middleware that limits handler execution
// time, answering 503 Service Unavailable when the deadline passes. It
// builds on http.TimeoutHandler, so the wrapped handler keeps running
// but its writes are discarded after the timeout.
//
// A deadline already present on the request context wins when it is
// shorter than the configured duration, so an outer timeout is never
// loosened by an inner one.
//
// Wrapping a method target bounds one handler; wrapping a receiver
// target bounds the whole subtree below it.
func TimeoutMiddleware(cfg TimeoutConfig) (mux.MiddlewareFunc, error) {
	if cfg.Duration <= 0 {
		return nil, ErrInvalidTimeout
	}

	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, cfg.Duration, cfg.Message)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if deadline, ok := r.Context().Deadline(); ok {
				if remaining := time.Until(deadline); remaining < cfg.Duration {
					http.TimeoutHandler(next, remaining, cfg.Message).ServeHTTP(w, r)
					return
				}
			}
			bounded.ServeHTTP(w, r)
		})
	}, nil
}
