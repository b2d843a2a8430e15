package muxhandlers

import (
	"net/http"
	"runtime/debug"

	"github.com/vitalvas/arbor/mux"
)

// PanicInfo describes a recovered panic, passed to RecoveryConfig.LogFunc.
type PanicInfo struct {
	// Value is the recovered panic value.
	Value any

	// Template is the path template of the resource whose handler
	// panicked, when the panic happened inside dispatch. Empty
	// otherwise.
	Template string

	// Stack is the goroutine stack at the recovery point. Nil unless
	// RecoveryConfig.CaptureStack is set.
	Stack []byte
}

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// LogFunc is an optional callback invoked with the request and the
	// recovered panic. When nil, no logging is performed.
	LogFunc func(r *http.Request, info PanicInfo)

	// CaptureStack records the goroutine stack in PanicInfo.Stack.
	CaptureStack bool
}

// RecoveryMiddleware returns a middleware that recovers from panics in
// downstream handlers, answering 500 Internal Server Error. A panic
// with http.ErrAbortHandler is re-raised so the server aborts the
// connection as the handler intended.
//
// The middleware is meant for a receiver or router-level target so a
// panic anywhere below it, including deeper resources, is contained.
func RecoveryMiddleware(cfg RecoveryConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				if cfg.LogFunc != nil {
					info := PanicInfo{
						Value:    v,
						Template: mux.CurrentTemplate(r),
					}
					if cfg.CaptureStack {
						info.Stack = debug.Stack()
					}
					cfg.LogFunc(r, info)
				}

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
