// Package muxhandlers provides HTTP middleware for the mux router.
//
// Every middleware is a mux.MiddlewareFunc and can target any dispatch
// role of a resource, or the router as a whole.
//
// # Recovery
//
// RecoveryMiddleware contains panics from downstream handlers and
// answers 500 Internal Server Error. The optional log callback
// receives the matched path template and, when enabled, the stack:
//
//	mw := muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{
//	    LogFunc: func(r *http.Request, info muxhandlers.PanicInfo) {
//	        log.Printf("panic in %s: %v", info.Template, info.Value)
//	    },
//	    CaptureStack: true,
//	})
//	router.Use(mw)
//
// # Request ID
//
// RequestIDMiddleware assigns each request a unique ID (UUID v7 by
// default, per RFC 9562), propagated through the request context and
// the X-Request-ID header:
//
//	router.Use(muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{}))
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    id := muxhandlers.RequestID(r)
//	    ...
//	}
//
// # Timeout
//
// TimeoutMiddleware bounds handler execution time with
// http.TimeoutHandler, answering 503 Service Unavailable on expiry:
//
//	mw, err := muxhandlers.TimeoutMiddleware(muxhandlers.TimeoutConfig{
//	    Duration: 5 * time.Second,
//	})
//
// # Security Headers
//
// SecurityHeadersMiddleware sets common security response headers
// (X-Content-Type-Options, X-Frame-Options, Referrer-Policy, and
// optionally Strict-Transport-Security, Content-Security-Policy, and
// Permissions-Policy):
//
//	mw, err := muxhandlers.SecurityHeadersMiddleware(muxhandlers.SecurityHeadersConfig{
//	    HSTSMaxAge: 31536000,
//	})
package muxhandlers
