package mux

import "net/http"

// MiddlewareFunc is a decorator: it receives the next handler and
// returns a new handler wrapping it. Middleware can target any of a
// resource's dispatch roles and is applied exactly once, when the
// builder tree is finalized into a service. After composition a
// wrapped handler is indistinguishable from an unwrapped one; the
// dispatch machinery never special-cases wrapping.
type MiddlewareFunc func(http.Handler) http.Handler

// MiddlewareTarget names the dispatch role a middleware wraps.
type MiddlewareTarget int

const (
	// TargetRequestReceiver wraps a resource's entry point, before the
	// terminal-versus-delegate decision.
	TargetRequestReceiver MiddlewareTarget = iota

	// TargetRequestPasser wraps the child-matching step.
	TargetRequestPasser

	// TargetRequestHandler wraps the terminal method dispatch.
	TargetRequestHandler

	// TargetWildcardMethodHandler wraps the handler that answers
	// methods without their own registration.
	TargetWildcardMethodHandler

	// TargetMistargetedHandler wraps the resource's custom not-found
	// responder.
	TargetMistargetedHandler
)

// middlewareEntry records one registration. Method is set only for
// method-targeted middleware.
type middlewareEntry struct {
	target MiddlewareTarget
	method string
	mw     MiddlewareFunc
}

// wrapMiddleware composes the registered middleware around handler.
// Registration order is preserved as layering order: the first
// registered middleware runs outermost.
func wrapMiddleware(handler http.Handler, mws []MiddlewareFunc) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}
