package mux

import (
	"context"
	"net/http"
)

// routingStateKey is an unexported type for the single context key.
type routingStateKey struct{}

var stateKey = routingStateKey{}

// routingState is the per-request dispatch state. It is created at the
// service entry, owned exclusively by the request's goroutine, and
// discarded when the response is produced. All dispatch roles reach it
// through the request context, so a middleware that swaps the request
// (r.WithContext) keeps the same state.
type routingState struct {
	cursor routeCursor
	params ParamList

	// template accumulates the matched resource's path template for
	// introspection by handlers and middleware.
	template string

	// mistargeted defers the not-found outcome: instead of writing a
	// response, the failing role sets this flag and unwinds, letting a
	// subtree-handler ancestor recover the request or the service
	// entry write the final 404.
	mistargeted bool
}

// withRoutingState stores the state in the request context. Called
// once per request at the service entry.
func withRoutingState(r *http.Request, rs *routingState) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), stateKey, rs))
}

// stateOf returns the request's routing state, or nil when the request
// did not enter through a compiled service.
func stateOf(r *http.Request) *routingState {
	rs, _ := r.Context().Value(stateKey).(*routingState)
	return rs
}

// Params returns the path parameters captured for the current request
// in match order. It returns an empty list for requests that were not
// dispatched through a compiled service.
func Params(r *http.Request) []Param {
	if rs := stateOf(r); rs != nil {
		return rs.params.All()
	}
	return nil
}

// ParamValue returns the value of a single captured parameter by name
// and whether it exists with a valid value.
func ParamValue(r *http.Request, name string) (string, bool) {
	if rs := stateOf(r); rs != nil {
		return rs.params.Get(name)
	}
	return "", false
}

// CurrentTemplate returns the path template of the resource handling
// the current request, such as "/users/$id:@([0-9]+)". It is empty
// until dispatch reaches a resource and for requests outside a
// compiled service.
func CurrentTemplate(r *http.Request) string {
	if rs := stateOf(r); rs != nil {
		return rs.template
	}
	return ""
}
