package mux

import "net/http"

// SlashPolicy selects how a resource answers a request whose
// trailing-slash shape differs from the resource's own.
type SlashPolicy int

const (
	// SlashRedirect answers with 308 Permanent Redirect (RFC 7538) to
	// the corrected path. This is the default.
	SlashRedirect SlashPolicy = iota

	// SlashDrop treats the mismatched request as not found.
	SlashDrop

	// SlashHandle ignores the mismatch and dispatches normally.
	SlashHandle
)

// wildcardMethodMode is the closed set of behaviors for requests whose
// method has no registered handler.
type wildcardMethodMode int

const (
	// wildcardMethodDefault answers 405 Method Not Allowed with an
	// Allow header listing the supported methods (RFC 9110
	// Section 15.5.6).
	wildcardMethodDefault wildcardMethodMode = iota

	// wildcardMethodCustom dispatches to a caller-supplied handler.
	wildcardMethodCustom

	// wildcardMethodDisabled treats the request as not found,
	// deliberately hiding the distinction between an unsupported
	// method and a missing resource.
	wildcardMethodDisabled
)

// wildcardMethodConfig pairs the mode with the custom handler, if any.
type wildcardMethodConfig struct {
	mode    wildcardMethodMode
	handler http.Handler
}

// resourceFlags holds the per-resource boolean configuration.
type resourceFlags struct {
	subtreeHandler bool
	endsWithSlash  bool
	slashPolicy    SlashPolicy
}

// configured reports whether any flag differs from its default. Used
// by the merge algorithm's "has effect" test.
func (f resourceFlags) configured() bool {
	return f.subtreeHandler || f.slashPolicy != SlashRedirect
}
