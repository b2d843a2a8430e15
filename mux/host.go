package mux

import (
	"fmt"
	"strings"
)

// Host pairs an authority pattern with a resource tree. The authority
// is matched as a single unit against the request's Host header
// without the port (RFC 9112 Section 3.2); a regex authority's
// captures become path parameters of the request.
//
// Wildcard authority patterns are rejected: a wildcard captures "one
// remaining segment", a notion that does not exist for authorities. A
// catch-all is expressed by giving the router a hostless root instead.
type Host struct {
	pattern *Pattern
	root    *Resource
}

// NewHost builds a host from an authority pattern and a root resource.
func NewHost(authorityPattern string, root *Resource) (*Host, error) {
	if root == nil {
		return nil, fmt.Errorf("mux: nil root resource for host %q", authorityPattern)
	}
	if !root.isRoot() {
		return nil, fmt.Errorf(
			"mux: host %q requires a root resource, got %q", authorityPattern, root.Template(),
		)
	}

	p, err := ParsePattern(authorityPattern)
	if err != nil {
		return nil, err
	}
	switch {
	case p.IsWildcard():
		return nil, fmt.Errorf("mux: authority pattern %q cannot be a wildcard", authorityPattern)
	case p.isPlaceholder():
		return nil, fmt.Errorf("mux: authority pattern %q has no matcher", authorityPattern)
	case p.IsStatic():
		// Host comparison is case-insensitive per RFC 9110
		// Section 4.2.3; the request side arrives lowercased.
		p.value = strings.ToLower(p.value)
	}

	return &Host{pattern: p, root: root}, nil
}

// Pattern returns the host's authority pattern.
func (h *Host) Pattern() *Pattern {
	return h.pattern
}

// Root returns the host's root resource for further configuration.
func (h *Host) Root() *Resource {
	return h.root
}
