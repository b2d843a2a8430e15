package mux

import (
	"net/url"
	"path"
	"sort"
	"strings"
)

// cleanPath returns the canonical path for p, eliminating . and ..
// elements per RFC 3986 Section 5.2.4 (remove dot segments).
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	np := path.Clean(p)
	// path.Clean removes trailing slash except for root;
	// put the trailing slash back if necessary.
	if p[len(p)-1] == '/' && np != "/" {
		np += "/"
	}
	return np
}

// requestURIPath returns the percent-encoded path per RFC 3986
// Section 2.1. Falls back to the decoded Path when RawPath is empty.
func requestURIPath(u *url.URL) string {
	if u.RawPath != "" {
		return u.RawPath
	}
	return u.Path
}

// hostWithoutPort returns the lowercased hostname without port per
// RFC 9112 Section 3.2 (host:port format of the authority).
func hostWithoutPort(host string) string {
	if i := strings.LastIndexByte(host, ':'); i != -1 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	return strings.ToLower(host)
}

// isValidMethodToken reports whether method is a valid HTTP method
// token per RFC 9110 Section 9.1 (token grammar of Section 5.6.2).
func isValidMethodToken(method string) bool {
	if method == "" {
		return false
	}
	for i := 0; i < len(method); i++ {
		if !isTokenChar(method[i]) {
			return false
		}
	}
	return true
}

func isTokenChar(ch byte) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	}
	switch ch {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

// isValidHeaderValue reports whether v can be sent as a field value
// per RFC 9110 Section 5.5 (no control characters other than HTAB).
func isValidHeaderValue(v string) bool {
	for i := 0; i < len(v); i++ {
		ch := v[i]
		if ch < 0x20 && ch != '\t' || ch == 0x7f {
			return false
		}
	}
	return true
}

// renderAllowedMethods renders the Allow field value for a method
// handler set: the registered methods plus HEAD when GET is handled
// (RFC 9110 Section 9.3.2 makes HEAD follow GET), sorted
// alphabetically, comma separated.
func renderAllowedMethods(methods []string) string {
	allowed := make([]string, 0, len(methods)+1)
	allowed = append(allowed, methods...)

	var hasGet, hasHead bool
	for _, m := range methods {
		switch m {
		case "GET":
			hasGet = true
		case "HEAD":
			hasHead = true
		}
	}
	if hasGet && !hasHead {
		allowed = append(allowed, "HEAD")
	}

	sort.Strings(allowed)
	return strings.Join(allowed, ", ")
}
