package mux

import (
	"fmt"
	"net/http"
)

// Router is the top-level builder: a set of hosts plus an optional
// hostless root resource. Like Resource, it is built single-threaded
// and consumed once by IntoService.
type Router struct {
	staticHosts []*Host
	regexHosts  []*Host
	root        *Resource
	mistargeted http.Handler
	middleware  []MiddlewareFunc
	finalized   bool
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{}
}

// AddHost registers a host. Two hosts with the Same authority pattern
// are merged by their root resources under the usual effect rules; a
// regex authority under a different capture name is a conflict.
func (ro *Router) AddHost(h *Host) error {
	if h == nil {
		return fmt.Errorf("mux: nil host")
	}

	group := &ro.staticHosts
	if h.pattern.IsRegex() {
		group = &ro.regexHosts
	}

	for _, existing := range *group {
		switch existing.pattern.Compare(h.pattern) {
		case Same:
			merged, err := mergeResources(existing.root, h.root)
			if err != nil {
				return fmt.Errorf("mux: host %q: %w", h.pattern, err)
			}
			existing.root = merged
			return nil
		case DifferentNames:
			return fmt.Errorf(
				"mux: authority pattern %q conflicts with %q: same shape under a different capture name",
				h.pattern, existing.pattern,
			)
		}
	}

	*group = append(*group, h)
	return nil
}

// Host returns the host with the given authority pattern, creating it
// with an empty root when absent.
func (ro *Router) Host(authorityPattern string) (*Host, error) {
	p, err := ParsePattern(authorityPattern)
	if err != nil {
		return nil, err
	}

	group := ro.staticHosts
	if p.IsRegex() {
		group = ro.regexHosts
	}
	for _, existing := range group {
		if existing.pattern.Compare(p) == Same {
			return existing, nil
		}
	}

	h, err := NewHost(authorityPattern, newRootResource())
	if err != nil {
		return nil, err
	}
	if err := ro.AddHost(h); err != nil {
		return nil, err
	}
	return h, nil
}

// SetRoot installs the hostless root resource, which serves requests
// whose authority matches no registered host. Without one, such
// requests answer 404 immediately.
func (ro *Router) SetRoot(root *Resource) error {
	if root == nil {
		return fmt.Errorf("mux: nil root resource")
	}
	if !root.isRoot() {
		return fmt.Errorf("mux: the router root must be a %q resource, got %q", "/", root.Template())
	}
	if ro.root != nil {
		merged, err := mergeResources(ro.root, root)
		if err != nil {
			return err
		}
		ro.root = merged
		return nil
	}
	ro.root = root
	return nil
}

// Resource returns the resource at path below the hostless root,
// creating the root and intermediate resources on demand.
func (ro *Router) Resource(path string) (*Resource, error) {
	if ro.root == nil {
		ro.root = newRootResource()
	}
	if path == "/" {
		return ro.root, nil
	}
	return ro.root.Subresource(path)
}

// SetMistargetedHandler installs a router-wide not-found responder,
// replacing the default 404 for unmatched authorities and for requests
// no resource-level responder claimed.
func (ro *Router) SetMistargetedHandler(handler http.Handler) {
	ro.mistargeted = handler
}

// Use wraps the whole router service with middleware, outside host
// matching. The first registered runs outermost.
func (ro *Router) Use(mws ...MiddlewareFunc) {
	ro.middleware = append(ro.middleware, mws...)
}

// compiledHost pairs a host's authority pattern with its compiled
// resource tree.
type compiledHost struct {
	pattern *Pattern
	service *ResourceService
}

// RouterService is the compiled router. It is immutable and safe for
// concurrent use.
type RouterService struct {
	staticHosts []compiledHost
	regexHosts  []compiledHost
	root        *ResourceService
	mistargeted http.Handler
	entry       http.Handler
}

// IntoService finalizes the router, compiling every host tree and the
// hostless root and composing the router-level middleware once.
func (ro *Router) IntoService() (*RouterService, error) {
	if ro.finalized {
		return nil, fmt.Errorf("mux: router was already finalized")
	}
	ro.finalized = true

	s := &RouterService{}
	for _, h := range ro.staticHosts {
		svc, err := h.root.IntoService()
		if err != nil {
			return nil, fmt.Errorf("mux: host %q: %w", h.pattern, err)
		}
		s.staticHosts = append(s.staticHosts, compiledHost{pattern: h.pattern, service: svc})
	}
	for _, h := range ro.regexHosts {
		svc, err := h.root.IntoService()
		if err != nil {
			return nil, fmt.Errorf("mux: host %q: %w", h.pattern, err)
		}
		s.regexHosts = append(s.regexHosts, compiledHost{pattern: h.pattern, service: svc})
	}
	if ro.root != nil {
		svc, err := ro.root.IntoService()
		if err != nil {
			return nil, err
		}
		s.root = svc
	}

	s.mistargeted = ro.mistargeted
	s.entry = wrapMiddleware(http.HandlerFunc(s.route), ro.middleware)
	return s, nil
}

// ServeHTTP routes the request by authority, then by path.
func (s *RouterService) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.entry.ServeHTTP(w, req)
}

// route matches the request's authority against the static hosts, then
// the regex hosts in registration order, falling back to the hostless
// root. Regex authority captures join the request's parameters before
// path matching starts.
func (s *RouterService) route(w http.ResponseWriter, req *http.Request) {
	escapedPath := requestURIPath(req.URL)
	if escapedPath == "" {
		escapedPath = "/"
	}
	if cp := cleanPath(escapedPath); cp != escapedPath {
		redirectTo(w, req, cp)
		return
	}

	rs := &routingState{cursor: newRouteCursor(escapedPath)}
	req = withRoutingState(req, rs)

	host := hostWithoutPort(req.Host)

	for _, ch := range s.staticHosts {
		if ch.pattern.matchStatic(host) {
			ch.service.dispatch(w, req, rs, s.mistargeted)
			return
		}
	}
	for _, ch := range s.regexHosts {
		if ch.pattern.matchRegex(host, &rs.params) {
			ch.service.dispatch(w, req, rs, s.mistargeted)
			return
		}
	}

	if s.root != nil {
		s.root.dispatch(w, req, rs, s.mistargeted)
		return
	}

	respondNotFound(w, req, s.mistargeted)
}
