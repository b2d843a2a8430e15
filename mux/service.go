package mux

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// compiledResource is the immutable, finalized form of a Resource.
// All handler composition happened at compile time; after IntoService
// returns, the tree is read-only and safe for unsynchronized
// concurrent dispatch.
type compiledResource struct {
	pattern  *Pattern
	template string
	flags    resourceFlags

	staticChildren []*compiledResource
	regexChildren  []*compiledResource
	wildcardChild  *compiledResource

	// The three dispatch roles, each already wrapped with its
	// middleware.
	receiver http.Handler
	passer   http.Handler
	handler  http.Handler

	methodHandlers map[string]http.Handler
	wildcardMethod wildcardMethodConfig
	mistargeted    http.Handler

	allowHeader string
	allowValid  bool
}

// hasMethodHandlers reports whether the resource can answer requests
// itself, which is what makes it eligible for subtree recovery.
func (c *compiledResource) hasMethodHandlers() bool {
	return len(c.methodHandlers) > 0
}

// ResourceService is a compiled resource tree ready to serve requests.
// It is immutable and safe for concurrent use.
type ResourceService struct {
	root *compiledResource
}

// IntoService finalizes the resource tree into an immutable service.
// The builder is consumed: finalizing twice, or mutating the tree
// afterwards, is a construction error. All middleware composition,
// Allow-header rendering, and validation happen here, once.
func (r *Resource) IntoService() (*ResourceService, error) {
	if r.finalized {
		return nil, fmt.Errorf("mux: resource %q was already finalized", r.Template())
	}

	root, err := compileResource(r, parentTemplateOf(r))
	if err != nil {
		return nil, err
	}

	markFinalized(r)
	return &ResourceService{root: root}, nil
}

// parentTemplateOf renders the prefix chain of the resource the
// service is rooted at, so deep-rooted services still report full
// templates.
func parentTemplateOf(r *Resource) string {
	var b strings.Builder
	for _, p := range r.prefixPatterns {
		b.WriteByte('/')
		b.WriteString(p.String())
	}
	return b.String()
}

func markFinalized(r *Resource) {
	r.finalized = true
	for _, child := range r.staticChildren {
		markFinalized(child)
	}
	for _, child := range r.regexChildren {
		markFinalized(child)
	}
	if r.wildcardChild != nil {
		markFinalized(r.wildcardChild)
	}
}

// compileResource converts one builder node and its subtree.
func compileResource(r *Resource, parentTemplate string) (*compiledResource, error) {
	if r.pattern.isPlaceholder() {
		return nil, fmt.Errorf(
			"mux: pattern %q has no matcher; the name-only declaration was never reconciled",
			r.pattern,
		)
	}

	template := parentTemplate + "/" + r.pattern.String()
	if r.isRoot() {
		template = "/"
	} else if r.flags.endsWithSlash {
		template += "/"
	}

	c := &compiledResource{
		pattern:  r.pattern,
		template: template,
		flags:    r.flags,
	}

	childTemplate := strings.TrimSuffix(template, "/")
	for _, child := range r.staticChildren {
		cc, err := compileResource(child, childTemplate)
		if err != nil {
			return nil, err
		}
		c.staticChildren = append(c.staticChildren, cc)
	}
	for _, child := range r.regexChildren {
		cc, err := compileResource(child, childTemplate)
		if err != nil {
			return nil, err
		}
		c.regexChildren = append(c.regexChildren, cc)
	}
	if r.wildcardChild != nil {
		cc, err := compileResource(r.wildcardChild, childTemplate)
		if err != nil {
			return nil, err
		}
		c.wildcardChild = cc
	}

	if err := c.compileHandlers(r); err != nil {
		return nil, err
	}
	return c, nil
}

// compileHandlers composes the node's method table, Allow header, and
// middleware-wrapped dispatch roles.
func (c *compiledResource) compileHandlers(r *Resource) error {
	c.methodHandlers = make(map[string]http.Handler, len(r.methodHandlers))
	methods := make([]string, 0, len(r.methodHandlers))
	for _, mh := range r.methodHandlers {
		c.methodHandlers[mh.method] = mh.handler
		methods = append(methods, mh.method)
	}
	c.allowHeader = renderAllowedMethods(methods)
	c.allowValid = isValidHeaderValue(c.allowHeader)
	c.wildcardMethod = r.wildcardMethod
	if c.wildcardMethod.mode == wildcardMethodCustom && c.wildcardMethod.handler == nil {
		return fmt.Errorf("mux: nil wildcard method handler on resource %q", r.Template())
	}

	var receiverMws, passerMws, handlerMws, wildcardMws, mistargetedMws []MiddlewareFunc
	methodMws := make(map[string][]MiddlewareFunc)
	for _, entry := range r.middleware {
		switch entry.target {
		case TargetRequestReceiver:
			receiverMws = append(receiverMws, entry.mw)
		case TargetRequestPasser:
			passerMws = append(passerMws, entry.mw)
		case TargetRequestHandler:
			if entry.method == "" {
				handlerMws = append(handlerMws, entry.mw)
				continue
			}
			if _, ok := c.methodHandlers[entry.method]; !ok {
				return fmt.Errorf(
					"mux: middleware targets method %s of resource %q, which has no handler",
					entry.method, r.Template(),
				)
			}
			methodMws[entry.method] = append(methodMws[entry.method], entry.mw)
		case TargetWildcardMethodHandler:
			wildcardMws = append(wildcardMws, entry.mw)
		case TargetMistargetedHandler:
			mistargetedMws = append(mistargetedMws, entry.mw)
		}
	}

	// Composed like every other target: the first registered runs
	// outermost.
	for method, mws := range methodMws {
		c.methodHandlers[method] = wrapMiddleware(c.methodHandlers[method], mws)
	}

	if c.wildcardMethod.handler != nil {
		c.wildcardMethod.handler = wrapMiddleware(c.wildcardMethod.handler, wildcardMws)
	} else if len(wildcardMws) > 0 {
		return fmt.Errorf(
			"mux: middleware targets the wildcard method handler of resource %q, which has none",
			r.Template(),
		)
	}

	if r.mistargeted != nil {
		c.mistargeted = wrapMiddleware(r.mistargeted, mistargetedMws)
	} else if len(mistargetedMws) > 0 {
		return fmt.Errorf(
			"mux: middleware targets the mistargeted handler of resource %q, which has none",
			r.Template(),
		)
	}

	c.handler = wrapMiddleware(http.HandlerFunc(c.handleMethod), handlerMws)
	c.passer = wrapMiddleware(http.HandlerFunc(c.passRequest), passerMws)
	c.receiver = wrapMiddleware(http.HandlerFunc(c.receiveRequest), receiverMws)
	return nil
}

// ServeHTTP dispatches the request through the compiled tree. The
// not-found outcome is deferred: inner roles record it in the routing
// state, and the response is written here once the whole tree has had
// its say.
func (s *ResourceService) ServeHTTP(w http.ResponseWriter, req *http.Request) {
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

	s.dispatch(w, req, rs, nil)
}

// dispatch runs the tree against an already-created routing state. The
// router layer enters here after authority matching so host captures
// share the request's parameter list. A non-nil mistargeted handler
// replaces the default 404 response for deferred not-found outcomes.
func (s *ResourceService) dispatch(w http.ResponseWriter, req *http.Request, rs *routingState, mistargeted http.Handler) {
	matched, badRequest := s.matchOwnPattern(rs)
	if badRequest {
		http.Error(w, "400 bad request", http.StatusBadRequest)
		return
	}
	if !matched {
		respondNotFound(w, req, mistargeted)
		return
	}

	s.root.receiver.ServeHTTP(w, req)

	if rs.mistargeted {
		respondNotFound(w, req, mistargeted)
	}
}

func respondNotFound(w http.ResponseWriter, req *http.Request, mistargeted http.Handler) {
	if mistargeted != nil {
		mistargeted.ServeHTTP(w, req)
		return
	}
	http.NotFound(w, req)
}

// matchOwnPattern consumes the service root's own segment. A
// root-patterned service owns the path start and consumes nothing.
func (s *ResourceService) matchOwnPattern(rs *routingState) (matched, badRequest bool) {
	root := s.root
	if root.isRootPattern() {
		return true, false
	}
	if !rs.cursor.hasRemaining() {
		return false, false
	}

	segment := rs.cursor.nextSegment()
	switch root.pattern.kind {
	case patternStatic:
		return root.pattern.matchStatic(segment), false
	default:
		decoded, err := url.PathUnescape(segment)
		if err != nil {
			return false, true
		}
		if root.pattern.kind == patternWildcard {
			root.pattern.matchWildcard(decoded, &rs.params)
			return true, false
		}
		return root.pattern.matchRegex(decoded, &rs.params), false
	}
}

// receiveRequest is a resource's entry point: it decides between
// terminal handling and delegation, applies the trailing-slash policy,
// and recovers mistargeted requests when the resource is a subtree
// handler.
func (c *compiledResource) receiveRequest(w http.ResponseWriter, req *http.Request) {
	rs := stateOf(req)

	if rs.cursor.hasRemaining() {
		if c.flags.subtreeHandler && c.hasMethodHandlers() {
			savedIndex := rs.cursor.segmentIndex()
			savedParams := rs.params.Len()

			c.passer.ServeHTTP(w, req)

			if rs.mistargeted {
				rs.mistargeted = false
				rs.cursor.revertTo(savedIndex)
				rs.params.truncate(savedParams)
				rs.template = c.template
				c.handler.ServeHTTP(w, req)
			}
			return
		}

		c.passer.ServeHTTP(w, req)
		return
	}

	if !c.isRootPattern() && rs.cursor.endsWithSlash() != c.flags.endsWithSlash {
		switch c.flags.slashPolicy {
		case SlashRedirect:
			target := rs.cursor.path
			if c.flags.endsWithSlash {
				target += "/"
			} else {
				target = strings.TrimSuffix(target, "/")
			}
			redirectTo(w, req, target)
			return
		case SlashDrop:
			c.notFound(w, req, rs)
			return
		}
		// SlashHandle falls through.
	}

	rs.template = c.template
	c.handler.ServeHTTP(w, req)
}

func (c *compiledResource) isRootPattern() bool {
	return c.pattern.kind == patternStatic && c.pattern.value == "/"
}

// passRequest matches the next path segment against the children:
// static patterns first against the raw encoded text, then regex
// patterns in registration order and the wildcard against the decoded
// text. An undecodable segment is the client's error and ends the
// request with 400.
func (c *compiledResource) passRequest(w http.ResponseWriter, req *http.Request) {
	rs := stateOf(req)
	segment := rs.cursor.nextSegment()

	for _, child := range c.staticChildren {
		if child.pattern.matchStatic(segment) {
			child.receiver.ServeHTTP(w, req)
			return
		}
	}

	if c.regexChildren != nil || c.wildcardChild != nil {
		decoded, err := url.PathUnescape(segment)
		if err != nil {
			http.Error(w, "400 bad request", http.StatusBadRequest)
			return
		}

		for _, child := range c.regexChildren {
			if child.pattern.matchRegex(decoded, &rs.params) {
				child.receiver.ServeHTTP(w, req)
				return
			}
		}
		if c.wildcardChild != nil {
			c.wildcardChild.pattern.matchWildcard(decoded, &rs.params)
			c.wildcardChild.receiver.ServeHTTP(w, req)
			return
		}
	}

	c.notFound(w, req, rs)
}

// handleMethod is the terminal dispatch: exact method, then the HEAD
// fallback to GET with a discarded body (RFC 9110 Section 9.3.2), then
// the wildcard-method behavior.
func (c *compiledResource) handleMethod(w http.ResponseWriter, req *http.Request) {
	rs := stateOf(req)

	if h, ok := c.methodHandlers[req.Method]; ok {
		h.ServeHTTP(w, req)
		return
	}

	if req.Method == http.MethodHead {
		if h, ok := c.methodHandlers[http.MethodGet]; ok {
			h.ServeHTTP(headResponseWriter{w}, req)
			return
		}
	}

	switch c.wildcardMethod.mode {
	case wildcardMethodCustom:
		c.wildcardMethod.handler.ServeHTTP(w, req)
	case wildcardMethodDisabled:
		c.notFound(w, req, rs)
	default:
		if !c.hasMethodHandlers() {
			c.notFound(w, req, rs)
			return
		}
		if !c.allowValid {
			http.Error(w, "500 internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Allow", c.allowHeader)
		http.Error(w, "405 method not allowed", http.StatusMethodNotAllowed)
	}
}

// notFound resolves a not-found outcome at this resource. A custom
// mistargeted handler answers immediately and cannot be recovered by a
// subtree-handler ancestor; otherwise the outcome is deferred through
// the routing state.
func (c *compiledResource) notFound(w http.ResponseWriter, req *http.Request, rs *routingState) {
	if c.mistargeted != nil {
		rs.template = c.template
		c.mistargeted.ServeHTTP(w, req)
		return
	}
	rs.mistargeted = true
}

// redirectTo writes a 308 Permanent Redirect with an empty body.
// http.Redirect is avoided: it writes an HTML body for GET requests,
// and the redirect here carries none.
func redirectTo(w http.ResponseWriter, req *http.Request, target string) {
	if q := req.URL.RawQuery; q != "" {
		target += "?" + q
	}
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusPermanentRedirect)
}

// headResponseWriter discards the body while keeping headers and the
// status code, for the HEAD fallback to a GET handler.
type headResponseWriter struct {
	http.ResponseWriter
}

func (w headResponseWriter) Write(b []byte) (int, error) {
	return len(b), nil
}
