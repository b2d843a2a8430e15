package mux

import (
	"fmt"
	"net/http"
	"strings"
)

// Resource is a mutable tree-node builder representing one URI segment
// and its children, handlers, and middleware. A Resource tree is built
// single-threaded, then consumed exactly once by IntoService, which
// produces the immutable, concurrently shareable ResourceService. The
// builder must not be used after finalization.
type Resource struct {
	pattern *Pattern

	// prefixPatterns is the chain of ancestor patterns recorded when
	// the resource was created from a multi-segment path. It is used
	// only to validate cross-subtree attachment and is discarded at
	// finalization.
	prefixPatterns []*Pattern

	staticChildren []*Resource
	regexChildren  []*Resource
	wildcardChild  *Resource

	methodHandlers []methodHandler
	wildcardMethod wildcardMethodConfig
	mistargeted    http.Handler
	middleware     []middlewareEntry

	flags     resourceFlags
	finalized bool
}

// methodHandler pairs one HTTP method with its handler, keeping
// registration order.
type methodHandler struct {
	method  string
	handler http.Handler
}

// NewResource parses a rooted path into a resource. The returned
// resource represents the path's last segment; the preceding segments
// are kept as its prefix chain and materialize as intermediate nodes
// when the resource is added to a tree. A trailing slash fixes the
// resource's trailing-slash shape.
func NewResource(path string) (*Resource, error) {
	if path == "" {
		return nil, fmt.Errorf("mux: empty path pattern")
	}
	if path == "/" {
		return newRootResource(), nil
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("mux: path pattern %q must start with a slash or be the root \"/\"", path)
	}

	endsWithSlash := strings.HasSuffix(path, "/")
	patterns, err := parsePathPatterns(path)
	if err != nil {
		return nil, err
	}

	last := len(patterns) - 1
	if patterns[last].isPlaceholder() {
		return nil, fmt.Errorf(
			"mux: pattern %q has no matcher; a name-only pattern is valid only inside a prefix path",
			patterns[last],
		)
	}

	r := &Resource{
		pattern:        patterns[last],
		prefixPatterns: patterns[:last],
	}
	r.flags.endsWithSlash = endsWithSlash

	return r, nil
}

// newRootResource returns the resource for "/".
func newRootResource() *Resource {
	return &Resource{
		pattern: &Pattern{kind: patternStatic, template: "/", value: "/"},
	}
}

// newSegmentResource wraps a single parsed pattern.
func newSegmentResource(p *Pattern) *Resource {
	return &Resource{pattern: p}
}

// parsePathPatterns splits a rooted path into per-segment patterns.
func parsePathPatterns(path string) ([]*Pattern, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/")
	segments := strings.Split(trimmed, "/")

	patterns := make([]*Pattern, 0, len(segments))
	for _, segment := range segments {
		p, err := ParsePattern(segment)
		if err != nil {
			return nil, fmt.Errorf("%w (path %q)", err, path)
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// isRoot reports whether the resource is the tree root "/".
func (r *Resource) isRoot() bool {
	return r.pattern.kind == patternStatic && r.pattern.value == "/"
}

// Pattern returns the resource's own segment pattern.
func (r *Resource) Pattern() *Pattern {
	return r.pattern
}

// Template reconstructs the resource's full path template from its
// prefix chain and its own pattern.
func (r *Resource) Template() string {
	if r.isRoot() {
		return "/"
	}
	var b strings.Builder
	for _, p := range r.prefixPatterns {
		b.WriteByte('/')
		b.WriteString(p.String())
	}
	b.WriteByte('/')
	b.WriteString(r.pattern.String())
	if r.flags.endsWithSlash {
		b.WriteByte('/')
	}
	return b.String()
}

// pathPattern returns the pattern chain from the root to this
// resource, excluding the root itself.
func (r *Resource) pathPattern() []*Pattern {
	if r.isRoot() {
		return nil
	}
	chain := make([]*Pattern, 0, len(r.prefixPatterns)+1)
	chain = append(chain, r.prefixPatterns...)
	return append(chain, r.pattern)
}

// hasEffect reports whether the resource carries anything that affects
// request handling: handlers, middleware, a custom or disabled
// wildcard-method mode, a mistargeted handler, or non-default flags.
// Effect-free resources are structural and may be absorbed during a
// merge.
func (r *Resource) hasEffect() bool {
	return len(r.methodHandlers) > 0 ||
		r.wildcardMethod.mode != wildcardMethodDefault ||
		r.wildcardMethod.handler != nil ||
		r.mistargeted != nil ||
		len(r.middleware) > 0 ||
		r.flags.configured()
}

// --- Configuration ---

// SetHandler registers a handler for one HTTP method, replacing any
// previous registration for that method. The method must be a valid
// token per RFC 9110 Section 9.1.
func (r *Resource) SetHandler(method string, handler http.Handler) error {
	method = strings.ToUpper(method)
	if !isValidMethodToken(method) {
		return fmt.Errorf("mux: invalid method token %q", method)
	}
	if handler == nil {
		return fmt.Errorf("mux: nil handler for method %s", method)
	}

	for i, mh := range r.methodHandlers {
		if mh.method == method {
			r.methodHandlers[i].handler = handler
			return nil
		}
	}
	r.methodHandlers = append(r.methodHandlers, methodHandler{method, handler})
	return nil
}

// SetHandlerFunc registers a handler function for one HTTP method.
func (r *Resource) SetHandlerFunc(method string, f func(http.ResponseWriter, *http.Request)) error {
	return r.SetHandler(method, http.HandlerFunc(f))
}

// SetWildcardMethodHandler replaces the default 405 responder with a
// caller-supplied handler for methods without their own registration.
func (r *Resource) SetWildcardMethodHandler(handler http.Handler) {
	r.wildcardMethod = wildcardMethodConfig{mode: wildcardMethodCustom, handler: handler}
}

// DisableWildcardMethodHandler makes unregistered methods answer "not
// found" instead of 405, hiding the resource's existence from callers
// probing with other methods.
func (r *Resource) DisableWildcardMethodHandler() {
	r.wildcardMethod = wildcardMethodConfig{mode: wildcardMethodDisabled}
}

// SetMistargetedHandler installs a custom not-found responder for
// requests that fail to match at or below this resource. A custom
// responder answers immediately; subtree-handler ancestors cannot
// recover such requests.
func (r *Resource) SetMistargetedHandler(handler http.Handler) {
	r.mistargeted = handler
}

// SetSubtreeHandler marks the resource as a catch-all for unmatched
// requests anywhere beneath it: when a deeper resource answers "not
// found", dispatch backtracks to this resource's own method handlers.
func (r *Resource) SetSubtreeHandler() {
	r.flags.subtreeHandler = true
}

// SetSlashPolicy selects the trailing-slash mismatch behavior. The
// default is SlashRedirect.
func (r *Resource) SetSlashPolicy(policy SlashPolicy) {
	r.flags.slashPolicy = policy
}

// Wrap registers middleware around one of the resource's dispatch
// roles. Middleware is composed exactly once, at finalization; the
// first registered runs outermost.
func (r *Resource) Wrap(target MiddlewareTarget, mws ...MiddlewareFunc) {
	for _, mw := range mws {
		r.middleware = append(r.middleware, middlewareEntry{target: target, mw: mw})
	}
}

// WrapMethod registers middleware around a single method's handler.
// Naming a method that has no handler when the tree is finalized is a
// construction error.
func (r *Resource) WrapMethod(method string, mws ...MiddlewareFunc) error {
	method = strings.ToUpper(method)
	if !isValidMethodToken(method) {
		return fmt.Errorf("mux: invalid method token %q", method)
	}
	for _, mw := range mws {
		r.middleware = append(r.middleware, middlewareEntry{
			target: TargetRequestHandler, method: method, mw: mw,
		})
	}
	return nil
}

// --- Tree building ---

// Subresource returns the resource at relPath below r, creating
// missing intermediate resources on demand.
func (r *Resource) Subresource(relPath string) (*Resource, error) {
	if relPath == "" {
		return nil, fmt.Errorf("mux: empty relative path")
	}
	if relPath == "/" {
		return nil, fmt.Errorf("mux: relative path cannot be the root")
	}
	if !strings.HasPrefix(relPath, "/") {
		return nil, fmt.Errorf("mux: relative path %q must start with a slash", relPath)
	}

	endsWithSlash := strings.HasSuffix(relPath, "/")
	patterns, err := parsePathPatterns(relPath)
	if err != nil {
		return nil, err
	}

	last := len(patterns) - 1
	current := r
	for i, p := range patterns {
		child, err := current.childForPattern(p, i == last)
		if err != nil {
			return nil, err
		}
		current = child
	}

	if endsWithSlash {
		current.flags.endsWithSlash = true
	}
	return current, nil
}

// childForPattern finds the child matching p or creates it. A
// placeholder pattern may only match an existing child; leaf indicates
// whether p names the requested resource itself.
func (r *Resource) childForPattern(p *Pattern, leaf bool) (*Resource, error) {
	if existing := r.findChild(p); existing != nil {
		return existing, nil
	}

	if p.isPlaceholder() {
		if leaf {
			return nil, fmt.Errorf("mux: pattern %q has no matcher", p)
		}
		return nil, fmt.Errorf(
			"mux: no resource %q exists; a name-only pattern cannot create one", p,
		)
	}

	if name := r.duplicateNameInPath(p); name != "" {
		return nil, fmt.Errorf("mux: capture name %q is not unique in the path", name)
	}

	child := newSegmentResource(p)
	if err := r.insertChild(child); err != nil {
		return nil, err
	}
	return child, nil
}

// findChild returns the existing child whose pattern compares Same
// to p, or nil.
func (r *Resource) findChild(p *Pattern) *Resource {
	switch p.kind {
	case patternStatic:
		for _, child := range r.staticChildren {
			if child.pattern.Compare(p) == Same {
				return child
			}
		}
	case patternRegex:
		for _, child := range r.regexChildren {
			if child.pattern.Compare(p) == Same {
				return child
			}
		}
	case patternWildcard:
		if r.wildcardChild != nil && r.wildcardChild.pattern.Compare(p) == Same {
			return r.wildcardChild
		}
	}
	return nil
}

// AddSubresource inserts a built resource (and its subtree) into the
// tree. The resource's prefix chain, if any, must unify with r's own
// position; missing intermediate resources are created. When a child
// with a Same pattern already exists the two are merged: the
// effect-free side is absorbed, and two effect-bearing sides are a
// construction conflict.
func (r *Resource) AddSubresource(newResource *Resource) error {
	if newResource == nil {
		return fmt.Errorf("mux: nil resource")
	}
	if newResource.isRoot() {
		return fmt.Errorf("mux: a root resource cannot be a subresource")
	}
	if newResource.pattern.isPlaceholder() {
		return fmt.Errorf("mux: pattern %q has no matcher", newResource.pattern)
	}

	parent := r
	if len(newResource.prefixPatterns) > 0 {
		remaining, err := r.consumeOwnPathFromPrefix(newResource.prefixPatterns)
		if err != nil {
			return err
		}
		newResource.prefixPatterns = nil

		for _, p := range remaining {
			child, err := parent.childForPattern(p, false)
			if err != nil {
				return err
			}
			parent = child
		}
	}

	if name := parent.duplicateNameInSubtreePath(newResource); name != "" {
		return fmt.Errorf("mux: capture name %q is not unique in the path", name)
	}

	return parent.insertChild(newResource)
}

// AddSubresourceUnder inserts a resource below the given prefix path,
// creating missing intermediate resources. Capturing segments in the
// prefix may be abbreviated to a name-only pattern ($name) to mean
// "the resource already registered here under that name".
func (r *Resource) AddSubresourceUnder(prefixPath string, newResource *Resource) error {
	if prefixPath == "" {
		return fmt.Errorf("mux: empty prefix path")
	}
	if newResource == nil {
		return fmt.Errorf("mux: nil resource")
	}

	if prefixPath == "/" {
		return r.AddSubresource(newResource)
	}
	if !strings.HasPrefix(prefixPath, "/") {
		return fmt.Errorf("mux: prefix path %q must start with a slash", prefixPath)
	}

	patterns, err := parsePathPatterns(prefixPath)
	if err != nil {
		return err
	}

	newResource.prefixPatterns = append(patterns, newResource.prefixPatterns...)
	return r.AddSubresource(newResource)
}

// consumeOwnPathFromPrefix validates that prefix starts with r's own
// pattern chain from the root and returns the remaining patterns. A
// name-only pattern in the prefix reconciles with the concrete pattern
// registered under the same name.
func (r *Resource) consumeOwnPathFromPrefix(prefix []*Pattern) ([]*Pattern, error) {
	if r.isRoot() {
		return prefix, nil
	}

	own := r.pathPattern()
	if len(prefix) < len(own) {
		return nil, fmt.Errorf(
			"mux: prefix path patterns must unify with the path patterns of the parent %q",
			r.Template(),
		)
	}
	for i, p := range own {
		if p.Compare(prefix[i]) != Same {
			return nil, fmt.Errorf(
				"mux: no segment %q exists among the prefix path segments of %q",
				prefix[i], r.Template(),
			)
		}
	}
	return prefix[len(own):], nil
}

// insertChild places child into the matching child collection,
// merging with an existing Same-patterned child when necessary.
func (r *Resource) insertChild(child *Resource) error {
	child.prefixPatterns = r.pathPattern()

	switch child.pattern.kind {
	case patternStatic:
		return insertIntoGroup(&r.staticChildren, child)
	case patternRegex:
		return insertIntoGroup(&r.regexChildren, child)
	default:
		return r.insertWildcardChild(child)
	}
}

// insertIntoGroup merges child into group, keeping registration order
// for distinct siblings.
func insertIntoGroup(group *[]*Resource, child *Resource) error {
	for i, existing := range *group {
		switch existing.pattern.Compare(child.pattern) {
		case Same:
			merged, err := mergeResources(existing, child)
			if err != nil {
				return err
			}
			(*group)[i] = merged
			return nil
		case DifferentNames:
			return fmt.Errorf(
				"mux: pattern %q conflicts with sibling %q: same shape under a different capture name",
				child.pattern, existing.pattern,
			)
		}
	}

	*group = append(*group, child)
	return nil
}

// insertWildcardChild enforces the at-most-one-wildcard-child rule.
func (r *Resource) insertWildcardChild(child *Resource) error {
	if r.wildcardChild == nil {
		r.wildcardChild = child
		return nil
	}

	switch r.wildcardChild.pattern.Compare(child.pattern) {
	case Same:
		merged, err := mergeResources(r.wildcardChild, child)
		if err != nil {
			return err
		}
		r.wildcardChild = merged
		return nil
	default:
		return fmt.Errorf(
			"mux: resource %q can have only one wildcard child; %q conflicts with %q",
			r.Template(), child.pattern, r.wildcardChild.pattern,
		)
	}
}

// mergeResources merges two resources whose patterns compare Same.
// The effect-bearing side wins and absorbs the other's children; when
// neither has effect the children are merged recursively; when both
// have effect the configuration is conflicting and construction fails.
func mergeResources(existing, incoming *Resource) (*Resource, error) {
	switch {
	case !incoming.hasEffect():
		if err := existing.absorbChildren(incoming); err != nil {
			return nil, err
		}
		return existing, nil
	case !existing.hasEffect():
		incoming.prefixPatterns = existing.prefixPatterns
		if err := incoming.absorbChildren(existing); err != nil {
			return nil, err
		}
		return incoming, nil
	default:
		return nil, fmt.Errorf("mux: conflicting resources with pattern %q", incoming.pattern)
	}
}

// absorbChildren merges other's children into r, recursing through
// matching pairs.
func (r *Resource) absorbChildren(other *Resource) error {
	for _, child := range other.staticChildren {
		if err := r.insertChild(child); err != nil {
			return err
		}
	}
	for _, child := range other.regexChildren {
		if err := r.insertChild(child); err != nil {
			return err
		}
	}
	if other.wildcardChild != nil {
		if err := r.insertChild(other.wildcardChild); err != nil {
			return err
		}
	}
	return nil
}

// --- Capture-name uniqueness ---

// patternNames returns the capture or wildcard names a pattern binds.
func patternNames(p *Pattern) []string {
	switch p.kind {
	case patternWildcard:
		return []string{p.name}
	case patternRegex:
		if len(p.names) > 0 {
			return p.names
		}
		return []string{p.name}
	}
	return nil
}

// duplicateNameInPath returns the first of p's names that already
// appears on r's pattern chain from the root, or "".
func (r *Resource) duplicateNameInPath(p *Pattern) string {
	names := patternNames(p)
	if len(names) == 0 {
		return ""
	}

	for _, ancestor := range r.pathPattern() {
		for _, taken := range patternNames(ancestor) {
			for _, name := range names {
				if name == taken {
					return name
				}
			}
		}
	}
	return ""
}

// duplicateNameInSubtreePath checks newResource's pattern and, going
// down, every regex/wildcard descendant against r's ancestor chain.
func (r *Resource) duplicateNameInSubtreePath(newResource *Resource) string {
	stack := []*Resource{newResource}
	for len(stack) > 0 {
		res := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if name := r.duplicateNameInPath(res.pattern); name != "" {
			return name
		}

		stack = append(stack, res.regexChildren...)
		if res.wildcardChild != nil {
			stack = append(stack, res.wildcardChild)
		}
	}
	return ""
}
