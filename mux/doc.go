// Package mux implements a hierarchical request router built around a
// resource tree: each node matches one URI path segment, and a request
// travels from the root to the resource owning its final segment.
//
// The package implements routing semantics based on:
//   - RFC 9110 (HTTP Semantics)
//   - RFC 9112 (HTTP/1.1)
//   - RFC 3986 (URIs)
//   - RFC 7538 (308 Permanent Redirect)
//
// # Building and Finalizing
//
// A tree is built through the mutable Resource builder and then
// finalized, exactly once, into an immutable service:
//
//	root, _ := mux.NewResource("/")
//	users, _ := root.Subresource("/users")
//	users.SetHandlerFunc(http.MethodGet, listUsers)
//
//	svc, err := root.IntoService()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", svc)
//
// The service performs no locking: all composition happens at
// finalization, and the compiled tree is safe for concurrent use.
//
// # Segment Patterns
//
// Each path segment of a resource path is one of three patterns:
//
//	static          exact match against the raw percent-encoded text
//	$name:<body>    regex segment, matched against the decoded text
//	*name           wildcard, captures one whole decoded segment
//
// A regex segment's body mixes literal text with capturing pieces
// written @name(subpattern) or @(subpattern); an unnamed piece borrows
// the segment's outer name. The whole body compiles to a single
// anchored regular expression:
//
//	orders, _ := root.Subresource("/orders/$id:@([0-9]+)")
//	files, _ := root.Subresource("/files/*name")
//
// A segment that would match anything must be written as a wildcard;
// "$x:@(.*)" is rejected. A leading '$' or '*' in a literal segment is
// escaped with a backslash.
//
// Captured values are read from the request context:
//
//	id, ok := mux.ParamValue(r, "id")
//
// Capture names must be unique along any root-to-leaf path.
//
// # Matching Order
//
// Children are tried static first, then regex in registration order,
// then the wildcard. Static comparison uses the raw percent-encoded
// segment (RFC 3986 Section 2.1); the segment is decoded once before
// the regex and wildcard attempts, and an undecodable segment answers
// 400.
//
// # Method Dispatch
//
// Handlers are registered per method. A HEAD request without its own
// handler falls back to the GET handler with the body discarded
// (RFC 9110 Section 9.3.2). Any other unregistered method gets the
// wildcard-method behavior: by default 405 with an Allow header
// listing the supported methods, or a custom handler installed with
// SetWildcardMethodHandler, or, after DisableWildcardMethodHandler,
// the same answer as an unknown path.
//
// # Subtree Handlers
//
// A resource marked with SetSubtreeHandler recovers requests that fail
// to match anywhere below it, dispatching them to its own method
// handlers with the deeper, partial match undone:
//
//	api, _ := root.Subresource("/api")
//	api.SetHandlerFunc(http.MethodGet, apiFallback)
//	api.SetSubtreeHandler()
//
// A custom mistargeted handler installed with SetMistargetedHandler
// answers immediately instead, and takes precedence over recovery.
//
// # Trailing Slash
//
// Every resource has a trailing-slash shape, fixed by its registration
// path. A request with the opposite shape is redirected with 308
// Permanent Redirect by default; SetSlashPolicy selects SlashDrop
// (treat as not found) or SlashHandle (ignore the mismatch) instead.
//
// # Middleware
//
// Middleware is a plain decorator, func(http.Handler) http.Handler,
// registered against one of the dispatch roles of a resource and
// composed once at finalization. The first registered runs outermost:
//
//	users.Wrap(mux.TargetRequestHandler, logging, auth)
//	users.WrapMethod(http.MethodGet, cache)
//
// # Hosts
//
// A Router fronts one or more resource trees selected by the request's
// authority. Static authorities compare case-insensitively; a regex
// authority's captures become request parameters. A hostless root, if
// set, serves requests matching no registered host:
//
//	router := mux.NewRouter()
//	api, _ := mux.NewHost("$sub:@(.+).example.com", apiRoot)
//	router.AddHost(api)
//	router.SetRoot(webRoot)
//	svc, err := router.IntoService()
package mux
