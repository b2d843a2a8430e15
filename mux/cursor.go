package mux

import "strings"

// routeCursor tracks the unmatched suffix of a request path as an
// index into the escaped path string. No copies of the path are made;
// advancing and rewinding are integer operations.
type routeCursor struct {
	path  string
	index int
}

// newRouteCursor positions a cursor at the first segment of path. The
// path must be rooted (start with '/').
func newRouteCursor(path string) routeCursor {
	c := routeCursor{path: path}
	if strings.HasPrefix(path, "/") {
		c.index = 1
	}
	return c
}

// hasRemaining reports whether any unconsumed, non-empty suffix is
// left. A trailing slash alone does not count as a remaining segment.
func (c *routeCursor) hasRemaining() bool {
	return c.index < len(c.path)
}

// nextSegment consumes and returns the next path segment in its raw
// percent-encoded form.
func (c *routeCursor) nextSegment() string {
	rest := c.path[c.index:]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		c.index += i + 1
		return rest[:i]
	}
	c.index = len(c.path)
	return rest
}

// segmentIndex returns the current position, suitable for a later
// revertTo.
func (c *routeCursor) segmentIndex() int {
	return c.index
}

// revertTo rewinds the cursor to a previously saved position.
func (c *routeCursor) revertTo(index int) {
	c.index = index
}

// endsWithSlash reports whether the request path carries a trailing
// slash. The root path "/" has no trailing-slash shape of its own.
func (c *routeCursor) endsWithSlash() bool {
	return len(c.path) > 1 && strings.HasSuffix(c.path, "/")
}
