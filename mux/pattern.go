package mux

import (
	"fmt"
	"regexp"
	"strings"
)

// patternKind discriminates the three pattern shapes a path segment
// can take.
type patternKind int

const (
	patternStatic patternKind = iota
	patternRegex
	patternWildcard
)

// Pattern is the compiled matcher for a single path segment. It is
// immutable after ParsePattern returns and may be shared freely.
//
// Shapes:
//   - Static: an exact-match literal, compared against the raw
//     percent-encoded segment (RFC 3986 Section 2.1) without decoding.
//   - Regex: a named segment compiled to a single anchored regular
//     expression with one or more capturing pieces. A Regex declared
//     with a name but no body is a placeholder that only unifies with
//     a fully specified pattern of the same name in a prefix path.
//   - Wildcard: matches exactly one remaining path segment and
//     captures its whole decoded text.
type Pattern struct {
	kind     patternKind
	template string // original segment text, renders back via String

	value string // Static: literal text with sigil escapes removed

	name  string         // Regex/Wildcard: the pattern's own name
	re    *regexp.Regexp // Regex: compiled matcher; nil for a placeholder
	shape string         // Regex: source with borrowed names erased, for Compare
	names []string       // Regex: capture names in declaration order
}

// Similarity is the result of comparing two patterns. It decides
// whether two resources may merge, conflict, or coexist as siblings.
type Similarity int

const (
	// Different patterns may coexist as siblings.
	Different Similarity = iota

	// DifferentNames marks two structurally equal capturing patterns
	// that disagree only on the capture name. This is always a
	// construction conflict: dispatch could not tell them apart.
	DifferentNames

	// Same patterns are identical in shape and may be merged.
	Same
)

// ParsePattern parses the textual specification of one path segment.
//
// Grammar:
//
//	literal              static segment
//	$name                regex placeholder (prefix paths only)
//	$name:<body>         regex segment; body mixes literal text with
//	                     capturing pieces @cap(subpattern) and
//	                     @(subpattern)
//	*name                wildcard segment
//	\$literal, \*literal static segment with a literal leading sigil
func ParsePattern(segment string) (*Pattern, error) {
	if segment == "" {
		return nil, fmt.Errorf("mux: empty pattern")
	}

	if name, ok := strings.CutPrefix(segment, "*"); ok {
		if name == "" {
			return nil, fmt.Errorf("mux: empty wildcard pattern name")
		}
		return &Pattern{kind: patternWildcard, template: segment, name: name}, nil
	}

	if rest, ok := strings.CutPrefix(segment, "$"); ok {
		return parseRegexPattern(segment, rest)
	}

	value := segment
	if len(segment) >= 2 && segment[0] == '\\' && (segment[1] == '$' || segment[1] == '*') {
		value = segment[1:]
	}

	return &Pattern{kind: patternStatic, template: segment, value: value}, nil
}

// parseRegexPattern parses everything after the '$' sigil.
func parseRegexPattern(template, rest string) (*Pattern, error) {
	name, body, hasBody := strings.Cut(rest, ":")
	if name == "" {
		return nil, fmt.Errorf("mux: empty regex pattern name in %q", template)
	}

	if !hasBody {
		// Placeholder: reconciled with a concrete pattern of the same
		// name during cross-subtree attachment.
		return &Pattern{kind: patternRegex, template: template, name: name}, nil
	}

	pieces, err := splitRegexBody(body)
	if err != nil {
		return nil, fmt.Errorf("mux: %w in %q", err, template)
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("mux: incomplete regex pattern %q", template)
	}

	source, shape, err := buildRegexSource(name, pieces)
	if err != nil {
		return nil, fmt.Errorf("mux: %w in %q", err, template)
	}

	re, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("mux: invalid pattern %q: %w", template, err)
	}

	var names []string
	for _, n := range re.SubexpNames() {
		if n != "" {
			names = append(names, n)
		}
	}

	return &Pattern{
		kind:     patternRegex,
		template: template,
		name:     name,
		re:       re,
		shape:    shape,
		names:    names,
	}, nil
}

// regexPiece is one element of a regex segment's body: either literal
// text or a capturing piece.
type regexPiece struct {
	capturing  bool
	name       string // capturing only; empty when the piece is unnamed
	subpattern string // capturing only
	text       string // literal only
}

// splitRegexBody splits a regex segment's body on unescaped '@' sigils
// into alternating literal and capturing pieces.
func splitRegexBody(body string) ([]regexPiece, error) {
	var pieces []regexPiece
	rest := body

	for rest != "" {
		text, after, found := cutUnescaped(rest, '@')
		if text != "" {
			pieces = append(pieces, regexPiece{text: text})
		}
		if !found {
			break
		}

		// A capturing piece: optional name, then a parenthesized
		// subpattern.
		open := strings.IndexByte(after, '(')
		if open < 0 {
			return nil, fmt.Errorf("incomplete capturing piece")
		}
		captureName := after[:open]

		subpattern, remaining, err := cutSubpattern(after[open+1:])
		if err != nil {
			return nil, err
		}
		if subpattern == "" {
			return nil, fmt.Errorf("empty regex subpattern")
		}
		if strings.Contains(subpattern, "(?P<") || strings.Contains(subpattern, "(?<") {
			return nil, fmt.Errorf("regex subpattern cannot contain a named capture group")
		}

		pieces = append(pieces, regexPiece{
			capturing:  true,
			name:       captureName,
			subpattern: subpattern,
		})

		rest = remaining
	}

	return pieces, nil
}

// buildRegexSource compiles the pieces of a regex segment into the
// source text of a single anchored regular expression, plus a shape
// form used by Compare in which a piece that borrows the segment's
// outer name compiles to an anonymous group. The shape keeps two
// segments structurally comparable regardless of what outer name the
// borrowed capture was given.
//
// Rules:
//   - a lone capturing piece with no surrounding literal text compiles
//     to \A(?P<name>sub)\z, where an unnamed piece borrows the
//     segment's outer name;
//   - a lone unnamed piece whose subpattern is match-all is rejected:
//     such a segment is semantically a wildcard and must be written as
//     one;
//   - with multiple pieces, literals are regex-escaped and at most one
//     piece may be unnamed; no capturing piece may follow an unnamed
//     one.
func buildRegexSource(outerName string, pieces []regexPiece) (source, shape string, err error) {
	var capturing, unnamed int
	for _, p := range pieces {
		if p.capturing {
			capturing++
			if p.name == "" {
				unnamed++
			}
		}
	}
	if capturing == 0 {
		return "", "", fmt.Errorf("regex pattern must have at least one capturing piece")
	}

	if len(pieces) == 1 {
		p := pieces[0]
		if p.name == "" {
			if isMatchAll(p.subpattern) {
				return "", "", fmt.Errorf(
					"a lone unnamed match-all capturing piece must be written as a wildcard *%s",
					outerName,
				)
			}
			source = `\A(?P<` + outerName + `>` + p.subpattern + `)\z`
			shape = `\A(` + p.subpattern + `)\z`
			return source, shape, nil
		}
		source = `\A(?P<` + p.name + `>` + p.subpattern + `)\z`
		return source, source, nil
	}

	var src, shp strings.Builder
	src.WriteString(`\A`)
	shp.WriteString(`\A`)

	var sawUnnamed bool
	for _, p := range pieces {
		if !p.capturing {
			escaped := regexp.QuoteMeta(p.text)
			src.WriteString(escaped)
			shp.WriteString(escaped)
			continue
		}

		if sawUnnamed {
			return "", "", fmt.Errorf(
				"no capturing piece may follow an unnamed capturing piece",
			)
		}

		if p.name == "" {
			sawUnnamed = true
			src.WriteString(`(?P<` + outerName + `>` + p.subpattern + `)`)
			shp.WriteString(`(` + p.subpattern + `)`)
			continue
		}

		group := `(?P<` + p.name + `>` + p.subpattern + `)`
		src.WriteString(group)
		shp.WriteString(group)
	}

	src.WriteString(`\z`)
	shp.WriteString(`\z`)
	return src.String(), shp.String(), nil
}

// isMatchAll reports whether a subpattern matches any segment text,
// which is the wildcard's job.
func isMatchAll(subpattern string) bool {
	switch strings.TrimSpace(subpattern) {
	case ".*", ".+", "(.*)", "(.+)":
		return true
	}
	return false
}

// cutUnescaped splits s around the first occurrence of sep that is not
// preceded by a backslash escape. The escape character is dropped from
// the returned prefix.
func cutUnescaped(s string, sep byte) (before, after string, found bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\\' && i+1 < len(s) && s[i+1] == sep {
			b.WriteByte(sep)
			i++
			continue
		}
		if ch == sep {
			return b.String(), s[i+1:], true
		}
		b.WriteByte(ch)
	}
	return b.String(), "", false
}

// cutSubpattern scans a capturing piece's subpattern up to its closing
// parenthesis, honoring nested groups, character classes, and
// backslash escapes. The opening parenthesis has already been consumed.
func cutSubpattern(s string) (subpattern, rest string, err error) {
	depth := 1
	inClass := false

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			// Skip the escaped character.
			if i+1 < len(s) {
				i++
			}
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '(':
			if !inClass {
				depth++
			}
		case ')':
			if !inClass {
				depth--
				if depth == 0 {
					return s[:i], s[i+1:], nil
				}
			}
		}
	}

	return "", "", fmt.Errorf("no closing parenthesis of the regex subpattern was found")
}

// --- Pattern methods ---

// Name returns the capture or wildcard name of the pattern. Static
// patterns have no name.
func (p *Pattern) Name() string {
	return p.name
}

// String renders the pattern back to the grammar's text form. Parsing
// the rendering yields a pattern that compares Same.
func (p *Pattern) String() string {
	return p.template
}

// IsStatic reports whether the pattern is an exact-match literal.
func (p *Pattern) IsStatic() bool { return p.kind == patternStatic }

// IsRegex reports whether the pattern is a compiled regex segment or a
// placeholder.
func (p *Pattern) IsRegex() bool { return p.kind == patternRegex }

// IsWildcard reports whether the pattern matches one whole segment.
func (p *Pattern) IsWildcard() bool { return p.kind == patternWildcard }

// isPlaceholder reports whether the pattern is a name-only regex
// declaration awaiting reconciliation.
func (p *Pattern) isPlaceholder() bool {
	return p.kind == patternRegex && p.re == nil
}

// matchStatic compares the raw percent-encoded segment against the
// literal. Decoding is deliberately skipped: two resources differing
// only in encoding stay distinguishable.
func (p *Pattern) matchStatic(encodedSegment string) bool {
	return p.value == encodedSegment
}

// matchRegex matches the decoded segment and, on success, appends the
// captured (name, value) pairs to params in declaration order. Capture
// groups that did not participate in the match append params with
// Valid set to false.
func (p *Pattern) matchRegex(decodedSegment string, params *ParamList) bool {
	locs := p.re.FindStringSubmatchIndex(decodedSegment)
	if locs == nil {
		return false
	}

	for i, subexpName := range p.re.SubexpNames() {
		if subexpName == "" {
			continue
		}
		start, end := locs[2*i], locs[2*i+1]
		if start < 0 {
			params.append(Param{Name: subexpName})
			continue
		}
		params.append(Param{
			Name:  subexpName,
			Value: decodedSegment[start:end],
			Valid: true,
		})
	}

	return true
}

// matchWildcard captures the whole decoded segment under the
// wildcard's name. It never fails.
func (p *Pattern) matchWildcard(decodedSegment string, params *ParamList) {
	params.append(Param{Name: p.name, Value: decodedSegment, Valid: true})
}

// Compare implements the Similarity relation used by tree merging.
// Two static patterns are Same when their literal text is equal. Two
// compiled regex patterns are compared by their shape, which erases a
// borrowed outer name from the source: structurally equal shapes are
// Same when the patterns' names agree and DifferentNames otherwise.
// Two wildcards follow the same rule on their names. A placeholder
// regex is Same as any regex carrying the same name, which is what
// lets a prefix path abbreviate an already-registered capturing
// segment.
func (p *Pattern) Compare(other *Pattern) Similarity {
	switch p.kind {
	case patternStatic:
		if other.kind == patternStatic && p.value == other.value {
			return Same
		}
	case patternRegex:
		if other.kind != patternRegex {
			break
		}
		if p.re == nil || other.re == nil {
			if p.name == other.name {
				return Same
			}
			break
		}
		if p.shape == other.shape {
			if p.name == other.name {
				return Same
			}
			return DifferentNames
		}
	case patternWildcard:
		if other.kind == patternWildcard {
			if p.name == other.name {
				return Same
			}
			return DifferentNames
		}
	}

	return Different
}
