package routepath

import (
	"errors"
	"strings"
	"unicode"
)

// Route pattern errors. All of them wrap ErrInvalidPattern.
var (
	ErrInvalidPattern  = errors.New("invalid route pattern")
	ErrEmptyPattern    = invalidPattern("empty path with empty namespace")
	ErrIllegalChar     = invalidPattern("path contains whitespace, backslash, NUL, '?' or '#'")
	ErrEmptyParamName  = invalidPattern("parameter segment has no name")
	ErrSplatNotLast    = invalidPattern("splat must be the last segment")
	ErrWildcardLiteral = invalidPattern("'*' inside a literal segment")
)

type patternError string

func invalidPattern(msg string) error { return patternError(msg) }

func (e patternError) Error() string { return string(e) }

func (e patternError) Unwrap() error { return ErrInvalidPattern }

// SegmentKind classifies a pattern segment.
type SegmentKind uint8

const (
	Literal SegmentKind = iota
	Param
	Splat
)

// SplatParam is the parameter name of an unnamed splat.
const SplatParam = "*"

// Segment is one compiled pattern segment. Value is the literal text or the
// parameter name.
type Segment struct {
	Kind  SegmentKind
	Value string
}

// Normalize computes the final route path from a declared value, the owning
// namespace and a suffix:
//
//  1. prefix "/" if value lacks it
//  2. prepend the namespace
//  3. collapse repeated "/"
//  4. strip one trailing "/" unless the path is "/"
//  5. append the suffix
//
// The result is parsed so that grammar errors surface at registration time.
// Normalize is idempotent: Normalize(p, "", "") == p for every result p.
func Normalize(value, namespace, suffix string) (string, error) {
	if value == "" && namespace == "" {
		return "", ErrEmptyPattern
	}
	for _, s := range [...]string{value, namespace, suffix} {
		if hasIllegalChar(s) {
			return "", ErrIllegalChar
		}
	}

	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	path := clean(namespace + value)
	if suffix != "" {
		path = clean(path + suffix)
	}

	if _, err := Parse(path); err != nil {
		return "", err
	}
	return path, nil
}

func hasIllegalChar(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\\' || r == 0 || r == '?' || r == '#'
	})
}

// clean collapses repeated slashes, drops a trailing slash and guarantees a
// leading one.
func clean(p string) string {
	var b strings.Builder
	b.Grow(len(p) + 1)
	prevSlash := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}
	out := b.String()
	if len(out) > 1 && strings.HasSuffix(out, "/") {
		out = out[:len(out)-1]
	}
	if !strings.HasPrefix(out, "/") {
		out = "/" + out
	}
	return out
}

// Pattern is a compiled route pattern.
type Pattern struct {
	raw      string
	segments []Segment
}

// Parse compiles a route pattern. The pattern is cleaned first, so "/a//b/"
// and "/a/b" compile identically.
func Parse(pattern string) (Pattern, error) {
	if hasIllegalChar(pattern) {
		return Pattern{}, ErrIllegalChar
	}
	raw := clean(pattern)
	parts := Segments(raw)
	segs := make([]Segment, 0, len(parts))

	for i, part := range parts {
		switch part[0] {
		case ':':
			name := part[1:]
			if name == "" {
				return Pattern{}, ErrEmptyParamName
			}
			if strings.ContainsAny(name, ":*") {
				return Pattern{}, ErrWildcardLiteral
			}
			segs = append(segs, Segment{Kind: Param, Value: name})
		case '*':
			if i != len(parts)-1 {
				return Pattern{}, ErrSplatNotLast
			}
			name := part[1:]
			if strings.ContainsAny(name, ":*") {
				return Pattern{}, ErrWildcardLiteral
			}
			if name == "" {
				name = SplatParam
			}
			segs = append(segs, Segment{Kind: Splat, Value: name})
		default:
			if strings.Contains(part, "*") {
				return Pattern{}, ErrWildcardLiteral
			}
			segs = append(segs, Segment{Kind: Literal, Value: part})
		}
	}

	return Pattern{raw: raw, segments: segs}, nil
}

// String returns the normalized pattern text.
func (p Pattern) String() string { return p.raw }

// Segments returns the compiled segments.
func (p Pattern) Segments() []Segment { return p.segments }

// IsStatic reports whether the pattern has no wildcard segments.
func (p Pattern) IsStatic() bool { return p.Wildcards() == 0 }

// Wildcards counts parameter and splat segments.
func (p Pattern) Wildcards() int {
	n := 0
	for _, s := range p.segments {
		if s.Kind != Literal {
			n++
		}
	}
	return n
}

// Literals counts literal segments.
func (p Pattern) Literals() int {
	return len(p.segments) - p.Wildcards()
}

// HasSplat reports whether the pattern ends in a splat.
func (p Pattern) HasSplat() bool {
	n := len(p.segments)
	return n > 0 && p.segments[n-1].Kind == Splat
}

// LiteralPrefix is the length of the pattern text before its first
// wildcard segment.
func (p Pattern) LiteralPrefix() int {
	n := 0
	for _, s := range p.segments {
		if s.Kind != Literal {
			break
		}
		n += 1 + len(s.Value)
	}
	return n
}

// Match matches the whole of a canonical request path, given as segments,
// and returns the decoded parameters.
func (p Pattern) Match(segs []string) (map[string]string, bool) {
	var params map[string]string
	set := func(k, v string) {
		if params == nil {
			params = make(map[string]string, 2)
		}
		params[k] = v
	}

	for i, s := range p.segments {
		switch s.Kind {
		case Splat:
			v, err := DecodeSegment(strings.Join(segs[i:], "/"), true)
			if err != nil {
				return nil, false
			}
			set(s.Value, v)
			return params, true
		case Param:
			if i >= len(segs) {
				return nil, false
			}
			v, err := DecodeSegment(segs[i], false)
			if err != nil {
				return nil, false
			}
			set(s.Value, v)
		default:
			if i >= len(segs) || segs[i] != s.Value {
				return nil, false
			}
		}
	}
	return params, len(segs) == len(p.segments)
}

// MatchPrefix reports whether the pattern matches a segment prefix of the
// request path. "/" matches every path and "/admin" matches "/admin/users"
// but not "/administrator".
func (p Pattern) MatchPrefix(segs []string) bool {
	for i, s := range p.segments {
		switch s.Kind {
		case Splat:
			return true
		case Param:
			if i >= len(segs) {
				return false
			}
		default:
			if i >= len(segs) || segs[i] != s.Value {
				return false
			}
		}
	}
	return true
}
