package routepath

import (
	"errors"
	"reflect"
	"testing"
)

func mustParse(t *testing.T, pattern string) Pattern {
	t.Helper()
	p, err := Parse(pattern)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", pattern, err)
	}
	return p
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		value, namespace, suffix string
		want                     string
	}{
		{"user", "/api", "", "/api/user"},
		{"/user/", "/api", "", "/api/user"},
		{"//user", "/api", "", "/api/user"},
		{"", "/api", "", "/api"},
		{"/", "/api/", "", "/api"},
		{"/", "", "", "/"},
		{"list", "api", "", "/api/list"},
		{"/list", "/users", ".html", "/users/list.html"},
		{"/admin", "", "/*", "/admin/*"},
		{"/", "", "/*", "/*"},
		{"/items/:id", "/api", "", "/api/items/:id"},
		{"/files/*path", "", "", "/files/*path"},
	}

	for _, tc := range tests {
		t.Run(tc.namespace+"|"+tc.value+"|"+tc.suffix, func(t *testing.T) {
			got, err := Normalize(tc.value, tc.namespace, tc.suffix)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("Normalize(%q, %q, %q) = %q, want %q", tc.value, tc.namespace, tc.suffix, got, tc.want)
			}
			again, err := Normalize(got, "", "")
			if err != nil || again != got {
				t.Errorf("Normalize(%q) = %q, %v; want idempotent", got, again, err)
			}
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		value, namespace string
		wantErr          error
	}{
		{"", "", ErrEmptyPattern},
		{"/a b", "", ErrIllegalChar},
		{"/a\\b", "", ErrIllegalChar},
		{"/a?x=1", "", ErrIllegalChar},
		{"/a#top", "", ErrIllegalChar},
		{"/a\x00", "", ErrIllegalChar},
		{"/x", "/api\t", ErrIllegalChar},
		{"/items/:", "", ErrEmptyParamName},
		{"/*/items", "", ErrSplatNotLast},
		{"/items*", "", ErrWildcardLiteral},
	}

	for _, tc := range tests {
		_, err := Normalize(tc.value, tc.namespace, "")
		if err != tc.wantErr {
			t.Errorf("Normalize(%q, %q) error = %v, want %v", tc.value, tc.namespace, err, tc.wantErr)
		}
		if !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("Normalize(%q) error should wrap ErrInvalidPattern", tc.value)
		}
	}
}

func TestParseShape(t *testing.T) {
	tests := []struct {
		pattern   string
		wildcards int
		literals  int
		prefix    int
		splat     bool
	}{
		{"/", 0, 0, 0, false},
		{"/items/all", 0, 2, 10, false},
		{"/items/:id", 1, 1, 6, false},
		{"/items/:id/tags", 1, 2, 6, false},
		{"/files/*", 1, 1, 6, true},
		{"/*", 1, 0, 0, true},
	}

	for _, tc := range tests {
		p := mustParse(t, tc.pattern)
		if p.String() != tc.pattern {
			t.Errorf("String() = %q, want %q", p.String(), tc.pattern)
		}
		if p.Wildcards() != tc.wildcards || p.Literals() != tc.literals ||
			p.LiteralPrefix() != tc.prefix || p.HasSplat() != tc.splat {
			t.Errorf("%s: wildcards=%d literals=%d prefix=%d splat=%v, want %d %d %d %v",
				tc.pattern, p.Wildcards(), p.Literals(), p.LiteralPrefix(), p.HasSplat(),
				tc.wildcards, tc.literals, tc.prefix, tc.splat)
		}
		if p.IsStatic() != (tc.wildcards == 0) {
			t.Errorf("%s: IsStatic() = %v", tc.pattern, p.IsStatic())
		}
	}
}

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    map[string]string
		ok      bool
	}{
		{"/", "/", nil, true},
		{"/", "/a", nil, false},
		{"/items/:id", "/items/42", map[string]string{"id": "42"}, true},
		{"/items/:id", "/items", nil, false},
		{"/items/:id", "/items/42/tags", nil, false},
		{"/items/:id", "/items/a%20b", map[string]string{"id": "a b"}, true},
		{"/items/:id", "/items/a%2Fb", nil, false},
		{"/files/*path", "/files/a/b.txt", map[string]string{"path": "a/b.txt"}, true},
		{"/files/*", "/files", map[string]string{SplatParam: ""}, true},
		{"/users/:uid/posts/:pid", "/users/7/posts/9", map[string]string{"uid": "7", "pid": "9"}, true},
	}

	for _, tc := range tests {
		got, ok := mustParse(t, tc.pattern).Match(Segments(tc.path))
		if ok != tc.ok {
			t.Errorf("%s.Match(%s) ok = %v, want %v", tc.pattern, tc.path, ok, tc.ok)
			continue
		}
		if ok && !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s.Match(%s) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

func TestPatternMatchPrefix(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/", "/admin/users", true},
		{"/admin", "/admin/users", true},
		{"/admin", "/admin", true},
		{"/admin", "/administrator", false},
		{"/admin/users", "/admin", false},
		{"/users/:id", "/users/1/edit", true},
		{"/users/:id", "/users", false},
		{"/admin/*", "/admin", true},
	}

	for _, tc := range tests {
		if got := mustParse(t, tc.pattern).MatchPrefix(Segments(tc.path)); got != tc.want {
			t.Errorf("%s.MatchPrefix(%s) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}
