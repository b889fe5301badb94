package routepath

import (
	"reflect"
	"testing"
)

func TestCanonicalizePath(t *testing.T) {
	tests := []struct {
		input       string
		wantPath    string
		wantQuery   string
		wantChanged bool
	}{
		{"/", "/", "", false},
		{"", "/", "", true},
		{"users", "/users", "", true},
		{"/api//users", "/api/users", "", true},
		{"/api/./users", "/api/users", "", true},
		{"/api/admin/../users", "/api/users", "", true},
		{"/admin/..", "/", "", true},
		{"/users/", "/users", "", true},
		{"/items/42?expand=owner", "/items/42", "expand=owner", false},
		{"/items/42/?expand=owner", "/items/42", "expand=owner", true},
		{"/items?bad=%GG", "/items", "bad=%GG", false},
		{"/files/%2Fetc", "/files/%2Fetc", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := CanonicalizePath(tc.input)
			if err != nil {
				t.Fatalf("CanonicalizePath(%q) error = %v", tc.input, err)
			}
			if got.Path != tc.wantPath {
				t.Errorf("CanonicalizePath(%q).Path = %q, want %q", tc.input, got.Path, tc.wantPath)
			}
			if got.Query != tc.wantQuery {
				t.Errorf("CanonicalizePath(%q).Query = %q, want %q", tc.input, got.Query, tc.wantQuery)
			}
			if got.Changed != tc.wantChanged {
				t.Errorf("CanonicalizePath(%q).Changed = %v, want %v", tc.input, got.Changed, tc.wantChanged)
			}
		})
	}
}

func TestCanonicalizePathErrors(t *testing.T) {
	tests := []struct {
		input   string
		wantErr error
	}{
		{"/a\\b", ErrBackslashInPath},
		{"/a/\x00", ErrNullByteInPath},
		{"/a/%00", ErrNullByteInPath},
		{"/a/%2", ErrInvalidPercentEscape},
		{"/a/%GG", ErrInvalidPercentEscape},
		{"/a/100%", ErrInvalidPercentEscape},
		{"/../etc", ErrPathEscapesRoot},
		{"/a/../../etc", ErrPathEscapesRoot},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if _, err := CanonicalizePath(tc.input); err != tc.wantErr {
				t.Errorf("CanonicalizePath(%q) error = %v, want %v", tc.input, err, tc.wantErr)
			}
		})
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/", nil},
		{"", nil},
		{"/a", []string{"a"}},
		{"/a/b/c", []string{"a", "b", "c"}},
	}
	for _, tc := range tests {
		if got := Segments(tc.path); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Segments(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestDecodeSegment(t *testing.T) {
	tests := []struct {
		segment string
		splat   bool
		want    string
		wantErr error
	}{
		{"plain", false, "plain", nil},
		{"a%20b", false, "a b", nil},
		{"a%2Fb", false, "", ErrEncodedSlashInSegment},
		{"a%2Fb", true, "a/b", nil},
		{"a%ZZ", false, "", ErrInvalidPercentEscape},
	}

	for _, tc := range tests {
		got, err := DecodeSegment(tc.segment, tc.splat)
		if err != tc.wantErr {
			t.Errorf("DecodeSegment(%q, %v) error = %v, want %v", tc.segment, tc.splat, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("DecodeSegment(%q, %v) = %q, want %q", tc.segment, tc.splat, got, tc.want)
		}
	}
}

func TestSplitPathAndQuery(t *testing.T) {
	tests := []struct {
		input, wantPath, wantQuery string
	}{
		{"/path?q=1", "/path", "q=1"},
		{"/path", "/path", ""},
		{"/path?", "/path", ""},
		{"/path?a=1&b=2", "/path", "a=1&b=2"},
	}

	for _, tc := range tests {
		path, query := SplitPathAndQuery(tc.input)
		if path != tc.wantPath || query != tc.wantQuery {
			t.Errorf("SplitPathAndQuery(%q) = (%q, %q), want (%q, %q)", tc.input, path, query, tc.wantPath, tc.wantQuery)
		}
	}
}
