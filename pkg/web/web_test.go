package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in   string
		want Method
		ok   bool
	}{
		{"GET", GET, true},
		{"post", POST, true},
		{" before ", BEFORE, true},
		{"all", ALL, true},
		{"TRACE", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseMethod(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMethod(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMethodKinds(t *testing.T) {
	if !BEFORE.IsInterceptor() || !AFTER.IsInterceptor() || GET.IsInterceptor() {
		t.Error("IsInterceptor mismatch")
	}
	if ALL.IsRequest() || BEFORE.IsRequest() || !DELETE.IsRequest() {
		t.Error("IsRequest mismatch")
	}
}

func TestContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/items/7", nil)
	w := httptest.NewRecorder()
	c := NewContext(w, r)

	if c.Method() != PUT {
		t.Errorf("Method() = %q, want %q", c.Method(), PUT)
	}
	if c.Path() != "/items/7" {
		t.Errorf("Path() = %q", c.Path())
	}

	c.SetParams(map[string]string{"id": "7"})
	if c.Param("id") != "7" {
		t.Errorf("Param(id) = %q, want 7", c.Param("id"))
	}
	if c.Param("missing") != "" {
		t.Error("Param(missing) should be empty")
	}

	c.Set("user", "ada")
	if v, ok := c.Get("user"); !ok || v != "ada" {
		t.Errorf("Get(user) = %v, %v", v, ok)
	}

	c.Status(http.StatusAccepted)
	c.Status(http.StatusTeapot)
	if w.Code != http.StatusAccepted || c.StatusCode() != http.StatusAccepted {
		t.Errorf("status = %d/%d, want %d", w.Code, c.StatusCode(), http.StatusAccepted)
	}

	if c.Aborted() {
		t.Error("new context should not be aborted")
	}
	c.Abort()
	if !c.Aborted() {
		t.Error("Abort() did not mark the context")
	}
	if c.Context() != r.Context() {
		t.Error("Context() should return the request context")
	}
}

func TestNewTestContext(t *testing.T) {
	c := NewTestContext(GET, "/")
	if c.Context() == nil {
		t.Fatal("Context() should never be nil")
	}
	c.Status(http.StatusOK)
	if c.StatusCode() != http.StatusOK {
		t.Errorf("StatusCode() = %d", c.StatusCode())
	}
}
