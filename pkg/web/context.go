package web

import (
	"context"
	"net/http"
)

// HandlerFunc handles one request. Returning an error stops the dispatch
// chain at the BEFORE stage and is reported to the transport.
type HandlerFunc func(c *Context) error

// Context is the per-request state passed through a dispatch plan.
// A Context is not safe for concurrent use.
type Context struct {
	// Request is the incoming request. It may be nil in tests.
	Request *http.Request

	// Response is the writer for the reply. It may be nil in tests.
	Response http.ResponseWriter

	method  Method
	path    string
	params  map[string]string
	values  map[string]any
	status  int
	aborted bool
}

// NewContext creates a Context for an HTTP exchange.
func NewContext(w http.ResponseWriter, r *http.Request) *Context {
	c := &Context{Request: r, Response: w}
	if r != nil {
		c.method = Method(r.Method)
		c.path = r.URL.Path
	}
	return c
}

// NewTestContext creates a Context with no request or response attached.
func NewTestContext(method Method, path string) *Context {
	return &Context{method: method, path: path}
}

// Method returns the request method.
func (c *Context) Method() Method { return c.method }

// Path returns the request path as matched (canonical form once dispatched).
func (c *Context) Path() string { return c.path }

// SetPath replaces the path. The dispatcher sets the canonical path.
func (c *Context) SetPath(p string) { c.path = p }

// Param returns a path parameter bound by the matcher.
func (c *Context) Param(name string) string {
	return c.params[name]
}

// Params returns all bound path parameters. The map must not be modified.
func (c *Context) Params() map[string]string {
	return c.params
}

// SetParams replaces the bound path parameters.
func (c *Context) SetParams(p map[string]string) {
	c.params = p
}

// Set stores a value for later stages of the chain.
func (c *Context) Set(key string, v any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = v
}

// Get returns a value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Abort stops the dispatch chain. A BEFORE interceptor that aborts prevents
// the handler from running; a handler that aborts suppresses AFTER
// interceptors.
func (c *Context) Abort() {
	c.aborted = true
}

// Aborted reports whether Abort was called.
func (c *Context) Aborted() bool {
	return c.aborted
}

// Status writes the response status code once.
func (c *Context) Status(code int) {
	if c.status != 0 {
		return
	}
	c.status = code
	if c.Response != nil {
		c.Response.WriteHeader(code)
	}
}

// StatusCode returns the status written with Status, or 0.
func (c *Context) StatusCode() int {
	return c.status
}

// Context returns the request context, or context.Background when the
// Context has no request.
func (c *Context) Context() context.Context {
	if c.Request != nil {
		return c.Request.Context()
	}
	return context.Background()
}
