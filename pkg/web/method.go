package web

import "strings"

// Method is an HTTP method tag. BEFORE and AFTER mark interceptors; ALL
// marks a handler that accepts every request method.
type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	PUT     Method = "PUT"
	PATCH   Method = "PATCH"
	DELETE  Method = "DELETE"
	HEAD    Method = "HEAD"
	OPTIONS Method = "OPTIONS"
	BEFORE  Method = "BEFORE"
	AFTER   Method = "AFTER"
	ALL     Method = "ALL"
)

// Methods lists every tag in declaration order.
var Methods = []Method{GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS, BEFORE, AFTER, ALL}

// ParseMethod parses a method tag case-insensitively.
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// IsInterceptor reports whether m is BEFORE or AFTER.
func (m Method) IsInterceptor() bool {
	return m == BEFORE || m == AFTER
}

// IsRequest reports whether m can appear on an incoming request.
func (m Method) IsRequest() bool {
	switch m {
	case GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS:
		return true
	}
	return false
}

func (m Method) String() string { return string(m) }
