// Package web defines the request-facing vocabulary shared by the route
// table, the container and the transport: HTTP method tags, the per-request
// Context handed to handlers and interceptors, and HandlerFunc.
//
// The Context is deliberately thin. It carries the raw request and response
// writer, the path parameters bound by the matcher, a small value bag for
// interceptors to pass data downstream, and the abort flag that stops a
// dispatch chain.
package web
