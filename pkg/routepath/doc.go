// Package routepath is the path grammar shared by route registration and
// request matching.
//
// Route patterns are normalized with Normalize and compiled with Parse.
// A pattern is a sequence of segments:
//
//	/users          literal
//	/users/:id      parameter, matches exactly one segment
//	/files/*        splat, matches the rest of the path (possibly empty)
//	/files/*path    named splat
//
// Incoming request paths are canonicalized with CanonicalizePath before
// they are matched.
package routepath
