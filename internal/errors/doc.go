// Package errors provides structured, coded startup errors for blade.
//
// Every failure the framework reports while building its route table or
// wiring its component graph is a *BladeError carrying:
//   - a stable code (e.g. "E100") registered in this package
//   - a category (route, ioc, discovery, config, cli)
//   - a short message and a longer detail
//   - an optional source location and a fix suggestion
//
// # Error Codes
//
//	E100-E109  route registration (InvalidRoutePath)
//	E110-E119  component container (UnresolvedDependency, DuplicateKeyConflict, ...)
//	E120-E129  configuration files
//	E130-E139  discovery, manifests and code generation
//
// # Usage
//
//	err := errors.New(errors.CodeUnresolvedDependency).
//	    WithDetail(`component "shop.OrderController" field "Repo" needs "shop.OrderRepo"`).
//	    WithSuggestion("Register a component implementing shop.OrderRepo in an ioc package")
//
//	fmt.Print(err.Format())
//
// Use HasCode to test an error chain for a specific code:
//
//	if errors.HasCode(err, errors.CodeInvalidRoutePath) { ... }
package errors
