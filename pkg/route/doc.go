// Package route builds and queries the route table.
//
// A Builder walks configured packages through a discovery.Discoverer,
// registers controllers and interceptors in the ioc.Container and records
// their methods as Entry values in a Registry. Registry.Build produces an
// immutable Table that is safe for concurrent use:
//
//	reg := route.NewRegistry(logger)
//	b := route.NewBuilder(catalog, container, reg, logger)
//	if err := b.Build(route.Packages{Routes: []string{"example.com/app/route/..."}}); err != nil {
//	    return err
//	}
//	table := reg.Build()
//	plan, ok := table.Match(web.GET, "/users/42")
//
// Handler precedence, highest first:
//
//  1. exact path registered for the request method
//  2. exact path registered for ALL
//  3. patterns, ranked by: no splat, fewer wildcards, longer literal
//     prefix, more literal segments, method-specific over ALL, earlier
//     registration
//
// BEFORE and AFTER interceptors match by segment prefix and run from the
// least to the most specific.
package route
