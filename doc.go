// Package blade is the application context of the framework.
//
// A Blade owns the dependency container, the route registry and the
// published route table. It is constructed once, configured, initialized
// and then queried concurrently by the transport:
//
//	app := blade.New(blade.WithTypes(bladegen.Types()...)).
//	    DefaultRoute("example.com/shop/...").
//	    Ioc("example.com/shop/service/...")
//
//	app.Get("/health", func(c *web.Context) error {
//	    c.Status(http.StatusOK)
//	    return nil
//	})
//
//	if err := app.Init(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Destroy()
//
//	if plan, ok := app.Match(web.GET, "/products/42"); ok {
//	    err = app.Dispatch(c, plan)
//	}
//
// pkg/server wires a Blade into an HTTP server.
package blade
