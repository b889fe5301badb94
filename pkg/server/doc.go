// Package server is the HTTP glue around a blade.Blade.
//
// Every request that is not the metrics endpoint is matched against the
// application's route table and dispatched through its plan. Misses are
// answered with 404 and never logged as errors.
//
//	srv := server.New(app, server.FromConfig(cfg))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Run initializes the application if needed, serves until ctx is done,
// drains in-flight requests and then calls app.Destroy.
//
// Each dispatch is recorded in Prometheus metrics and traced with an
// OpenTelemetry span taken from the global tracer provider.
package server
