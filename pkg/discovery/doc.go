// Package discovery describes component types to the rest of the framework
// without runtime reflection over fields or methods.
//
// A *Type is an explicit metadata record: its markers (controller,
// interceptor, component), namespace and suffix, constructor, injectable
// fields with typed setters, and handler methods bound to call functions.
// Records are built by hand with Define, or generated from source
// directives by the Scanner and Generator:
//
//	discovery.Define(func() *Users { return &Users{} }).
//		Controller("/users").
//		Inject(discovery.Field("Repo", func(u *Users, r UserRepo) { u.Repo = r })).
//		Route("List", web.GET, (*Users).List, "/").
//		Route("Show", web.GET, (*Users).Show, "/:id").
//		Type()
//
// A Discoverer answers "which types in this package carry this marker".
// Catalog is the in-memory implementation used at runtime; the Manifest is
// its serialized form, used by the CLI and by build pipelines.
//
// # Source directives
//
// The Scanner reads these comment directives from Go source:
//
//	//blade:controller /users [suffix=.json]
//	//blade:interceptor
//	//blade:component [name=primary] [scope=prototype]
//	//blade:aspect trace audit
//	//blade:implements UserRepo
//	//blade:inject [name=primary] [optional]      (on struct fields)
//	//blade:route GET / /list                     (on methods)
//	//blade:before /admin [suffix=/*]             (on methods)
//	//blade:after /                               (on methods)
package discovery
