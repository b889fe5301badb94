// Package aop wraps managed components so that calls to their methods run
// through a chain of named interceptors (aspects).
//
// A component type that names aspects is exposed by the container as a
// *Proxy, or as whatever its decorator builds around that proxy. Decorators
// are plain structs that embed *Proxy and implement the component's
// interfaces by forwarding through Invoke:
//
//	type loggedRepo struct{ *aop.Proxy }
//
//	func (r loggedRepo) Find(id string) (item Item, err error) {
//		err = r.Invoke("Find", func(t any) error {
//			item, err = t.(*Repo).Find(id)
//			return err
//		}, id)
//		return item, err
//	}
//
// Route handlers on proxied controllers are invoked through the proxy by the
// dispatcher, so aspects apply to them without a decorator.
package aop
