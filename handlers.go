package blade

import (
	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/discovery"
	"github.com/blade-go/blade/pkg/route"
	"github.com/blade-go/blade/pkg/web"
)

// =============================================================================
// Programmatic Routes
// =============================================================================

// Handle registers fn for method and path. Routes added after Init are
// published immediately.
func (b *Blade) Handle(method web.Method, path string, fn web.HandlerFunc) error {
	p, err := route.NormalizePath(path, "", "")
	if err != nil {
		return err
	}
	if err := b.registry.Add(&route.Entry{Path: p, Method: method, Func: fn}); err != nil {
		return err
	}
	b.republish()
	return nil
}

// RouteTo binds path to the named method of a component type. The type is
// registered in the container; its route metadata is not consulted. After
// Init the component's dependencies are resolved before the route is
// published, and a resolution error leaves the table and container
// unchanged.
func (b *Blade) RouteTo(path string, t *discovery.Type, methodName string, method web.Method) error {
	var target *discovery.Method
	for _, m := range t.Methods {
		if m.Name == methodName {
			target = m
			break
		}
	}
	if target == nil {
		return errors.New(errors.CodeInvalidRoutePath).
			WithDetailf("%s has no method %s", t.Key, methodName)
	}

	p, err := route.NormalizePath(path, "", "")
	if err != nil {
		return err
	}
	existed := b.container.Has(t.RegistrationKey())
	key, err := b.container.Register(t)
	if err != nil {
		return err
	}
	if b.Initialized() {
		if err := b.container.Resolve(); err != nil {
			if !existed {
				b.container.Remove(key)
			}
			return err
		}
	}
	if err := b.registry.Add(&route.Entry{Path: p, Method: method, Type: t, Target: target}); err != nil {
		return err
	}
	b.republish()
	return nil
}

// Get registers a GET handler.
func (b *Blade) Get(path string, fn web.HandlerFunc) *Blade { return b.route(web.GET, path, fn) }

// Post registers a POST handler.
func (b *Blade) Post(path string, fn web.HandlerFunc) *Blade { return b.route(web.POST, path, fn) }

// Put registers a PUT handler.
func (b *Blade) Put(path string, fn web.HandlerFunc) *Blade { return b.route(web.PUT, path, fn) }

// Patch registers a PATCH handler.
func (b *Blade) Patch(path string, fn web.HandlerFunc) *Blade { return b.route(web.PATCH, path, fn) }

// Delete registers a DELETE handler.
func (b *Blade) Delete(path string, fn web.HandlerFunc) *Blade { return b.route(web.DELETE, path, fn) }

// All registers a handler for every request method.
func (b *Blade) All(path string, fn web.HandlerFunc) *Blade { return b.route(web.ALL, path, fn) }

// Any is an alias of All.
func (b *Blade) Any(path string, fn web.HandlerFunc) *Blade { return b.route(web.ALL, path, fn) }

// Before registers a BEFORE interceptor.
func (b *Blade) Before(path string, fn web.HandlerFunc) *Blade { return b.route(web.BEFORE, path, fn) }

// After registers an AFTER interceptor.
func (b *Blade) After(path string, fn web.HandlerFunc) *Blade { return b.route(web.AFTER, path, fn) }

// route records an invalid path as a startup failure instead of aborting.
func (b *Blade) route(method web.Method, path string, fn web.HandlerFunc) *Blade {
	if err := b.Handle(method, path, fn); err != nil {
		b.logger.Error("route skipped", "method", method, "pattern", path, "error", err)
		b.mu.Lock()
		b.failures = append(b.failures, err)
		b.mu.Unlock()
	}
	return b
}

func (b *Blade) republish() {
	if b.Initialized() && b.table.Load() != nil {
		b.table.Store(b.registry.Build())
	}
}
