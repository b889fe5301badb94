package discovery

import (
	"fmt"
	"reflect"

	"github.com/blade-go/blade/pkg/aop"
	"github.com/blade-go/blade/pkg/web"
)

// Definition builds a *Type for the struct type T.
type Definition[T any] struct {
	t *Type
}

// Define starts a Type for T, constructed by newFn.
func Define[T any](newFn func() *T) *Definition[T] {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	return &Definition[T]{t: &Type{
		Key:     keyOf(rt),
		Package: rt.PkgPath(),
		Name:    rt.Name(),
		New:     func() any { return newFn() },
	}}
}

// Controller marks the type as a controller with a path namespace.
func (d *Definition[T]) Controller(namespace string) *Definition[T] {
	d.t.Markers |= Controller
	d.t.Namespace = namespace
	return d
}

// Suffix sets the suffix appended to every route path.
func (d *Definition[T]) Suffix(suffix string) *Definition[T] {
	d.t.Suffix = suffix
	return d
}

// Interceptor marks the type as an interceptor.
func (d *Definition[T]) Interceptor() *Definition[T] {
	d.t.Markers |= Interceptor
	return d
}

// Component marks the type as a plain injectable component.
func (d *Definition[T]) Component() *Definition[T] {
	d.t.Markers |= Component
	return d
}

// Named sets an explicit registration name.
func (d *Definition[T]) Named(name string) *Definition[T] {
	d.t.ComponentName = name
	return d
}

// Scope sets the instance lifetime.
func (d *Definition[T]) Scope(s Scope) *Definition[T] {
	d.t.Scope = s
	return d
}

// Implements declares interface type keys the type satisfies, usually
// obtained with KeyOf.
func (d *Definition[T]) Implements(keys ...string) *Definition[T] {
	d.t.Implements = append(d.t.Implements, keys...)
	return d
}

// Aspects names the interceptors applied to the instance, outermost first.
func (d *Definition[T]) Aspects(names ...string) *Definition[T] {
	d.t.Aspects = append(d.t.Aspects, names...)
	return d
}

// Decorate sets the function that builds the exposed wrapper.
func (d *Definition[T]) Decorate(fn func(*aop.Proxy) any) *Definition[T] {
	d.t.Decorate = fn
	return d
}

// Inject adds injectable fields.
func (d *Definition[T]) Inject(deps ...*Dependency) *Definition[T] {
	d.t.Deps = append(d.t.Deps, deps...)
	return d
}

// Route adds a handler method. No paths means the namespace alone.
func (d *Definition[T]) Route(name string, m web.Method, call func(*T, *web.Context) error, paths ...string) *Definition[T] {
	return d.method(name, m, "", call, paths)
}

// Before adds a BEFORE interceptor method.
func (d *Definition[T]) Before(name string, call func(*T, *web.Context) error, paths ...string) *Definition[T] {
	return d.method(name, web.BEFORE, "", call, paths)
}

// After adds an AFTER interceptor method.
func (d *Definition[T]) After(name string, call func(*T, *web.Context) error, paths ...string) *Definition[T] {
	return d.method(name, web.AFTER, "", call, paths)
}

// MethodSuffix sets the suffix of the most recently added method.
func (d *Definition[T]) MethodSuffix(suffix string) *Definition[T] {
	if n := len(d.t.Methods); n > 0 {
		d.t.Methods[n-1].Suffix = suffix
	}
	return d
}

func (d *Definition[T]) method(name string, m web.Method, suffix string, call func(*T, *web.Context) error, paths []string) *Definition[T] {
	key := d.t.Key
	d.t.Methods = append(d.t.Methods, &Method{
		Name:       name,
		HTTPMethod: m,
		Paths:      paths,
		Suffix:     suffix,
		Call: func(target any, c *web.Context) error {
			t, ok := target.(*T)
			if !ok {
				return fmt.Errorf("%s.%s: target is %T", key, name, target)
			}
			return call(t, c)
		},
	})
	return d
}

// Type returns the built record.
func (d *Definition[T]) Type() *Type {
	return d.t
}

// Field declares an injectable field of T with dependency type D.
func Field[T, D any](name string, set func(*T, D)) *Dependency {
	return &Dependency{
		Field: name,
		Key:   KeyOf[D](),
		Set: func(target, value any) error {
			t, ok := target.(*T)
			if !ok {
				return fmt.Errorf("field %s: target is %T, want %T", name, target, (*T)(nil))
			}
			v, ok := value.(D)
			if !ok {
				return fmt.Errorf("field %s: value is %T, want %s", name, value, reflect.TypeOf((*D)(nil)).Elem())
			}
			set(t, v)
			return nil
		},
	}
}
