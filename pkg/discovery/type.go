package discovery

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/blade-go/blade/pkg/aop"
	"github.com/blade-go/blade/pkg/web"
)

// Marker tags a type for discovery. A type may carry several markers.
type Marker uint8

const (
	// Controller marks a type whose methods declare routes.
	Controller Marker = 1 << iota
	// Interceptor marks a type whose methods declare BEFORE/AFTER hooks.
	Interceptor
	// Component marks a plain injectable type.
	Component
)

// Any matches every marker.
const Any = Controller | Interceptor | Component

// Has reports whether m includes all bits of other.
func (m Marker) Has(other Marker) bool {
	return other != 0 && m&other == other
}

func (m Marker) String() string {
	var parts []string
	if m&Controller != 0 {
		parts = append(parts, "controller")
	}
	if m&Interceptor != 0 {
		parts = append(parts, "interceptor")
	}
	if m&Component != 0 {
		parts = append(parts, "component")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseMarker parses a single marker name.
func ParseMarker(s string) (Marker, bool) {
	switch strings.ToLower(s) {
	case "controller":
		return Controller, true
	case "interceptor":
		return Interceptor, true
	case "component":
		return Component, true
	}
	return 0, false
}

// Scope controls instance lifetime in the container.
type Scope uint8

const (
	// Singleton is one instance per container lifetime.
	Singleton Scope = iota
	// Prototype is a fresh instance per lookup.
	Prototype
)

func (s Scope) String() string {
	if s == Prototype {
		return "prototype"
	}
	return "singleton"
}

// ParseScope parses "singleton" or "prototype".
func ParseScope(s string) (Scope, bool) {
	switch strings.ToLower(s) {
	case "", "singleton":
		return Singleton, true
	case "prototype":
		return Prototype, true
	}
	return Singleton, false
}

// Type is the metadata record for one component type.
type Type struct {
	// Key is the fully-qualified type key, "<import path>.<Name>".
	Key string

	// Package is the import path declaring the type.
	Package string

	// Name is the bare type name.
	Name string

	// Markers lists the type's discovery markers.
	Markers Marker

	// Namespace is the controller path prefix.
	Namespace string

	// Suffix is appended to every route path of a controller.
	Suffix string

	// ComponentName is an explicit registration name. Empty means Key.
	ComponentName string

	// Scope is the instance lifetime.
	Scope Scope

	// Implements lists interface type keys the type satisfies.
	Implements []string

	// Aspects lists interceptor names applied to the instance.
	Aspects []string

	// Deps lists injectable fields.
	Deps []*Dependency

	// Methods lists route and interceptor methods.
	Methods []*Method

	// New constructs a fresh instance.
	New func() any

	// Decorate builds the exposed wrapper around the aop proxy.
	Decorate func(*aop.Proxy) any
}

// Dependency is one injectable field.
type Dependency struct {
	// Field is the struct field name.
	Field string

	// Key is the type key the field requires.
	Key string

	// Name selects a registration by explicit name when several match.
	Name string

	// Optional fields are left unset when nothing matches.
	Optional bool

	// Set assigns value to the field of target. It returns an error when
	// value has the wrong type.
	Set func(target, value any) error
}

// Named sets the registration name used to disambiguate candidates.
func (d *Dependency) Named(name string) *Dependency {
	d.Name = name
	return d
}

// AsOptional marks the dependency optional.
func (d *Dependency) AsOptional() *Dependency {
	d.Optional = true
	return d
}

// Method is a route handler or interceptor method bound to its call
// function at build time.
type Method struct {
	// Name is the Go method name.
	Name string

	// HTTPMethod is the method tag; BEFORE and AFTER mark interceptors.
	HTTPMethod web.Method

	// Paths are the declared path values. An empty list means the
	// namespace alone.
	Paths []string

	// Suffix is appended to every path of this method.
	Suffix string

	// Call invokes the method on the unwrapped target.
	Call func(target any, c *web.Context) error
}

// Values returns the declared paths, or a single empty value when none
// were declared.
func (m *Method) Values() []string {
	if len(m.Paths) == 0 {
		return []string{""}
	}
	return m.Paths
}

// TypeKey implements aop.Descriptor.
func (t *Type) TypeKey() string { return t.Key }

// AspectNames implements aop.Descriptor.
func (t *Type) AspectNames() []string { return t.Aspects }

// Decorator implements aop.Descriptor.
func (t *Type) Decorator() func(*aop.Proxy) any { return t.Decorate }

// NewInstance implements aop.Descriptor.
func (t *Type) NewInstance() (any, error) {
	if t.New == nil {
		return nil, fmt.Errorf("type %s has no constructor", t.Key)
	}
	v := t.New()
	if v == nil {
		return nil, fmt.Errorf("constructor for %s returned nil", t.Key)
	}
	return v, nil
}

// RegistrationKey is the container key: the explicit name, else Key.
func (t *Type) RegistrationKey() string {
	if t.ComponentName != "" {
		return t.ComponentName
	}
	return t.Key
}

// Satisfies reports whether the type can fill a dependency on key.
func (t *Type) Satisfies(key string) bool {
	if t.Key == key {
		return true
	}
	for _, k := range t.Implements {
		if k == key {
			return true
		}
	}
	return false
}

// MethodsOf returns the methods whose tag is one of tags.
func (t *Type) MethodsOf(tags ...web.Method) []*Method {
	var out []*Method
	for _, m := range t.Methods {
		for _, tag := range tags {
			if m.HTTPMethod == tag {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// KeyOf returns the type key of T. Pointer types resolve to their element.
func KeyOf[T any]() string {
	return keyOf(reflect.TypeOf((*T)(nil)).Elem())
}

// KeyOfValue returns the type key of v's dynamic type.
func KeyOfValue(v any) string {
	if v == nil {
		return ""
	}
	return keyOf(reflect.TypeOf(v))
}

func keyOf(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// SplitKey splits a type key into import path and type name.
func SplitKey(key string) (pkg, name string) {
	i := strings.LastIndex(key, ".")
	if i < 0 {
		return "", key
	}
	slash := strings.LastIndex(key, "/")
	if i < slash {
		return "", key
	}
	return key[:i], key[i+1:]
}
