package ioc

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/aop"
	"github.com/blade-go/blade/pkg/discovery"
)

// Initializer is implemented by components that need a hook once their
// dependencies are injected.
type Initializer interface {
	AfterInject() error
}

// Registration is one container entry.
type Registration struct {
	// Key is the explicit name, else the type key.
	Key string

	// TypeKey is the component's type key.
	TypeKey string

	// Type is the discovery record, nil for instance registrations.
	Type *discovery.Type

	// Instance is the exposed singleton instance. It is nil for prototypes.
	Instance any

	// Scope is the instance lifetime.
	Scope discovery.Scope

	// Explicit reports whether Key is an explicit name.
	Explicit bool

	implements []string
	injected   bool
}

// Satisfies reports whether the registration can fill a dependency on key.
func (r *Registration) Satisfies(key string) bool {
	if r.TypeKey == key {
		return true
	}
	for _, k := range r.implements {
		if k == key {
			return true
		}
	}
	return false
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the container's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// WithFactory sets the aspect factory used to wrap components.
func WithFactory(f *aop.Factory) Option {
	return func(c *Container) { c.factory = f }
}

// Container holds managed components. It is safe for concurrent lookups.
// Registration and Resolve are startup operations.
type Container struct {
	mu      sync.RWMutex
	regs    map[string]*Registration
	order   []*Registration
	factory *aop.Factory
	logger  *slog.Logger
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{regs: make(map[string]*Registration)}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "ioc")
	if c.factory == nil {
		c.factory = aop.NewFactory(c.logger)
	}
	return c
}

// Factory returns the aspect factory.
func (c *Container) Factory() *aop.Factory {
	return c.factory
}

// Register adds a component described by t and returns its key. The
// instance is constructed and wrapped immediately for singletons.
func (c *Container) Register(t *discovery.Type) (string, error) {
	key := t.RegistrationKey()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.regs[key]; ok {
		if t.ComponentName != "" && existing.TypeKey != t.Key {
			return "", duplicateKey(key, existing.TypeKey, t.Key)
		}
		c.logger.Debug("component already registered", "key", key)
		return key, nil
	}

	reg := &Registration{
		Key:        key,
		TypeKey:    t.Key,
		Type:       t,
		Scope:      t.Scope,
		Explicit:   t.ComponentName != "",
		implements: t.Implements,
	}
	if t.Scope == discovery.Singleton {
		inst, err := c.factory.Wrap(t)
		if err != nil {
			return "", err
		}
		reg.Instance = inst
	}

	c.add(reg)
	return key, nil
}

// InstanceOption configures RegisterInstance.
type InstanceOption func(*Registration)

// Named registers the instance under an explicit name.
func Named(name string) InstanceOption {
	return func(r *Registration) {
		if name != "" {
			r.Key = name
			r.Explicit = true
		}
	}
}

// As declares interface type keys the instance satisfies.
func As(keys ...string) InstanceOption {
	return func(r *Registration) { r.implements = append(r.implements, keys...) }
}

// RegisterInstance adds a ready-made singleton and returns its key.
// Instances are not injected.
func (c *Container) RegisterInstance(v any, opts ...InstanceOption) (string, error) {
	if v == nil {
		return "", errors.New(errors.CodeConstructionFailed).WithDetail("nil instance")
	}
	typeKey := discovery.KeyOfValue(aop.Unwrap(v))
	reg := &Registration{
		Key:      typeKey,
		TypeKey:  typeKey,
		Instance: v,
		injected: true,
	}
	for _, opt := range opts {
		opt(reg)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.regs[reg.Key]; ok {
		if reg.Explicit && (existing.TypeKey != typeKey || !sameInstance(existing.Instance, v)) {
			return "", duplicateKey(reg.Key, existing.TypeKey, typeKey)
		}
		c.logger.Debug("component already registered", "key", reg.Key)
		return reg.Key, nil
	}

	c.add(reg)
	return reg.Key, nil
}

func (c *Container) add(reg *Registration) {
	c.regs[reg.Key] = reg
	c.order = append(c.order, reg)
	c.logger.Debug("component registered", "key", reg.Key, "type", reg.TypeKey, "scope", reg.Scope.String())
}

// sameInstance compares two exposed instances structurally. A nil existing
// instance belongs to a prototype and never matches.
func sameInstance(a, b any) bool {
	if a == nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func duplicateKey(key, existing, incoming string) error {
	return errors.New(errors.CodeDuplicateKeyConflict).
		WithDetailf("name %q is registered to %s, cannot register %s", key, existing, incoming).
		WithSuggestion("Use a distinct component name")
}

// Has reports whether key is registered.
func (c *Container) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.regs[key]
	return ok
}

// Len returns the number of registrations.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Keys returns every key in registration order.
func (c *Container) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, len(c.order))
	for i, r := range c.order {
		keys[i] = r.Key
	}
	return keys
}

// Registrations returns a copy of every registration in order.
func (c *Container) Registrations() []Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Registration, len(c.order))
	for i, r := range c.order {
		out[i] = *r
	}
	return out
}

// Lookup returns the instance registered under key. When key is not a
// registered name it is tried as a type key. A Prototype scope argument, or
// a prototype registration, yields a fresh instance.
func (c *Container) Lookup(key string, scope ...discovery.Scope) (any, bool) {
	c.mu.RLock()
	reg, ok := c.regs[key]
	if !ok {
		reg, _ = c.findLocked("", &discovery.Dependency{Key: key})
	}
	c.mu.RUnlock()
	if reg == nil {
		return nil, false
	}

	if reg.Type != nil && (reg.Scope == discovery.Prototype || (len(scope) > 0 && scope[0] == discovery.Prototype)) {
		inst, err := c.newInstance(reg, nil)
		if err != nil {
			c.logger.Error("prototype construction failed", "key", reg.Key, "error", err)
			return nil, false
		}
		return inst, true
	}
	return reg.Instance, reg.Instance != nil
}

// LookupType returns every instance whose registration satisfies the type
// key, in registration order. Prototypes are not constructed.
func (c *Container) LookupType(key string) []any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []any
	for _, reg := range c.order {
		if reg.Satisfies(key) && reg.Instance != nil {
			out = append(out, reg.Instance)
		}
	}
	return out
}

// Get returns the component for T, optionally narrowed by name.
func Get[T any](c *Container, name ...string) (T, error) {
	var zero T
	dep := &discovery.Dependency{Key: discovery.KeyOf[T]()}
	if len(name) > 0 {
		dep.Name = name[0]
	}

	c.mu.RLock()
	reg, err := c.findLocked("", dep)
	c.mu.RUnlock()
	if err != nil {
		return zero, err
	}
	if reg == nil {
		return zero, unresolved("", dep)
	}

	inst, err := c.instanceFor(reg, nil)
	if err != nil {
		return zero, err
	}
	v, ok := inst.(T)
	if !ok {
		return zero, errors.New(errors.CodeInjectionTypeMismatch).
			WithDetailf("%s is exposed as %T", reg.Key, inst)
	}
	return v, nil
}

// Remove drops the registration under key and reports whether it existed.
func (c *Container) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg, ok := c.regs[key]
	if !ok {
		return false
	}
	delete(c.regs, key)
	c.order = slices.DeleteFunc(c.order, func(r *Registration) bool { return r == reg })
	c.logger.Debug("component removed", "key", key)
	return true
}

// RemoveAll drops every registration.
func (c *Container) RemoveAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.order)
	c.regs = make(map[string]*Registration)
	c.order = nil
	c.logger.Debug("container cleared", "components", n)
}

// findLocked returns the registration satisfying dep of owner. A nil
// registration with a nil error means no candidate. c.mu must be held.
func (c *Container) findLocked(owner string, dep *discovery.Dependency) (*Registration, error) {
	if dep.Name != "" {
		reg, ok := c.regs[dep.Name]
		if !ok || !reg.Satisfies(dep.Key) {
			return nil, nil
		}
		return reg, nil
	}

	var candidates []*Registration
	for _, r := range c.order {
		if r.Satisfies(dep.Key) {
			candidates = append(candidates, r)
		}
	}
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return candidates[0], nil
	}
	if r, ok := c.regs[dep.Key]; ok {
		return r, nil
	}
	keys := make([]string, len(candidates))
	for i, r := range candidates {
		keys[i] = r.Key
	}
	sort.Strings(keys)
	return nil, errors.New(errors.CodeAmbiguousDependency).
		WithDetailf("%s needs %s; candidates: %s", describe(owner, dep), dep.Key, strings.Join(keys, ", ")).
		WithSuggestion("Name the dependency explicitly")
}

func unresolved(owner string, dep *discovery.Dependency) error {
	want := dep.Key
	if dep.Name != "" {
		want = fmt.Sprintf("%s named %q", dep.Key, dep.Name)
	}
	return errors.New(errors.CodeUnresolvedDependency).
		WithDetailf("%s needs %s", describe(owner, dep), want).
		WithSuggestion("Register a component providing it, or mark the field optional")
}

func describe(owner string, dep *discovery.Dependency) string {
	if owner == "" {
		return "lookup"
	}
	return fmt.Sprintf("component %q field %q", owner, dep.Field)
}
