package aop

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/blade-go/blade/internal/errors"
)

// Descriptor is what the factory needs to know about a component type.
type Descriptor interface {
	// TypeKey returns the fully-qualified type key.
	TypeKey() string

	// NewInstance constructs a fresh, uninjected instance.
	NewInstance() (any, error)

	// AspectNames lists the aspects applied to the type, outermost first.
	AspectNames() []string

	// Decorator returns the function that builds the exposed wrapper around
	// the proxy, or nil to expose the proxy itself.
	Decorator() func(*Proxy) any
}

// Factory constructs component instances and applies aspects.
type Factory struct {
	mu      sync.RWMutex
	aspects map[string]Interceptor
	logger  *slog.Logger
}

// NewFactory creates a Factory with no aspects registered.
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		aspects: make(map[string]Interceptor),
		logger:  logger.With("component", "aop"),
	}
}

// Register adds a named aspect. Registering a name twice replaces it.
func (f *Factory) Register(name string, ic Interceptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aspects[name] = ic
}

// Has reports whether an aspect is registered under name.
func (f *Factory) Has(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.aspects[name]
	return ok
}

// Names returns the registered aspect names, sorted.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.aspects))
	for name := range f.aspects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Wrap constructs an instance for d and returns its exposed form: the plain
// instance when d names no aspects, otherwise the proxy or its decorator.
func (f *Factory) Wrap(d Descriptor) (any, error) {
	instance, err := d.NewInstance()
	if err != nil {
		return nil, errors.FromError(err, errors.CodeConstructionFailed).
			WithDetailf("component %q", d.TypeKey())
	}
	return f.WrapInstance(d.TypeKey(), instance, d.AspectNames(), d.Decorator())
}

// WrapInstance applies aspects to an existing instance.
func (f *Factory) WrapInstance(typeKey string, instance any, aspects []string, decorate func(*Proxy) any) (any, error) {
	if len(aspects) == 0 {
		return instance, nil
	}

	chain, err := f.chain(typeKey, aspects)
	if err != nil {
		return nil, err
	}

	proxy := NewProxy(typeKey, instance, chain...)
	f.logger.Debug("proxy created", "type", typeKey, "aspects", aspects)
	if decorate == nil {
		return proxy, nil
	}
	return decorate(proxy), nil
}

func (f *Factory) chain(typeKey string, names []string) ([]Interceptor, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	chain := make([]Interceptor, 0, len(names))
	for _, name := range names {
		ic, ok := f.aspects[name]
		if !ok {
			return nil, errors.New(errors.CodeUnknownAspect).
				WithDetailf("component %q names aspect %q", typeKey, name).
				WithSuggestion("Register the aspect on the application before Init")
		}
		chain = append(chain, ic)
	}
	return chain, nil
}
