package blade

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/blade-go/blade/internal/config"
	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/aop"
	"github.com/blade-go/blade/pkg/discovery"
	"github.com/blade-go/blade/pkg/ioc"
	"github.com/blade-go/blade/pkg/route"
	"github.com/blade-go/blade/pkg/web"
)

// =============================================================================
// Blade Type
// =============================================================================

// Bootstrap is the application hook run at the start of Init. It may add
// routes, aspects and plugins.
type Bootstrap interface {
	Init(b *Blade) error
}

// Blade is the application context. Configuration methods are meant for
// the single-threaded startup phase; Match, Dispatch and the accessors are
// safe for concurrent use once Init returns.
type Blade struct {
	initMu      sync.Mutex
	mu          sync.Mutex
	packages    route.Packages
	iocPackages []string
	bootstrap   Bootstrap

	catalog    *discovery.Catalog
	discoverer discovery.Discoverer
	container  *ioc.Container
	registry   *route.Registry
	table      atomic.Pointer[route.Table]

	plugins     []Plugin
	pluginKeys  map[string]Plugin
	failures    []error
	initialized bool
	destroyOnce sync.Once

	cfg    *config.Config
	logger *slog.Logger
}

// New creates an application context.
func New(opts ...Option) *Blade {
	b := &Blade{
		catalog:    discovery.NewCatalog(),
		pluginKeys: make(map[string]Plugin),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.cfg == nil {
		b.cfg = config.New()
	}
	if b.logger == nil {
		if b.cfg.Debug {
			b.logger = debugLogger()
		} else {
			b.logger = slog.Default()
		}
	}
	if b.discoverer == nil {
		b.discoverer = b.catalog
	}

	b.container = ioc.New(ioc.WithLogger(b.logger))
	b.registry = route.NewRegistry(b.logger)
	b.logger = b.logger.With("component", "blade")
	return b
}

// =============================================================================
// Configuration
// =============================================================================

// Routes adds packages scanned for controllers. A trailing "/..." scans
// sub-packages too.
func (b *Blade) Routes(pkgs ...string) *Blade {
	b.packages.Routes = append(b.packages.Routes, pkgs...)
	return b
}

// DefaultRoute sets the base package; its "route" and "interceptor"
// sub-packages are scanned.
func (b *Blade) DefaultRoute(base string) *Blade {
	b.packages.Base = base
	return b
}

// Interceptor adds a package scanned for interceptors.
func (b *Blade) Interceptor(pkg string) *Blade {
	b.packages.Interceptors = append(b.packages.Interceptors, pkg)
	return b
}

// Ioc adds packages scanned for injectable components.
func (b *Blade) Ioc(pkgs ...string) *Blade {
	b.iocPackages = append(b.iocPackages, pkgs...)
	return b
}

// App sets the bootstrap hook.
func (b *Blade) App(bootstrap Bootstrap) *Blade {
	b.bootstrap = bootstrap
	return b
}

// Aspect registers a named interceptor that components reference through
// their aspect list.
func (b *Blade) Aspect(name string, ic aop.Interceptor) *Blade {
	b.container.Factory().Register(name, ic)
	return b
}

// =============================================================================
// Lifecycle
// =============================================================================

// Init runs startup: the bootstrap hook, component registration, route
// building and dependency resolution, then publishes the route table.
// Invalid route paths skip their package and are reported by Failures;
// every other error is fatal.
func (b *Blade) Init(ctx context.Context) error {
	b.initMu.Lock()
	defer b.initMu.Unlock()

	if b.Initialized() {
		b.logger.Warn("already initialized")
		return nil
	}

	if b.bootstrap != nil {
		if _, err := b.container.RegisterInstance(b.bootstrap); err != nil {
			return err
		}
		if err := b.bootstrap.Init(b); err != nil {
			return errors.FromError(err, errors.CodeConstructionFailed).
				WithDetail("bootstrap failed")
		}
	}

	for _, pattern := range b.iocPackages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.registerComponents(pattern); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	builder := route.NewBuilder(b.discoverer, b.container, b.registry, b.logger)
	if err := builder.Build(b.packages); err != nil {
		return err
	}

	if err := b.container.Resolve(); err != nil {
		return err
	}

	table := b.registry.Build()
	b.table.Store(table)

	b.mu.Lock()
	b.failures = append(b.failures, builder.Failures()...)
	b.initialized = true
	plugins, failed := len(b.plugins), len(b.failures)
	b.mu.Unlock()

	b.logger.Info("blade initialized",
		"routes", table.Routes(),
		"interceptors", table.Interceptors(),
		"components", b.container.Len(),
		"plugins", plugins,
		"failed_packages", failed)
	return nil
}

func (b *Blade) registerComponents(pattern string) error {
	pkg, recursive := discovery.SplitPattern(pattern)
	types, err := b.discoverer.Discover(pkg, recursive, discovery.Component)
	if err != nil {
		return errors.FromError(err, errors.CodeDiscoveryFailed).
			WithDetailf("package %s", pattern)
	}
	for _, t := range types {
		key, err := b.container.Register(t)
		if err != nil {
			return err
		}
		b.logger.Debug("component added", "key", key, "package", pattern)
	}
	return nil
}

// Initialized reports whether Init completed.
func (b *Blade) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// Destroy tears the application down: the container is cleared, then each
// plugin's Destroy hook runs in registration order. Only the first call
// has an effect. In-flight requests must have drained.
func (b *Blade) Destroy() {
	b.destroyOnce.Do(func() {
		b.mu.Lock()
		plugins := append([]Plugin(nil), b.plugins...)
		b.mu.Unlock()

		b.table.Store(nil)
		b.container.RemoveAll()
		for _, p := range plugins {
			p.Destroy()
		}
		b.logger.Info("blade destroyed", "plugins", len(plugins))
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Container returns the dependency container.
func (b *Blade) Container() *ioc.Container { return b.container }

// Catalog returns the built-in type catalog.
func (b *Blade) Catalog() *discovery.Catalog { return b.catalog }

// Table returns the published route table, nil before Init.
func (b *Blade) Table() *route.Table { return b.table.Load() }

// Registry returns the route registry.
func (b *Blade) Registry() *route.Registry { return b.registry }

// Config returns the configuration the context was built from.
func (b *Blade) Config() *config.Config { return b.cfg }

// Logger returns the application logger.
func (b *Blade) Logger() *slog.Logger { return b.logger }

// Packages returns the configured route and interceptor packages.
func (b *Blade) Packages() route.Packages { return b.packages }

// Failures returns the InvalidRoutePath errors collected during startup.
func (b *Blade) Failures() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]error(nil), b.failures...)
}

// Match selects the dispatch plan for a request. It reports false before
// Init, after Destroy and when no handler matches.
func (b *Blade) Match(method web.Method, path string) (*route.Plan, bool) {
	t := b.table.Load()
	if t == nil {
		return nil, false
	}
	return t.Match(method, path)
}
