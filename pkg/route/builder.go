package route

import (
	"log/slog"
	"strings"

	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/discovery"
	"github.com/blade-go/blade/pkg/ioc"
	"github.com/blade-go/blade/pkg/routepath"
	"github.com/blade-go/blade/pkg/web"
)

// Packages is the package configuration consumed by Build. Every entry is
// an import path, optionally ending in "/..." for a recursive scan.
type Packages struct {
	// Base expands to <Base>/route and <Base>/interceptor.
	Base string

	// Routes are scanned for controllers.
	Routes []string

	// Interceptors are scanned for interceptors.
	Interceptors []string
}

// Expand returns the route and interceptor package lists with Base
// expanded and duplicates removed.
func (p Packages) Expand() (routes, interceptors []string) {
	routes = append(routes, p.Routes...)
	interceptors = append(interceptors, p.Interceptors...)
	if p.Base != "" {
		pkg, recursive := discovery.SplitPattern(p.Base)
		routes = append(routes, discovery.JoinPattern(pkg+"/route", recursive))
		interceptors = append(interceptors, discovery.JoinPattern(pkg+"/interceptor", recursive))
	}
	return dedupe(routes), dedupe(interceptors)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Builder turns discovered controllers and interceptors into registry
// entries.
type Builder struct {
	discoverer discovery.Discoverer
	container  *ioc.Container
	registry   *Registry
	logger     *slog.Logger
	failures   []error
}

// NewBuilder creates a builder.
func NewBuilder(d discovery.Discoverer, c *ioc.Container, r *Registry, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		discoverer: d,
		container:  c,
		registry:   r,
		logger:     logger.With("component", "route"),
	}
}

// Build scans every configured package. A package containing an invalid
// route path is skipped as a whole and reported through Failures; other
// packages are unaffected. Container and discovery errors are fatal and
// returned.
func (b *Builder) Build(p Packages) error {
	routes, interceptors := p.Expand()

	for _, pkg := range routes {
		if err := b.scan(pkg, discovery.Controller); err != nil {
			return err
		}
	}
	for _, pkg := range interceptors {
		if err := b.scan(pkg, discovery.Interceptor); err != nil {
			return err
		}
	}

	b.logger.Info("routes built",
		"packages", len(routes)+len(interceptors),
		"entries", b.registry.Len(),
		"failed", len(b.failures))
	return nil
}

// Failures returns the InvalidRoutePath errors of skipped packages.
func (b *Builder) Failures() []error {
	return b.failures
}

// scan stages the entries of one package and commits them only when every
// path in the package is valid.
func (b *Builder) scan(pattern string, marker discovery.Marker) error {
	pkg, recursive := discovery.SplitPattern(pattern)
	types, err := b.discoverer.Discover(pkg, recursive, marker)
	if err != nil {
		return errors.FromError(err, errors.CodeDiscoveryFailed).
			WithDetailf("package %s", pattern)
	}

	var (
		staged []*Entry
		owners []*discovery.Type
	)
	for _, t := range types {
		entries, bad, err := entriesFor(t, marker)
		if err != nil {
			err = err.WithDetailf("package %s, %s", pattern, err.Detail)
			b.logger.Error("package skipped",
				"package", pattern,
				"pattern", bad,
				"error", err)
			b.failures = append(b.failures, err)
			return nil
		}
		if len(entries) == 0 {
			b.logger.Debug("type has no eligible methods", "type", t.Key, "marker", marker.String())
			continue
		}
		staged = append(staged, entries...)
		owners = append(owners, t)
	}

	for _, t := range owners {
		if _, err := b.container.Register(t); err != nil {
			return err
		}
	}
	for _, e := range staged {
		if err := b.registry.Add(e); err != nil {
			return err
		}
	}

	b.logger.Debug("package scanned",
		"package", pattern,
		"marker", marker.String(),
		"types", len(owners),
		"entries", len(staged))
	return nil
}

// entriesFor computes the entries of one type. Controllers contribute their
// request methods under the type namespace; interceptors contribute BEFORE
// and AFTER methods with no namespace.
// The offending pattern is returned alongside an error.
func entriesFor(t *discovery.Type, marker discovery.Marker) ([]*Entry, string, *errors.BladeError) {
	var (
		methods   []*discovery.Method
		namespace string
	)
	if marker == discovery.Interceptor {
		methods = t.MethodsOf(web.BEFORE, web.AFTER)
	} else {
		methods = t.MethodsOf(web.GET, web.POST, web.PUT, web.PATCH, web.DELETE, web.HEAD, web.OPTIONS, web.ALL)
		namespace = t.Namespace
	}

	var out []*Entry
	for _, m := range methods {
		suffix := m.Suffix
		if suffix == "" && marker != discovery.Interceptor {
			suffix = t.Suffix
		}
		for _, value := range m.Values() {
			path, err := routepath.Normalize(value, namespace, suffix)
			if err != nil {
				raw := namespace + value + suffix
				return nil, raw, invalidPath(raw, err).
					WithDetailf("%s.%s: pattern %q", t.Key, m.Name, raw)
			}
			out = append(out, &Entry{
				Path:   path,
				Method: m.HTTPMethod,
				Type:   t,
				Target: m,
				Suffix: suffix,
			})
		}
	}
	return out, "", nil
}
