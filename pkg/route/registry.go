package route

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/routepath"
)

// Registry collects entries during startup. Handlers registered twice for
// the same path and method keep the later registration. Distinct
// interceptors accumulate; the same component method seen again at the same
// path keeps its first registration.
type Registry struct {
	mu           sync.Mutex
	handlers     map[entryKey]*Entry
	interceptors []*Entry
	seen         map[targetKey]bool
	seq          int
	logger       *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[entryKey]*Entry),
		seen:     make(map[targetKey]bool),
		logger:   logger.With("component", "route"),
	}
}

// Add records an entry. The path must already be normalized.
func (r *Registry) Add(e *Entry) error {
	if e.Method == "" {
		return errors.New(errors.CodeInvalidRoutePath).WithDetailf("pattern %q has no method", e.Path)
	}
	if e.Target == nil && e.Func == nil {
		return errors.New(errors.CodeInvalidRoutePath).WithDetailf("pattern %q has no target", e.Path)
	}
	p, err := routepath.Parse(e.Path)
	if err != nil {
		return invalidPath(e.Path, err)
	}
	if p.String() != e.Path {
		return invalidPath(e.Path, routepath.ErrInvalidPattern).
			WithSuggestion("Normalize the path with route.NormalizePath, e.g. " + p.String())
	}
	e.pattern = p

	r.mu.Lock()
	defer r.mu.Unlock()

	if e.IsInterceptor() && e.Type != nil {
		k := e.targetKey()
		if r.seen[k] {
			r.logger.Debug("interceptor already registered", "method", e.Method, "path", e.Path, "target", e.Name())
			return nil
		}
		r.seen[k] = true
	}
	if old, ok := r.handlers[e.key()]; ok && e.Type != nil && old.targetKey() == e.targetKey() {
		r.logger.Debug("route already registered", "method", e.Method, "path", e.Path, "target", e.Name())
		return nil
	}

	r.seq++
	e.seq = r.seq

	if e.IsInterceptor() {
		r.interceptors = append(r.interceptors, e)
		r.logger.Debug("interceptor registered", "method", e.Method, "path", e.Path, "target", e.Name())
		return nil
	}

	if old, ok := r.handlers[e.key()]; ok {
		r.logger.Warn("route replaced",
			"method", e.Method,
			"path", e.Path,
			"previous", old.Name(),
			"target", e.Name())
	} else {
		r.logger.Debug("route registered", "method", e.Method, "path", e.Path, "target", e.Name())
	}
	r.handlers[e.key()] = e
	return nil
}

// Handlers returns the live handler entries in registration order.
func (r *Registry) Handlers() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entry, 0, len(r.handlers))
	for _, e := range r.handlers {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Interceptors returns the interceptor entries in registration order.
func (r *Registry) Interceptors() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Entry(nil), r.interceptors...)
}

// Len returns the number of handler and interceptor entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers) + len(r.interceptors)
}

// Build compiles the current entries into an immutable Table. The
// registry may keep changing afterwards without affecting the table.
func (r *Registry) Build() *Table {
	t := newTable()
	for _, e := range r.Handlers() {
		t.addHandler(e)
	}
	for _, e := range r.Interceptors() {
		t.addInterceptor(e)
	}
	r.logger.Debug("route table built", "routes", t.routes, "interceptors", t.interceptors)
	return t
}
