package discovery

import (
	"strings"
	"sync"
)

// RecursiveSuffix marks a package pattern that includes sub-packages.
const RecursiveSuffix = "/..."

// legacyRecursiveSuffix is accepted in configuration for the same purpose.
const legacyRecursiveSuffix = ".*"

// Discoverer finds the types in a package that carry a marker.
type Discoverer interface {
	Discover(pkg string, recursive bool, marker Marker) ([]*Type, error)
}

// SplitPattern strips a recursive marker from a package pattern.
func SplitPattern(pattern string) (pkg string, recursive bool) {
	pattern = strings.TrimSpace(pattern)
	switch {
	case strings.HasSuffix(pattern, RecursiveSuffix):
		return strings.TrimSuffix(pattern, RecursiveSuffix), true
	case strings.HasSuffix(pattern, legacyRecursiveSuffix):
		return strings.TrimSuffix(pattern, legacyRecursiveSuffix), true
	}
	return pattern, false
}

// JoinPattern is the inverse of SplitPattern.
func JoinPattern(pkg string, recursive bool) string {
	if recursive {
		return pkg + RecursiveSuffix
	}
	return pkg
}

// InPackage reports whether typePkg is pkg, or below it when recursive.
func InPackage(typePkg, pkg string, recursive bool) bool {
	if typePkg == pkg {
		return true
	}
	return recursive && strings.HasPrefix(typePkg, pkg+"/")
}

// Catalog is an in-memory registration table of types. Discover returns
// types in the order they were added. The zero value is ready to use.
type Catalog struct {
	mu    sync.RWMutex
	types []*Type
	index map[string]int
}

// NewCatalog creates a catalog holding types.
func NewCatalog(types ...*Type) *Catalog {
	c := &Catalog{}
	c.Add(types...)
	return c
}

// Add appends types. A type whose key is already present replaces the
// earlier record in place.
func (c *Catalog) Add(types ...*Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		c.index = make(map[string]int)
	}
	for _, t := range types {
		if t == nil {
			continue
		}
		if i, ok := c.index[t.Key]; ok {
			c.types[i] = t
			continue
		}
		c.index[t.Key] = len(c.types)
		c.types = append(c.types, t)
	}
}

// Lookup returns the type with the given key.
func (c *Catalog) Lookup(key string) (*Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[key]
	if !ok {
		return nil, false
	}
	return c.types[i], true
}

// All returns every type in insertion order.
func (c *Catalog) All() []*Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Type, len(c.types))
	copy(out, c.types)
	return out
}

// Len returns the number of types.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}

// Packages returns the distinct packages in insertion order.
func (c *Catalog) Packages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, t := range c.types {
		if !seen[t.Package] {
			seen[t.Package] = true
			out = append(out, t.Package)
		}
	}
	return out
}

// Discover implements Discoverer.
func (c *Catalog) Discover(pkg string, recursive bool, marker Marker) ([]*Type, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Type
	for _, t := range c.types {
		if t.Markers&marker == 0 {
			continue
		}
		if !InPackage(t.Package, pkg, recursive) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
