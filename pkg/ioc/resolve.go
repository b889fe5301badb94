package ioc

import (
	"slices"

	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/aop"
	"github.com/blade-go/blade/pkg/discovery"
)

// edge is one resolved dependency of a registration.
type edge struct {
	dep    *discovery.Dependency
	target *Registration
}

// Resolve injects the dependencies of every singleton registered since the
// last Resolve. Dependencies of prototypes are checked but injected per
// lookup. It fails with UnresolvedDependency, AmbiguousDependency or
// InjectionTypeMismatch; nothing is marked resolved on failure.
func (c *Container) Resolve() error {
	c.mu.RLock()
	order, edges, err := c.planLocked()
	total := len(c.order)
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	for _, reg := range order {
		target := aop.Unwrap(reg.Instance)
		for _, e := range edges[reg] {
			val, err := c.instanceFor(e.target, []string{reg.Key})
			if err != nil {
				return err
			}
			if err := e.dep.Set(target, val); err != nil {
				return errors.New(errors.CodeInjectionTypeMismatch).
					WithDetailf("component %q field %q", reg.Key, e.dep.Field).
					Wrap(err)
			}
		}
	}

	for _, reg := range order {
		if err := afterInject(reg.Key, reg.Instance); err != nil {
			return err
		}
	}

	c.mu.Lock()
	for _, reg := range order {
		reg.injected = true
	}
	c.mu.Unlock()

	c.logger.Info("container resolved", "injected", len(order), "components", total)
	return nil
}

// planLocked resolves every dependency edge and orders pending singletons
// so that dependencies come before dependents. c.mu must be held.
func (c *Container) planLocked() ([]*Registration, map[*Registration][]edge, error) {
	edges := make(map[*Registration][]edge)
	var pending []*Registration

	for _, reg := range c.order {
		if reg.Type == nil {
			continue
		}
		for _, dep := range reg.Type.Deps {
			target, err := c.findLocked(reg.Key, dep)
			if err != nil {
				return nil, nil, err
			}
			if target == nil {
				if dep.Optional {
					continue
				}
				return nil, nil, unresolved(reg.Key, dep)
			}
			edges[reg] = append(edges[reg], edge{dep: dep, target: target})
		}
		if reg.Scope == discovery.Singleton && !reg.injected {
			pending = append(pending, reg)
		}
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*Registration]int)
	order := make([]*Registration, 0, len(pending))

	var visit func(reg *Registration)
	visit = func(reg *Registration) {
		switch state[reg] {
		case done:
			return
		case visiting:
			c.logger.Warn("dependency cycle", "component", reg.Key)
			return
		}
		state[reg] = visiting
		for _, e := range edges[reg] {
			if slices.Contains(pending, e.target) {
				visit(e.target)
			}
		}
		state[reg] = done
		order = append(order, reg)
	}
	for _, reg := range pending {
		visit(reg)
	}
	return order, edges, nil
}

// instanceFor returns the value injected for reg: the singleton instance,
// or a fresh prototype.
func (c *Container) instanceFor(reg *Registration, stack []string) (any, error) {
	if reg.Scope == discovery.Prototype && reg.Type != nil {
		return c.newInstance(reg, stack)
	}
	return reg.Instance, nil
}

// newInstance builds, wraps and injects a prototype instance. stack holds
// the prototype keys under construction.
func (c *Container) newInstance(reg *Registration, stack []string) (any, error) {
	if slices.Contains(stack, reg.Key) && reg.Scope == discovery.Prototype {
		return nil, errors.New(errors.CodeConstructionFailed).
			WithDetailf("prototype %q depends on itself through %v", reg.Key, stack)
	}
	stack = append(stack, reg.Key)

	inst, err := c.factory.Wrap(reg.Type)
	if err != nil {
		return nil, err
	}
	target := aop.Unwrap(inst)

	for _, dep := range reg.Type.Deps {
		c.mu.RLock()
		dst, err := c.findLocked(reg.Key, dep)
		c.mu.RUnlock()
		if err != nil {
			return nil, err
		}
		if dst == nil {
			if dep.Optional {
				continue
			}
			return nil, unresolved(reg.Key, dep)
		}
		val, err := c.instanceFor(dst, stack)
		if err != nil {
			return nil, err
		}
		if err := dep.Set(target, val); err != nil {
			return nil, errors.New(errors.CodeInjectionTypeMismatch).
				WithDetailf("component %q field %q", reg.Key, dep.Field).
				Wrap(err)
		}
	}

	if err := afterInject(reg.Key, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func afterInject(key string, inst any) error {
	init, ok := aop.Unwrap(inst).(Initializer)
	if !ok {
		return nil
	}
	if err := init.AfterInject(); err != nil {
		return errors.New(errors.CodeConstructionFailed).
			WithDetailf("component %q AfterInject", key).
			Wrap(err)
	}
	return nil
}
