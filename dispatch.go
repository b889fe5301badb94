package blade

import (
	stderrors "errors"

	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/aop"
	"github.com/blade-go/blade/pkg/route"
	"github.com/blade-go/blade/pkg/web"
)

// Dispatch executes a plan against a request context:
//
//   - BEFORE interceptors run in order; an error or c.Abort() stops the
//     request before the handler
//   - the handler runs
//   - AFTER interceptors run whether or not the handler returned an error,
//     unless the handler aborted the context
//
// Panics are not recovered and skip the AFTER chain. The returned error
// joins the handler error with the first AFTER error.
func (b *Blade) Dispatch(c *web.Context, plan *route.Plan) error {
	c.SetPath(plan.Path)
	c.SetParams(plan.Params)

	for _, e := range plan.Before {
		if err := b.invoke(e, c); err != nil {
			_ = plan.Advance(route.StateDone)
			return err
		}
		if c.Aborted() {
			return plan.Advance(route.StateDone)
		}
	}

	if err := plan.Advance(route.StateHandler); err != nil {
		return err
	}
	handlerErr := b.invoke(plan.Handler, c)
	if c.Aborted() {
		_ = plan.Advance(route.StateDone)
		return handlerErr
	}

	if err := plan.Advance(route.StateAfter); err != nil {
		return err
	}
	var afterErr error
	for _, e := range plan.After {
		if afterErr = b.invoke(e, c); afterErr != nil || c.Aborted() {
			break
		}
	}
	_ = plan.Advance(route.StateDone)
	return stderrors.Join(handlerErr, afterErr)
}

// invoke calls one entry. Component instances are looked up per call so
// prototype components get a fresh instance; proxied components run their
// aspect chain around the method.
func (b *Blade) invoke(e *route.Entry, c *web.Context) error {
	if e.Func != nil {
		return e.Func(c)
	}

	inst, ok := b.container.Lookup(e.Type.RegistrationKey())
	if !ok {
		return errors.New(errors.CodeUnresolvedDependency).
			WithDetailf("component %s for %s %s is not registered", e.Type.Key, e.Method, e.Path)
	}
	if p, ok := aop.ProxyOf(inst); ok {
		return p.Invoke(e.Target.Name, func(target any) error {
			return e.Target.Call(target, c)
		}, c)
	}
	return e.Target.Call(inst, c)
}
