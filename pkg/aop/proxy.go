package aop

// Invocation describes one intercepted call.
type Invocation struct {
	// Target is the unwrapped component instance.
	Target any

	// TypeKey is the component's type key.
	TypeKey string

	// Method is the name of the method being invoked.
	Method string

	// Args are the call arguments, for inspection only.
	Args []any
}

// Interceptor runs around an intercepted call. It must call next to
// continue the chain, and may skip it to short-circuit the call.
type Interceptor interface {
	Intercept(inv *Invocation, next func() error) error
}

// InterceptorFunc adapts a function to the Interceptor interface.
type InterceptorFunc func(inv *Invocation, next func() error) error

// Intercept implements Interceptor.
func (f InterceptorFunc) Intercept(inv *Invocation, next func() error) error {
	return f(inv, next)
}

// Proxied is implemented by values that wrap a component behind a *Proxy.
// Decorators that embed *Proxy get it for free.
type Proxied interface {
	AOPProxy() *Proxy
}

// Proxy is the interception wrapper for one component instance.
type Proxy struct {
	target  any
	typeKey string
	chain   []Interceptor
}

// NewProxy wraps target with the given interceptors, outermost first.
func NewProxy(typeKey string, target any, chain ...Interceptor) *Proxy {
	return &Proxy{target: target, typeKey: typeKey, chain: chain}
}

// AOPProxy implements Proxied.
func (p *Proxy) AOPProxy() *Proxy { return p }

// Target returns the wrapped instance.
func (p *Proxy) Target() any { return p.target }

// TypeKey returns the wrapped component's type key.
func (p *Proxy) TypeKey() string { return p.typeKey }

// Len returns the number of interceptors in the chain.
func (p *Proxy) Len() int { return len(p.chain) }

// Invoke runs call against the target through the interceptor chain.
// Interceptors execute in order (first to last), with call at the end.
func (p *Proxy) Invoke(method string, call func(target any) error, args ...any) error {
	inv := &Invocation{
		Target:  p.target,
		TypeKey: p.typeKey,
		Method:  method,
		Args:    args,
	}

	chain := func() error { return call(p.target) }
	for i := len(p.chain) - 1; i >= 0; i-- {
		ic := p.chain[i]
		next := chain
		chain = func() error {
			return ic.Intercept(inv, next)
		}
	}

	return chain()
}

// Unwrap returns the component behind v when v is proxied, else v.
func Unwrap(v any) any {
	if p, ok := v.(Proxied); ok {
		if px := p.AOPProxy(); px != nil {
			return px.target
		}
	}
	return v
}

// ProxyOf returns the proxy behind v, if any.
func ProxyOf(v any) (*Proxy, bool) {
	p, ok := v.(Proxied)
	if !ok {
		return nil, false
	}
	px := p.AOPProxy()
	return px, px != nil
}
