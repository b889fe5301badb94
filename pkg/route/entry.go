package route

import (
	"github.com/blade-go/blade/pkg/discovery"
	"github.com/blade-go/blade/pkg/routepath"
	"github.com/blade-go/blade/pkg/web"
)

// Entry is one dispatchable unit: a handler or an interceptor bound to a
// normalized path pattern.
type Entry struct {
	// Path is the normalized pattern.
	Path string

	// Method is the HTTP method tag. BEFORE and AFTER mark interceptors.
	Method web.Method

	// Type is the owning component, nil for function handlers.
	Type *discovery.Type

	// Target is the bound method of Type.
	Target *discovery.Method

	// Func is set for handlers registered without a component.
	Func web.HandlerFunc

	// Suffix is the raw suffix appended to the declared path.
	Suffix string

	pattern routepath.Pattern
	seq     int
}

// Pattern returns the compiled path pattern.
func (e *Entry) Pattern() routepath.Pattern { return e.pattern }

// Seq is the registration sequence number. Lower registered earlier.
func (e *Entry) Seq() int { return e.seq }

// IsInterceptor reports whether e is a BEFORE or AFTER entry.
func (e *Entry) IsInterceptor() bool { return e.Method.IsInterceptor() }

// Name describes the target for logs and listings.
func (e *Entry) Name() string {
	switch {
	case e.Type != nil && e.Target != nil:
		return e.Type.Key + "." + e.Target.Name
	case e.Type != nil:
		return e.Type.Key
	case e.Func != nil:
		return "func"
	}
	return "<nil>"
}

type entryKey struct {
	path   string
	method web.Method
}

func (e *Entry) key() entryKey {
	return entryKey{path: e.Path, method: e.Method}
}

type targetKey struct {
	entryKey
	typeKey string
	target  string
}

func (e *Entry) targetKey() targetKey {
	k := targetKey{entryKey: e.key()}
	if e.Type != nil {
		k.typeKey = e.Type.Key
	}
	if e.Target != nil {
		k.target = e.Target.Name
	}
	return k
}
