package route

import (
	"sort"

	"github.com/blade-go/blade/pkg/routepath"
	"github.com/blade-go/blade/pkg/web"
)

// Table is an immutable route table. Match is safe for concurrent use.
type Table struct {
	static map[web.Method]map[string]*Entry
	trees  map[web.Method]*node
	before *node
	after  *node

	entries      []*Entry
	routes       int
	interceptors int
}

func newTable() *Table {
	return &Table{
		static: make(map[web.Method]map[string]*Entry),
		trees:  make(map[web.Method]*node),
		before: &node{},
		after:  &node{},
	}
}

func (t *Table) addHandler(e *Entry) {
	t.entries = append(t.entries, e)
	t.routes++
	if e.pattern.IsStatic() {
		m := t.static[e.Method]
		if m == nil {
			m = make(map[string]*Entry)
			t.static[e.Method] = m
		}
		m[e.Path] = e
		return
	}
	root := t.trees[e.Method]
	if root == nil {
		root = &node{}
		t.trees[e.Method] = root
	}
	root.insert(e)
}

func (t *Table) addInterceptor(e *Entry) {
	t.entries = append(t.entries, e)
	t.interceptors++
	if e.Method == web.BEFORE {
		t.before.insert(e)
	} else {
		t.after.insert(e)
	}
}

// Routes returns the number of handler entries.
func (t *Table) Routes() int { return t.routes }

// Interceptors returns the number of interceptor entries.
func (t *Table) Interceptors() int { return t.interceptors }

// Entries returns every entry, handlers first, each group in registration
// order.
func (t *Table) Entries() []*Entry {
	return append([]*Entry(nil), t.entries...)
}

// Match selects the dispatch plan for a request. The path is canonicalized
// first; a path that fails canonicalization is a miss like any other.
func (t *Table) Match(method web.Method, path string) (*Plan, bool) {
	res, err := routepath.CanonicalizePath(path)
	if err != nil {
		return nil, false
	}
	segments := routepath.Segments(res.Path)

	handler, params := t.handler(method, res.Path, segments)
	if handler == nil {
		return nil, false
	}

	return &Plan{
		Method:  method,
		Path:    res.Path,
		Query:   res.Query,
		Params:  params,
		Before:  interceptors(t.before, segments),
		Handler: handler,
		After:   interceptors(t.after, segments),
		state:   StateBefore,
	}, true
}

func (t *Table) handler(method web.Method, path string, segments []string) (*Entry, map[string]string) {
	if e, ok := t.static[method][path]; ok {
		return e, nil
	}
	if e, ok := t.static[web.ALL][path]; ok {
		return e, nil
	}

	var candidates []*Entry
	if root := t.trees[method]; root != nil {
		candidates = root.collect(segments, false, candidates)
	}
	if method != web.ALL {
		if root := t.trees[web.ALL]; root != nil {
			candidates = root.collect(segments, false, candidates)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return morePrecise(candidates[i], candidates[j])
	})

	for _, e := range candidates {
		if params, ok := e.pattern.Match(segments); ok {
			return e, params
		}
	}
	return nil, nil
}

// morePrecise orders handler candidates, best first: fewer wildcard
// segments, then longer literal prefix, then more literal segments. A
// parameter beats a splat only when those are equal.
func morePrecise(a, b *Entry) bool {
	pa, pb := a.pattern, b.pattern
	if wa, wb := pa.Wildcards(), pb.Wildcards(); wa != wb {
		return wa < wb
	}
	if la, lb := pa.LiteralPrefix(), pb.LiteralPrefix(); la != lb {
		return la > lb
	}
	if la, lb := pa.Literals(), pb.Literals(); la != lb {
		return la > lb
	}
	if pa.HasSplat() != pb.HasSplat() {
		return !pa.HasSplat()
	}
	if allA, allB := a.Method == web.ALL, b.Method == web.ALL; allA != allB {
		return allB
	}
	return a.seq < b.seq
}

func interceptors(root *node, segments []string) []*Entry {
	found := root.collect(segments, true, nil)
	out := found[:0]
	for _, e := range found {
		if e.pattern.MatchPrefix(segments) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if li, lj := out[i].pattern.Literals(), out[j].pattern.Literals(); li != lj {
			return li < lj
		}
		return out[i].seq < out[j].seq
	})
	if len(out) == 0 {
		return nil
	}
	return out
}
