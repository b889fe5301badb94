package route

import "github.com/blade-go/blade/pkg/routepath"

// node is a segment tree node. Entries whose pattern ends at a node are
// stored on it; parameter and splat segments share one child each
// regardless of their names.
type node struct {
	// segment is the literal this node matches
	segment string

	// children are literal segment children
	children []*node

	// paramChild matches any single segment (:id)
	paramChild *node

	// splatChild matches the rest of the path (*path)
	splatChild *node

	entries []*Entry
}

func (n *node) findChild(segment string) *node {
	for _, child := range n.children {
		if child.segment == segment {
			return child
		}
	}
	return nil
}

func (n *node) addChild(segment string) *node {
	if child := n.findChild(segment); child != nil {
		return child
	}
	child := &node{segment: segment}
	n.children = append(n.children, child)
	return child
}

func (n *node) insert(e *Entry) {
	current := n
	for _, seg := range e.pattern.Segments() {
		switch seg.Kind {
		case routepath.Splat:
			if current.splatChild == nil {
				current.splatChild = &node{}
			}
			current = current.splatChild
		case routepath.Param:
			if current.paramChild == nil {
				current.paramChild = &node{}
			}
			current = current.paramChild
		default:
			current = current.addChild(seg.Value)
		}
	}
	current.entries = append(current.entries, e)
}

// collect appends the entries of every node reachable along segments.
// With prefix set, entries on every node passed through are included;
// otherwise only nodes that consume all segments contribute. A splat
// child always contributes since it matches any remainder.
func (n *node) collect(segments []string, prefix bool, out []*Entry) []*Entry {
	if prefix || len(segments) == 0 {
		out = append(out, n.entries...)
	}
	if n.splatChild != nil {
		out = append(out, n.splatChild.entries...)
	}
	if len(segments) == 0 {
		return out
	}

	if child := n.findChild(segments[0]); child != nil {
		out = child.collect(segments[1:], prefix, out)
	}
	if n.paramChild != nil {
		out = n.paramChild.collect(segments[1:], prefix, out)
	}
	return out
}
