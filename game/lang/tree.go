package lang

import "strings"

// char is one display character hanging off a tree node
type char struct {
	value  string
	weight float64
	hits   int
}

// node holds every character typed with the same sequence. Its parent is
// the longest proper prefix that is itself a mapped sequence.
type node struct {
	seq      string
	parent   *node
	children []*node
	chars    []*char

	// hits counts selections of this node, personal the same scaled by 1/weight
	hits     int
	personal float64
	// inherited accumulates personal of this node and every descendant
	inheritedHits int
	inherited     float64
}

func (n *node) isLeaf() bool { return len(n.children) == 0 }

// heaviest returns the largest character weight on the node
func (n *node) heaviest() float64 {
	w := 0.0
	for _, c := range n.chars {
		w = max(w, c.weight)
	}
	return w
}

// insert attaches a node for seq under the deepest node prefixing it. Callers
// insert sequences shortest first so no existing child ever needs moving.
func (n *node) insert(seq string) *node {
	cur := n
	for {
		var next *node
		for _, child := range cur.children {
			if strings.HasPrefix(seq, child.seq) {
				next = child
				break
			}
		}
		if next == nil {
			break
		}
		if next.seq == seq {
			return next
		}
		cur = next
	}
	child := &node{seq: seq, parent: cur}
	cur.children = append(cur.children, child)
	return child
}

// chain returns n and its ancestors, root excluded
func (n *node) chain() []*node {
	var out []*node
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		out = append(out, cur)
	}
	return out
}

func (n *node) clear() {
	n.hits, n.personal, n.inheritedHits, n.inherited = 0, 0, 0, 0
	for _, c := range n.chars {
		c.hits = 0
	}
	for _, child := range n.children {
		child.clear()
	}
}

// prefixRelated reports whether either string prefixes the other
func prefixRelated(a, b string) bool {
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}
