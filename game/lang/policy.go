package lang

import "fmt"

// Policy selects how usage is compared when picking the next label
type Policy string

const (
	// PolicySeq compares raw hit counts; ties favor the shorter sequence
	PolicySeq Policy = "seq"
	// PolicyChar compares raw hit counts; ties favor the heavier character
	PolicyChar Policy = "char"
	// PolicyWeight divides hits by weight so light characters surface sooner
	PolicyWeight Policy = "weight"
)

// Policies lists every balancing policy
func Policies() []Policy {
	return []Policy{PolicySeq, PolicyChar, PolicyWeight}
}

// ParsePolicy validates a policy name. The empty string selects PolicyWeight.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicySeq, PolicyChar, PolicyWeight:
		return p, nil
	case "":
		return PolicyWeight, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// leafUses is the subtree-wide usage of a leaf
func (p Policy) leafUses(n *node) float64 {
	if p == PolicyWeight {
		return n.inherited
	}
	return float64(n.inheritedHits)
}

// nodeUses is the personal usage of a node
func (p Policy) nodeUses(n *node) float64 {
	if p == PolicyWeight {
		return n.personal
	}
	return float64(n.hits)
}

// nodeLess orders two nodes for selection
func (p Policy) nodeLess(a, b *node) bool {
	ua, ub := p.nodeUses(a), p.nodeUses(b)
	if ua != ub {
		return ua < ub
	}
	if p == PolicyChar {
		return a.heaviest() > b.heaviest()
	}
	return len(a.seq) < len(b.seq)
}

func (p Policy) charUses(c *char) float64 {
	if p == PolicyWeight {
		return float64(c.hits) / c.weight
	}
	return float64(c.hits)
}

// bestChar returns the least-used character of n, heavier first on ties
func (p Policy) bestChar(n *node) *char {
	var best *char
	for _, c := range n.chars {
		if best == nil {
			best = c
			continue
		}
		uc, ub := p.charUses(c), p.charUses(best)
		if uc < ub || (uc == ub && c.weight > best.weight) {
			best = c
		}
	}
	return best
}
