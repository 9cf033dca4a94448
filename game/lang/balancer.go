package lang

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

var (
	// ErrEmptyLanguage is returned for a forward map without characters
	ErrEmptyLanguage = errors.New("language has no characters")
	// ErrAlphabet is returned when a sequence does not match the language alphabet
	ErrAlphabet = errors.New("sequence outside alphabet")
	// ErrWeight is returned for a non-positive character weight
	ErrWeight = errors.New("character weight must be positive")
	// ErrExaggeration is returned for a negative weight exaggeration
	ErrExaggeration = errors.New("weight exaggeration must be >= 0")
	// ErrUnknownPolicy is returned for a policy name outside the known set
	ErrUnknownPolicy = errors.New("unknown balancing policy")
	// ErrUnknownLanguage is returned for a language id without a built-in
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrExhausted means every candidate conflicts with the avoid set. It is
	// only reachable when the ambiguity threshold was not enforced at setup.
	ErrExhausted = errors.New("no non-conflicting sequence available")
	// ErrAmbiguityThreshold is returned when a language is too small for a topology
	ErrAmbiguityThreshold = errors.New("ambiguity threshold not met")
)

// CSP is a char/seq pair: the displayed character and the sequence that selects it
type CSP struct {
	Char string `json:"char"`
	Seq  string `json:"seq"`
}

// Balancer hands out non-conflicting, usage-balanced labels. It is not safe
// for concurrent use.
type Balancer struct {
	desc   Descriptor
	policy Policy
	root   *node
	leaves []*node
	nodes  int
	rng    *rand.Rand
}

// New builds a balancer from a descriptor. Weights are normalized and raised
// to exaggeration (0 flattens every weight to 1).
func New(desc Descriptor, exaggeration float64, policy Policy, rng *rand.Rand) (*Balancer, error) {
	if len(desc.Forward) == 0 {
		return nil, fmt.Errorf("%s: %w", desc.ID, ErrEmptyLanguage)
	}
	if exaggeration < 0 || math.IsNaN(exaggeration) {
		return nil, fmt.Errorf("%w: got %v", ErrExaggeration, exaggeration)
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = PolicyWeight
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	total := 0.0
	bySeq := make(map[string][]*char)
	for value, fw := range desc.Forward {
		if desc.Alphabet != nil && !desc.Alphabet.MatchString(fw.Seq) {
			return nil, fmt.Errorf("%s: %w: %q for %q", desc.ID, ErrAlphabet, fw.Seq, value)
		}
		if fw.Seq == "" {
			return nil, fmt.Errorf("%s: %w: empty sequence for %q", desc.ID, ErrAlphabet, value)
		}
		if !(fw.Weight > 0) {
			return nil, fmt.Errorf("%s: %w: %q has %v", desc.ID, ErrWeight, value, fw.Weight)
		}
		total += fw.Weight
		bySeq[fw.Seq] = append(bySeq[fw.Seq], &char{value: value, weight: fw.Weight})
	}

	seqs := make([]string, 0, len(bySeq))
	for seq, chars := range bySeq {
		seqs = append(seqs, seq)
		for _, c := range chars {
			c.weight = math.Pow(c.weight/total, exaggeration)
		}
		sort.Slice(chars, func(i, j int) bool { return chars[i].value < chars[j].value })
	}
	sort.Slice(seqs, func(i, j int) bool {
		if len(seqs[i]) != len(seqs[j]) {
			return len(seqs[i]) < len(seqs[j])
		}
		return seqs[i] < seqs[j]
	})

	b := &Balancer{desc: desc, policy: policy, root: &node{}, rng: rng}
	for _, seq := range seqs {
		n := b.root.insert(seq)
		n.chars = bySeq[seq]
		b.nodes++
	}
	b.collectLeaves(b.root)
	return b, nil
}

// NewBuiltin builds a balancer for a built-in language id
func NewBuiltin(id string, exaggeration float64, policy Policy, rng *rand.Rand) (*Balancer, error) {
	desc, ok := Builtin(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, id)
	}
	return New(desc, exaggeration, policy, rng)
}

func (b *Balancer) collectLeaves(n *node) {
	for _, child := range n.children {
		if child.isLeaf() {
			b.leaves = append(b.leaves, child)
			continue
		}
		b.collectLeaves(child)
	}
}

// ID returns the language id
func (b *Balancer) ID() string { return b.desc.ID }

// Policy returns the active balancing policy
func (b *Balancer) Policy() Policy { return b.policy }

// Capacity is the number of top-level subtrees. A single live sequence can
// rule out at most one of them, so an avoid set smaller than Capacity always
// leaves a choice.
func (b *Balancer) Capacity() int { return len(b.root.children) }

// NumLeaves returns the number of leaf sequences
func (b *Balancer) NumLeaves() int { return len(b.leaves) }

// NumSequences returns the number of distinct sequences
func (b *Balancer) NumSequences() int { return b.nodes }

// GetNonConflictingChar returns a pair whose sequence is not prefix-related
// to any sequence in avoid. Empty strings in avoid are ignored.
func (b *Balancer) GetNonConflictingChar(avoid []string) (CSP, error) {
	live := avoid[:0:0]
	for _, s := range avoid {
		if s != "" {
			live = append(live, s)
		}
	}

	order := make([]*node, len(b.leaves))
	copy(order, b.leaves)
	b.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	sort.SliceStable(order, func(i, j int) bool {
		return b.policy.leafUses(order[i]) < b.policy.leafUses(order[j])
	})

	for _, leaf := range order {
		var pick *node
		for _, n := range leaf.chain() {
			if conflicts(n.seq, live) {
				continue
			}
			if pick == nil || b.policy.nodeLess(n, pick) {
				pick = n
			}
		}
		if pick == nil {
			continue
		}
		c := b.policy.bestChar(pick)
		b.record(pick, c)
		return CSP{Char: c.value, Seq: pick.seq}, nil
	}
	return CSP{}, fmt.Errorf("%s: %w (avoiding %d sequences)", b.desc.ID, ErrExhausted, len(live))
}

func conflicts(seq string, avoid []string) bool {
	for _, a := range avoid {
		if prefixRelated(seq, a) {
			return true
		}
	}
	return false
}

func (b *Balancer) record(n *node, c *char) {
	c.hits++
	inc := 1 / c.weight
	n.hits++
	n.personal += inc
	for cur := n; cur != nil; cur = cur.parent {
		cur.inheritedHits++
		cur.inherited += inc
	}
}

// Reset clears every usage counter
func (b *Balancer) Reset() {
	b.root.clear()
}

// Hits returns how often each character has been handed out
func (b *Balancer) Hits() map[string]int {
	out := make(map[string]int)
	var walk func(n *node)
	walk = func(n *node) {
		for _, c := range n.chars {
			out[c.value] = c.hits
		}
		for _, child := range n.children {
			walk(child)
		}
	}
	walk(b.root)
	return out
}

// CheckCompatible fails with ErrAmbiguityThreshold when b cannot guarantee a
// choice against threshold live sequences.
func CheckCompatible(b *Balancer, threshold int) error {
	if b.Capacity() <= threshold {
		return fmt.Errorf("%w: %s offers %d independent sequences, topology needs more than %d",
			ErrAmbiguityThreshold, b.ID(), b.Capacity(), threshold)
	}
	return nil
}
