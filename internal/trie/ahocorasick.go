package trie

import (
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Matcher is a case-insensitive, multi-pattern Aho-Corasick automaton. It
// is built once from a fixed pattern set and then scanned over arbitrary
// input in a single pass, used by the content validator (internal/validate).
type Matcher struct {
	patterns []string // lowercased, as compiled
	root     *acNode
}

type acNode struct {
	children map[byte]*acNode
	fail     *acNode
	// outputs holds the indices into Matcher.patterns that end at this node.
	outputs []int
}

func newACNode() *acNode {
	return &acNode{children: make(map[byte]*acNode)}
}

// NewMatcher compiles patterns into an Aho-Corasick automaton. Matching is
// always case-insensitive; patterns are lowercased at compile time.
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{root: newACNode()}
	for _, p := range patterns {
		lp := strings.ToLower(p)
		m.patterns = append(m.patterns, lp)
	}
	for i, p := range m.patterns {
		n := m.root
		for j := 0; j < len(p); j++ {
			b := p[j]
			child, ok := n.children[b]
			if !ok {
				child = newACNode()
				n.children[b] = child
			}
			n = child
		}
		n.outputs = append(n.outputs, i)
	}
	m.buildFailureLinks()
	return m
}

func (m *Matcher) buildFailureLinks() {
	queue := make([]*acNode, 0, len(m.root.children))
	for _, child := range m.root.children {
		child.fail = m.root
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for b, child := range n.children {
			queue = append(queue, child)
			fail := n.fail
			for fail != nil {
				if next, ok := fail.children[b]; ok {
					child.fail = next
					break
				}
				fail = fail.fail
			}
			if child.fail == nil {
				child.fail = m.root
			}
			child.outputs = append(child.outputs, child.fail.outputs...)
		}
	}
}

// Match describes a single occurrence of a compiled pattern in the scanned
// text.
type Match struct {
	PatternIndex int
	Pattern      string
	Start, End   int // byte offsets into the scanned text, End exclusive
}

// Scan returns every match of every pattern in text (case-insensitive),
// in order of their ending position. Overlapping matches are all reported.
func (m *Matcher) Scan(text string) []Match {
	lower := strings.ToLower(text)
	var out []Match
	n := m.root
	for i := 0; i < len(lower); i++ {
		b := lower[i]
		for n != m.root {
			if _, ok := n.children[b]; ok {
				break
			}
			n = n.fail
		}
		if child, ok := n.children[b]; ok {
			n = child
		}
		for _, idx := range n.outputs {
			p := m.patterns[idx]
			out = append(out, Match{
				PatternIndex: idx,
				Pattern:      p,
				Start:        i + 1 - len(p),
				End:          i + 1,
			})
		}
	}
	return out
}

// MatchedSet returns a bitset with bit i set iff patterns[i] occurs
// anywhere in text. It is the primitive the content validator uses to ask
// "which classes of marker are present" in one pass.
func (m *Matcher) MatchedSet(text string) *bitset.BitSet {
	bs := bitset.New(uint(len(m.patterns)))
	for _, match := range m.Scan(text) {
		bs.Set(uint(match.PatternIndex))
	}
	return bs
}
