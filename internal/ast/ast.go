// Package ast defines the uniform n-ary tagged tree produced by parsing
// (spec component C3) and the kind namespace shared between grammar-defined
// syntactic categories and user-defined kinds allocated by AST-formers.
package ast

import "github.com/calderwood/hoshi/internal/source"

// Kind identifies an AST node's category. Values below Maximum are reserved
// for grammar-defined syntactic categories (one per nonterminal and literal
// terminal, registered once the grammar has been extracted and edited);
// values at or above Maximum are
// allocated on demand by the KindMap for AST-formers that name a kind
// explicitly (spec §4.5, "(Kind, items…)").
type Kind int32

// Minimum and Maximum bound the reserved range for grammar-defined kinds, per
// spec §3 ("Kind values below a reserved boundary ... name grammar-defined
// syntactic categories").
const (
	Minimum Kind = 0
	// Null is the kind of the AST produced for an empty grammar (spec §8,
	// scenario 1).
	Null    Kind = 0
	Maximum Kind = 1 << 16
)

// Node is one node of a parse or reduce-built tree.
type Node struct {
	Kind     Kind
	Lexeme   string
	Location int64
	Children []*Node
}

// NewLeaf returns a terminal node: a kind and lexeme with no children.
func NewLeaf(kind Kind, lexeme string, loc int64) *Node {
	return &Node{Kind: kind, Lexeme: lexeme, Location: loc}
}

// NewNull returns the degenerate AST for an empty parse: kind Null, no
// lexeme, no location, no children.
func NewNull() *Node {
	return &Node{Kind: Null, Location: source.NoLocation}
}

// Append adds a child in place and returns the node for chaining.
func (n *Node) Append(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// Child returns the i-th child (0-based). It panics on an out-of-range index;
// bounds are checked at generation time where possible (spec §4.5) and at
// runtime by the VM otherwise.
func (n *Node) Child(i int) *Node {
	return n.Children[i]
}

// KindMap assigns stable Kind values to user-defined kind names encountered
// while translating AST-formers (spec §4.5: "If no kind is specified, the
// LHS symbol's name is registered as a kind and used."). Grammar-defined
// kinds (one per nonterminal and literal terminal) are registered first,
// after extraction and editing and before any former is generated, so that
// their numbering is deterministic and independent of which formers happen
// to name a kind explicitly.
type KindMap struct {
	byName map[string]Kind
	byKind map[Kind]string
	next   Kind
}

// NewKindMap returns an empty KindMap whose first allocated kind is Maximum,
// reserving [Minimum, Maximum) for grammar-defined kinds registered via
// RegisterReserved.
func NewKindMap() *KindMap {
	return &KindMap{
		byName: map[string]Kind{},
		byKind: map[Kind]string{},
		next:   Maximum,
	}
}

// RegisterReserved assigns an explicit kind below Maximum to name, used by
// the facade after grammar extraction to give every nonterminal and
// literal terminal a
// deterministic, generation-order-independent kind. It panics if kind is
// already assigned to a different name, or kind >= Maximum.
func (m *KindMap) RegisterReserved(name string, kind Kind) {
	if kind >= Maximum {
		panic("ast: reserved kind out of range")
	}
	if existing, ok := m.byKind[kind]; ok && existing != name {
		panic("ast: kind collision for " + name + " vs " + existing)
	}
	m.byName[name] = kind
	m.byKind[kind] = name
}

// Get returns the kind for name, allocating a fresh one at or above Maximum
// if name has not been seen before.
func (m *KindMap) Get(name string) Kind {
	if k, ok := m.byName[name]; ok {
		return k
	}
	k := m.next
	m.next++
	m.byName[name] = k
	m.byKind[k] = name
	return k
}

// Name returns the name registered for kind, or "" if none is known.
func (m *KindMap) Name(kind Kind) string {
	return m.byKind[kind]
}

// Len returns the number of distinct kinds registered.
func (m *KindMap) Len() int {
	return len(m.byName)
}

// All returns every kind->name pair registered so far, reserved and
// allocated alike. Used when serializing a ParserData's kind map, where the
// allocation order/range split is an implementation detail the consumer
// doesn't need.
func (m *KindMap) All() map[Kind]string {
	out := make(map[Kind]string, len(m.byKind))
	for k, name := range m.byKind {
		out[k] = name
	}
	return out
}
