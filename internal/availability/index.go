package availability

import (
	"encoding/json"

	"catalog-service/internal/models"
)

// Node is a node of the availability index: either a boolean leaf or a
// branch keyed by variation key segments.
type Node struct {
	leaf     bool
	isLeaf   bool
	children map[string]*Node
}

// Leaf returns a leaf node
func Leaf(available bool) *Node {
	return &Node{leaf: available, isLeaf: true}
}

// Branch returns an empty branch node
func Branch() *Node {
	return &Node{children: make(map[string]*Node)}
}

// IsLeaf reports whether the node is a leaf
func (n *Node) IsLeaf() bool {
	return n != nil && n.isLeaf
}

// Value returns the leaf value. Branches report false.
func (n *Node) Value() bool {
	return n != nil && n.isLeaf && n.leaf
}

// Child returns the child at segment, or nil when the node is a leaf or the
// segment is absent.
func (n *Node) Child(segment string) *Node {
	if n == nil || n.isLeaf {
		return nil
	}
	return n.children[segment]
}

// Children returns the child map of a branch
func (n *Node) Children() map[string]*Node {
	if n == nil || n.isLeaf {
		return nil
	}
	return n.children
}

// Lookup follows path from n
func (n *Node) Lookup(path []string) *Node {
	current := n
	for _, segment := range path {
		current = current.Child(segment)
		if current == nil {
			return nil
		}
	}
	return current
}

// Set stores a leaf at path, creating branches on the way. A leaf in the
// way is replaced by a branch and whatever sits at path is overwritten.
func (n *Node) Set(path []string, available bool) {
	if len(path) == 0 {
		return
	}

	current := n
	for _, segment := range path[:len(path)-1] {
		next := current.children[segment]
		if next == nil || next.isLeaf {
			next = Branch()
			current.children[segment] = next
		}
		current = next
	}
	current.children[path[len(path)-1]] = Leaf(available)
}

// MarshalJSON renders leaves as booleans and branches as objects
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	if n.isLeaf {
		return json.Marshal(n.leaf)
	}
	return json.Marshal(n.children)
}

// BuildIndex builds the availability index of variations for channel. A
// leaf is true when the combination is merchandised and in stock above the
// channel threshold. Variations sharing a key overwrite each other in input
// order.
func (p Policy) BuildIndex(channel string, variations []models.Variation, values models.VariationValues) *Node {
	root := Branch()
	minStock := p.MinStock(channel)

	for i := range variations {
		v := &variations[i]
		key := BuildKey(v)
		showOnWeb := values.Lookup(key)
		inStock := v.QuantityAt(channel) > float64(minStock)
		root.Set(key, showOnWeb && inStock)
	}

	return root
}

// Reduce ORs every leaf beneath n. Empty branches reduce to false.
func Reduce(n *Node) bool {
	if n == nil {
		return false
	}
	if n.isLeaf {
		return n.leaf
	}
	for _, child := range n.children {
		if Reduce(child) {
			return true
		}
	}
	return false
}
